package config

import (
	"os"
	"strings"
)

// ExpandEnv replaces ${VAR} and ${VAR:-default} references in input with
// environment-variable values. A set-but-empty variable falls through to
// its default; a variable that is unset and has no default expands to the
// empty string, deferring the failure to whatever validates the resulting
// config value. Bare $VAR (no braces) is left untouched, since YAML values
// legitimately contain dollar signs.
func ExpandEnv(input string) string {
	var b strings.Builder
	for {
		start := strings.Index(input, "${")
		if start < 0 {
			b.WriteString(input)
			return b.String()
		}
		end := strings.Index(input[start:], "}")
		if end < 0 {
			b.WriteString(input)
			return b.String()
		}
		end += start

		b.WriteString(input[:start])
		b.WriteString(expandRef(input[start+2 : end]))
		input = input[end+1:]
	}
}

func expandRef(ref string) string {
	name, fallback, hasFallback := strings.Cut(ref, ":-")
	if !validEnvName(name) {
		return "${" + ref + "}"
	}
	if value, ok := os.LookupEnv(name); ok && value != "" {
		return value
	}
	if hasFallback {
		return fallback
	}
	return ""
}

func validEnvName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
