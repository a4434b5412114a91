package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("QRUN_SET", "hello")
	t.Setenv("QRUN_EMPTY", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set var", "value: ${QRUN_SET}", "value: hello"},
		{"unset var", "value: ${QRUN_UNSET_12345}", "value: "},
		{"default used when unset", "value: ${QRUN_UNSET_12345:-fallback}", "value: fallback"},
		{"default ignored when set", "value: ${QRUN_SET:-fallback}", "value: hello"},
		{"default used when set but empty", "value: ${QRUN_EMPTY:-fallback}", "value: fallback"},
		{"multiple refs", "${QRUN_SET}:${QRUN_SET}", "hello:hello"},
		{"no refs", "no variables here", "no variables here"},
		{"bare dollar untouched", "path: $QRUN_SET/suffix", "path: $QRUN_SET/suffix"},
		{"empty default", "value: ${QRUN_UNSET_12345:-}", "value: "},
		{"default with colons and slashes", "url: ${QRUN_UNSET_12345:-http://localhost:8080/path}", "url: http://localhost:8080/path"},
		{"invalid name left alone", "literal: ${9BAD}", "literal: ${9BAD}"},
		{"unterminated ref left alone", "broken: ${QRUN_SET", "broken: ${QRUN_SET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandEnv_MultilineYAML(t *testing.T) {
	t.Setenv("QRUN_SCHEDULE", "aws")
	t.Setenv("QRUN_LOG_LEVEL", "debug")

	input := `schedule: ${QRUN_SCHEDULE}
log_level: ${QRUN_LOG_LEVEL:-info}`
	want := `schedule: aws
log_level: debug`

	if got := ExpandEnv(input); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}
