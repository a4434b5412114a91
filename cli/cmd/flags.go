// Package cmd provides the qrun demo CLI commands: small canned scenarios
// that exercise the runtime and schedule packages end to end.
package cmd

import "github.com/urfave/cli/v2"

// Flags shared by every scenario command.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag is accepted by every command; table output is never
	// colored, so it has no effect.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output (output is already uncolored)",
	}

	// TUIFlag renders the scenario's result in a Bubble Tea view instead of
	// the plain renderer. Commands without a TUI view reject it explicitly.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Render the result in an interactive TUI",
	}

	// ConfigFlag points at a qrun.yaml file supplying scenario defaults.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a qrun.yaml config file",
	}
)

// ScenarioFlags returns the flags every scenario command carries. TUIFlag is
// always included so unsupported commands can reject it with a specific
// message rather than a generic flag-parse error.
func ScenarioFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
		ConfigFlag,
	}
}
