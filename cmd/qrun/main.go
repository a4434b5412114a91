// Package main provides the qrun demo CLI: canned scenarios exercising the
// fiberflow runtime and schedule packages.
//
// Usage:
//
//	qrun <command> [options]
//
// Every command is self-contained; nothing is persisted and nothing leaves
// the process.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	fiberflow "github.com/justapithecus/fiberflow"
	"github.com/justapithecus/fiberflow/cli/cmd"
)

// commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "qrun",
		Usage:          "fiberflow structured-concurrency demo CLI",
		Version:        fmt.Sprintf("%s (commit: %s)", fiberflow.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.RetryCommand(),
			cmd.RepeatCommand(),
			cmd.RaceCommand(),
			cmd.ScheduleCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors; this
		// branch catches anything that wasn't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit() and prints anything
// with a real message.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
