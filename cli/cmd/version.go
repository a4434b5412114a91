package cmd

import (
	"github.com/urfave/cli/v2"

	fiberflow "github.com/justapithecus/fiberflow"
	"github.com/justapithecus/fiberflow/cli/render"
)

// VersionResponse is the rendered payload of the version command.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// VersionCommand returns the version command.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ScenarioFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version", 1)
		}
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}
		return r.Render(VersionResponse{Version: fiberflow.Version, Commit: commit})
	}
}
