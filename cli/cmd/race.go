package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/fiberflow/cli/render"
	"github.com/justapithecus/fiberflow/runtime"
)

// RaceReport is the rendered result of the race scenario.
type RaceReport struct {
	Runners int    `json:"runners"`
	Winner  string `json:"winner"`
	Elapsed string `json:"elapsed"`
	Error   string `json:"error,omitempty"`
}

// RaceCommand returns the race scenario: n sleepers with staggered delays,
// first to wake wins and the rest are aborted.
func RaceCommand() *cli.Command {
	return &cli.Command{
		Name:  "race",
		Usage: "Race staggered sleepers; losers are aborted",
		Flags: append(ScenarioFlags(),
			&cli.IntFlag{Name: "runners", Usage: "Number of competing tasks", Value: 3},
			&cli.DurationFlag{Name: "base", Usage: "Sleep of the fastest task; each next task doubles it", Value: 50 * time.Millisecond},
		),
		Action: raceAction,
	}
}

func raceAction(c *cli.Context) error {
	env, err := newScenarioEnv(c)
	if err != nil {
		return err
	}
	defer env.root.Dispose(context.Background())

	n := c.Int("runners")
	if n < 1 {
		return fmt.Errorf("--runners must be positive, got %d", n)
	}
	base := c.Duration("base")

	started := make(chan struct{}, n)
	tasks := make([]runtime.Task[struct{}, string], n)
	for i := 0; i < n; i++ {
		i := i
		tasks[i] = func(r *runtime.Runner[struct{}]) (string, error) {
			started <- struct{}{}
			if err := runtime.Sleep(r, base<<i); err != nil {
				return "", err
			}
			return fmt.Sprintf("runner-%d", i+1), nil
		}
	}

	type raceResult struct {
		winner string
		err    error
	}
	begun := time.Now()
	done := make(chan raceResult, 1)
	go func() {
		winner, raceErr := runtime.Race(env.root, tasks...)
		done <- raceResult{winner: winner, err: raceErr}
	}()

	// Sample the tree while every competitor is still mid-flight, so the
	// TUI has something better to show than an empty, settled root.
	for i := 0; i < n; i++ {
		<-started
	}
	midRace := env.root.Snapshot()

	res := <-done
	report := RaceReport{Runners: n, Winner: res.winner, Elapsed: time.Since(begun).Round(time.Millisecond).String()}
	if res.err != nil {
		report.Error = res.err.Error()
	}
	env.logger.Log("race settled", map[string]any{"winner": res.winner})

	r, renderErr := render.NewRenderer(c)
	if renderErr != nil {
		return renderErr
	}
	if c.Bool("tui") {
		return r.RenderTUI("tree", midRace)
	}
	return r.Render(report)
}
