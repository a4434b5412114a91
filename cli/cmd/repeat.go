package cmd

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/fiberflow/cli/render"
	"github.com/justapithecus/fiberflow/runtime"
	"github.com/justapithecus/fiberflow/schedule"
)

// RepeatReport is the rendered result of the repeat scenario.
type RepeatReport struct {
	Runs     int      `json:"runs"`
	Interval string   `json:"interval"`
	Ticks    []string `json:"ticks"`
	Error    string   `json:"error,omitempty"`
}

// RepeatCommand returns the repeat scenario: a counter task rerun on a
// spaced schedule until the run budget is exhausted.
func RepeatCommand() *cli.Command {
	return &cli.Command{
		Name:  "repeat",
		Usage: "Rerun a task on a fixed interval for a bounded number of runs",
		Flags: append(ScenarioFlags(),
			&cli.IntFlag{Name: "runs", Usage: "Number of reruns after the first", Value: 3},
			&cli.DurationFlag{Name: "interval", Usage: "Delay between runs", Value: 25 * time.Millisecond},
		),
		Action: repeatAction,
	}
}

func repeatAction(c *cli.Context) error {
	env, err := newScenarioEnv(c)
	if err != nil {
		return err
	}
	defer env.root.Dispose(context.Background())

	interval := c.Duration("interval")
	report := RepeatReport{Interval: interval.String()}

	ticks := 0
	task := func(r *runtime.Runner[struct{}]) (int, error) {
		ticks++
		report.Ticks = append(report.Ticks, r.Time().Now().Format(time.RFC3339Nano))
		return ticks, nil
	}

	sched := schedule.Take(schedule.Spaced[int](interval), c.Int("runs"))
	runs, err := runtime.Repeat(env.root, task, sched, runtime.RepeatOptions[int]{
		OnRepeat: func(run int, delay time.Duration, value int) {
			env.logger.Log("repeating", map[string]any{"run": run, "delay": delay.String()})
		},
	})
	report.Runs = runs
	if err != nil {
		report.Error = err.Error()
	}

	r, renderErr := render.NewRenderer(c)
	if renderErr != nil {
		return renderErr
	}
	if c.Bool("tui") {
		return r.RenderTUI("stats", env.collector.Snapshot())
	}
	return r.Render(report)
}
