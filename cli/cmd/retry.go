package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/fiberflow/cli/render"
	"github.com/justapithecus/fiberflow/runtime"
	"github.com/justapithecus/fiberflow/schedule"
)

// RetryAttempt is one retry decision in a RetryReport.
type RetryAttempt struct {
	Attempt int    `json:"attempt"`
	Delay   string `json:"delay"`
	Cause   string `json:"cause"`
}

// RetryReport is the rendered result of the retry scenario.
type RetryReport struct {
	Schedule string         `json:"schedule"`
	Attempts int            `json:"attempts"`
	Retries  []RetryAttempt `json:"retries"`
	Value    string         `json:"value,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// RetryCommand returns the retry scenario: a task that fails a configured
// number of times before succeeding, driven by a named retry schedule.
func RetryCommand() *cli.Command {
	return &cli.Command{
		Name:  "retry",
		Usage: "Run a flaky task under a retry schedule",
		Flags: append(ScenarioFlags(),
			&cli.IntFlag{Name: "failures", Usage: "Failures before the task succeeds", Value: 2},
			&cli.IntFlag{Name: "max-attempts", Usage: "Schedule budget (take n)", Value: 5},
			&cli.StringFlag{Name: "schedule", Usage: "Schedule name: aws, exponential, linear, fibonacci, spaced"},
			&cli.DurationFlag{Name: "base", Usage: "Base delay for the schedule", Value: 100 * time.Millisecond},
		),
		Action: retryAction,
	}
}

func retryAction(c *cli.Context) error {
	env, err := newScenarioEnv(c)
	if err != nil {
		return err
	}
	defer env.root.Dispose(context.Background())

	name := c.String("schedule")
	if name == "" {
		name = env.cfg.Schedule
	}
	sched, err := namedSchedule(name, c.Duration("base"))
	if err != nil {
		return err
	}

	failures := c.Int("failures")
	calls := 0
	flaky := func(r *runtime.Runner[struct{}]) (string, error) {
		calls++
		if calls <= failures {
			return "", fmt.Errorf("transient failure %d", calls)
		}
		return "succeeded", nil
	}

	report := RetryReport{Schedule: name}
	val, err := runtime.Retry(env.root, flaky, schedule.Take(sched, c.Int("max-attempts")), runtime.RetryOptions{
		OnRetry: func(attempt int, delay time.Duration, cause error) {
			env.logger.Warn("retrying", map[string]any{"attempt": attempt, "delay": delay.String()})
			report.Retries = append(report.Retries, RetryAttempt{
				Attempt: attempt,
				Delay:   delay.String(),
				Cause:   cause.Error(),
			})
		},
	})
	report.Attempts = calls
	if err != nil {
		report.Error = err.Error()
		var retryErr *runtime.RetryError
		if !errors.As(err, &retryErr) {
			return err
		}
	} else {
		report.Value = val
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
