package cmd

import (
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/fiberflow/cli/render"
	"github.com/justapithecus/fiberflow/schedule"
)

// ScheduleStep is one emission in a ScheduleReport.
type ScheduleStep struct {
	Step   int    `json:"step"`
	Output string `json:"output"`
	Delay  string `json:"delay"`
}

// ScheduleReport is the rendered result of a schedule dry run.
type ScheduleReport struct {
	Schedule  string         `json:"schedule"`
	Steps     []ScheduleStep `json:"steps"`
	Exhausted bool           `json:"exhausted"`
}

// ScheduleCommand returns the schedule dry-run: step a named schedule
// without running any task, printing each emitted delay.
func ScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Dry-run a named schedule and print its emitted delays",
		Flags: append(ScenarioFlags(),
			&cli.StringFlag{Name: "schedule", Usage: "Schedule name: aws, exponential, linear, fibonacci, spaced"},
			&cli.DurationFlag{Name: "base", Usage: "Base delay for the schedule", Value: 100 * time.Millisecond},
			&cli.IntFlag{Name: "steps", Usage: "Maximum steps to take", Value: 10},
		),
		Action: scheduleAction,
	}
}

func scheduleAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for schedule dry runs", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	name := c.String("schedule")
	if name == "" {
		name = cfg.Schedule
	}
	sched, err := namedSchedule(name, c.Duration("base"))
	if err != nil {
		return err
	}

	report := ScheduleReport{Schedule: name}
	step := sched(newSystemDeps())
	for i := 0; i < c.Int("steps"); i++ {
		out, delay, stepErr := step(nil)
		if stepErr != nil {
			if errors.Is(stepErr, schedule.ErrDone) {
				report.Exhausted = true
				break
			}
			return stepErr
		}
		report.Steps = append(report.Steps, ScheduleStep{
			Step:   i + 1,
			Output: out.String(),
			Delay:  delay.String(),
		})
	}

	r, renderErr := render.NewRenderer(c)
	if renderErr != nil {
		return renderErr
	}
	return r.Render(report)
}
