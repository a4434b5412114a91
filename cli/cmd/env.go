package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/fiberflow/cli/config"
	"github.com/justapithecus/fiberflow/log"
	"github.com/justapithecus/fiberflow/metrics"
	"github.com/justapithecus/fiberflow/runtime"
	"github.com/justapithecus/fiberflow/schedule"
)

// scenarioEnv bundles the root runner, its metrics collector, and the
// logger a scenario command runs against.
type scenarioEnv struct {
	cfg       *config.Config
	root      *runtime.Runner[struct{}]
	collector *metrics.Collector
	logger    *log.Logger
}

// loadConfig resolves the scenario config: the file named by --config, or
// the built-in defaults when the flag is absent.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.Default(), nil
}

// newScenarioEnv builds a root runner per the resolved config, with a zap
// console and a metrics collector attached.
func newScenarioEnv(c *cli.Context) (*scenarioEnv, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	rootCfg := runtime.NewRunnerConfig()
	rootCfg.EventsEnabled.Store(cfg.EventsEnabled)
	if cfg.Concurrency > 0 {
		rootCfg.Concurrency.Store(int64(cfg.Concurrency))
	}

	collector := metrics.NewCollector("qrun")
	logger := log.NewLogger("qrun").WithEnabled(cfg.LogLevel != "silent")
	root := runtime.NewRoot(runtime.RootOptions[struct{}]{
		Console: logger,
		Config:  rootCfg,
		Metrics: collector,
	})
	return &scenarioEnv{cfg: cfg, root: root, collector: collector, logger: logger}, nil
}

// systemDeps adapts the production Time/Random capabilities to
// schedule.Deps for schedule dry runs outside a runner.
type systemDeps struct {
	t runtime.Time
	r runtime.Random
}

func (d systemDeps) Now() time.Time      { return d.t.Now() }
func (d systemDeps) NextRandom() float64 { return d.r.Next() }

func newSystemDeps() systemDeps {
	return systemDeps{t: runtime.SystemTime{}, r: runtime.NewCryptoRandom()}
}

// namedSchedule resolves a config/flag schedule name to a retry schedule
// with the given base delay.
func namedSchedule(name string, base time.Duration) (schedule.Schedule[time.Duration, error], error) {
	switch name {
	case "aws":
		return schedule.RetryStrategyAWS[error](), nil
	case "exponential":
		return schedule.Exponential[error](base, 2), nil
	case "linear":
		return schedule.Linear[error](base), nil
	case "fibonacci":
		return schedule.Fibonacci[error](base), nil
	case "spaced":
		return schedule.Spaced[error](base), nil
	default:
		return nil, fmt.Errorf("unknown schedule %q (must be aws, exponential, linear, fibonacci, or spaced)", name)
	}
}
