// Package config handles YAML config file loading for the qrun demo CLI.
package config

// Config represents a qrun.yaml configuration file. All values are optional
// and act as defaults for qrun flags; CLI flags always override config
// values.
type Config struct {
	// Concurrency, when positive, is stored as the root runner's concurrency
	// cap for demo scenarios. No CLI flag overrides it.
	Concurrency int `yaml:"concurrency"`

	// EventsEnabled turns on childAdded/stateChanged/childRemoved event
	// bubbling for demo runs.
	EventsEnabled bool `yaml:"events_enabled"`

	// Schedule is the name of the schedule the retry and schedule commands
	// use when --schedule is not given: one of "aws", "exponential",
	// "linear", "fibonacci" or "spaced".
	Schedule string `yaml:"schedule"`

	// LogLevel is consulted only for the value "silent", which makes the
	// demo CLI's console report Enabled() == false; any other value leaves
	// it enabled. Log output is not filtered by level.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Concurrency:   1,
		EventsEnabled: false,
		Schedule:      "exponential",
		LogLevel:      "info",
	}
}
