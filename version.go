// Package fiberflow is the module root: a structured-concurrency runtime
// (see runtime) paired with a composable retry/repeat scheduling algebra
// (see schedule).
package fiberflow

// Version is the canonical module version, surfaced by cmd/qrun's version
// command.
const Version = "0.1.0"
