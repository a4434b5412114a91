package runtimetest

import "sync"

// LogEntry records a single call made to a RecordingConsole.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// RecordingConsole is a runtime.Console implementation that records every
// call instead of writing anywhere, so tests can assert on what a runner
// logged without parsing output.
type RecordingConsole struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewRecordingConsole creates an enabled recording console.
func NewRecordingConsole() *RecordingConsole {
	return &RecordingConsole{}
}

func (c *RecordingConsole) record(level, message string, fields map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, LogEntry{Level: level, Message: message, Fields: fields})
}

// Log records an info-level entry.
func (c *RecordingConsole) Log(message string, fields map[string]any) { c.record("info", message, fields) }

// Warn records a warn-level entry.
func (c *RecordingConsole) Warn(message string, fields map[string]any) { c.record("warn", message, fields) }

// Error records an error-level entry.
func (c *RecordingConsole) Error(message string, fields map[string]any) {
	c.record("error", message, fields)
}

// Enabled always reports true: recording consoles always capture.
func (c *RecordingConsole) Enabled() bool { return true }

// Entries returns a snapshot of everything recorded so far.
func (c *RecordingConsole) Entries() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}
