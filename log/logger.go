// Package log provides structured logging for a runtime tree.
//
// Two logger variants are available:
//   - Logger: non-sugared zap.Logger for the runtime's hot paths (high
//     performance, structured fields).
//   - SugaredLogger: printf-style logging for the demo CLI and debug surfaces.
//
// *Logger satisfies runtime.Console directly, so it doubles as the runner's
// Console dependency.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging, tagged with a runner's identity.
//
// Use this for core runtime paths where performance matters. For CLI/debug
// surfaces, use Sugar() to get a SugaredLogger.
type Logger struct {
	zap     *zap.Logger
	enabled bool
}

// SugaredLogger provides printf-style logging for CLI and debug surfaces.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a new logger labeled with a root runner ID.
// Output defaults to os.Stderr. The logger starts enabled.
func NewLogger(rootID string) *Logger {
	return newLoggerWithWriter(rootID, os.Stderr)
}

// WithOutput returns a new logger with a different output writer.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return &Logger{
		zap:     l.zap.WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core { return core })),
		enabled: l.enabled,
	}
}

// WithEnabled returns a new logger whose Enabled() reports the given value.
// A disabled logger still writes (Console.Enabled is consulted by callers
// that want to skip expensive field construction, not by Logger itself).
func (l *Logger) WithEnabled(enabled bool) *Logger {
	return &Logger{zap: l.zap, enabled: enabled}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
}

func newLoggerWithWriter(rootID string, w io.Writer) *Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)

	zapLogger := zap.New(core).With(zap.String("root_id", rootID))
	return &Logger{zap: zapLogger, enabled: true}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message. Log, which runtime.Console requires, delegates
// here.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Log is an alias for Info, satisfying the runtime.Console interface's
// Log/Warn/Error trio.
func (l *Logger) Log(message string, fields map[string]any) {
	l.Info(message, fields)
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// Enabled reports whether this logger is the active console for its runner.
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs a debug message with printf-style formatting.
func (s *SugaredLogger) Debugf(template string, args ...any) {
	s.sugar.Debugf(template, args...)
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) {
	s.sugar.Warnf(template, args...)
}

// Errorf logs an error message with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) {
	s.sugar.Errorf(template, args...)
}

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
