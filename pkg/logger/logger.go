// Package logger is the structured logger of the host and the plugins it
// runs. Records go to a text file through slog.
package logger

import (
	"context"
	"log/slog"
)

// LogFilePermissions defines the file permissions for log files (owner read/write only).
const LogFilePermissions = 0o600

// Logger provides structured logging interface.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs info-level messages with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Error logs error-level messages with optional key-value pairs.
	Error(msg string, keysAndValues ...any)

	// With returns a new logger with additional key-value pairs.
	With(keysAndValues ...any) Logger
}

// SlogAdapter implements Logger on top of a slog.Handler.
type SlogAdapter struct {
	logger  *slog.Logger
	handler *CustomHandler
}

// NewSlogAdapter wraps an arbitrary slog.Handler.
func NewSlogAdapter(handler slog.Handler) *SlogAdapter {
	adapter := &SlogAdapter{logger: slog.New(handler)}

	if custom, ok := handler.(*CustomHandler); ok {
		adapter.handler = custom
	}

	return adapter
}

func (l *SlogAdapter) log(level slog.Level, msg string, kv []any) {
	l.logger.Log(context.Background(), level, msg, kv...)
}

func (l *SlogAdapter) Debug(msg string, keysAndValues ...any) { l.log(slog.LevelDebug, msg, keysAndValues) }
func (l *SlogAdapter) Info(msg string, keysAndValues ...any)  { l.log(slog.LevelInfo, msg, keysAndValues) }
func (l *SlogAdapter) Error(msg string, keysAndValues ...any) { l.log(slog.LevelError, msg, keysAndValues) }

// With returns a new logger with additional base key-value pairs.
//
//nolint:ireturn // With is intended to return an interface for chaining
func (l *SlogAdapter) With(keysAndValues ...any) Logger {
	return &SlogAdapter{
		logger:  l.logger.With(keysAndValues...),
		handler: l.handler,
	}
}

// Close closes the underlying file, if any.
func (l *SlogAdapter) Close() error {
	if l.handler == nil {
		return nil
	}

	return l.handler.Close()
}

// NoOpLogger discards everything. Plugins and tests get it when no log file
// is configured.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (*NoOpLogger) Debug(string, ...any) {}
func (*NoOpLogger) Info(string, ...any)  {}
func (*NoOpLogger) Error(string, ...any) {}

//
//nolint:ireturn // With is intended to return an interface for chaining
func (n *NoOpLogger) With(...any) Logger {
	return n
}
