package logging

import "log/slog"

// EnableTrace turns on very chatty debug logs (pipeline transitions, cache hits).
// Set by a TRACE log level.
var EnableTrace = false

// Trace logs at DEBUG level, but only if EnableTrace is true.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if EnableTrace {
		logger.Debug(msg, args...)
	}
}

// TraceDefault logs to the default logger if EnableTrace is true.
func TraceDefault(msg string, args ...any) {
	if EnableTrace {
		slog.Debug(msg, args...)
	}
}
