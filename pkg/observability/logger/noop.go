package logger

import "context"

// nopLogger discards everything. Used as the default when a component is
// constructed without a logger.
type nopLogger struct{}

// Nop returns a Logger that discards all entries.
func Nop() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(string, ...any)                 {}
func (nopLogger) Info(string, ...any)                  {}
func (nopLogger) Warn(string, ...any)                  {}
func (nopLogger) Error(string, ...any)                 {}
func (n nopLogger) With(...any) Logger                 { return n }
func (n nopLogger) WithContext(context.Context) Logger { return n }
