package logger

import "wallet_session/internal/app/port"

// slogAdapter implements port.Logger on top of the package-level functions.
type slogAdapter struct{}

// NewSlogAdapter returns a port.Logger backed by the global slog logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

func (a *slogAdapter) Info(msg string, args ...any)  { Info(msg, args...) }
func (a *slogAdapter) Debug(msg string, args ...any) { Debug(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { Error(msg, args...) }

type nopLogger struct{}

// NewNop returns a port.Logger that discards everything.
func NewNop() port.Logger { return nopLogger{} }

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
