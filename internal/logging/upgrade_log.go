package logging

import (
	"context"
	"fmt"
	"log/slog"
)

// UpgradeLog receives the severity-tagged outcome messages of a run.
type UpgradeLog interface {
	WriteInformation(format string, args ...any)
	WriteWarning(format string, args ...any)
	WriteError(format string, args ...any)
}

// SlogUpgradeLog writes UpgradeLog messages as slog records.
type SlogUpgradeLog struct {
	logger *slog.Logger
}

// NewSlogUpgradeLog returns an UpgradeLog backed by logger.
func NewSlogUpgradeLog(logger *slog.Logger) *SlogUpgradeLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogUpgradeLog{logger: logger}
}

// With returns a log whose records carry the given attributes.
func (l *SlogUpgradeLog) With(args ...any) UpgradeLog {
	return &SlogUpgradeLog{logger: l.logger.With(args...)}
}

func (l *SlogUpgradeLog) WriteInformation(format string, args ...any) {
	l.write(slog.LevelInfo, format, args)
}

func (l *SlogUpgradeLog) WriteWarning(format string, args ...any) {
	l.write(slog.LevelWarn, format, args)
}

func (l *SlogUpgradeLog) WriteError(format string, args ...any) {
	l.write(slog.LevelError, format, args)
}

func (l *SlogUpgradeLog) write(level slog.Level, format string, args []any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.logger.Log(context.Background(), level, msg)
}

// With attaches attributes to log when it supports them and returns it
// unchanged otherwise.
func With(log UpgradeLog, args ...any) UpgradeLog {
	if withLog, ok := log.(interface{ With(...any) UpgradeLog }); ok {
		return withLog.With(args...)
	}
	return log
}

// Discard is an UpgradeLog that drops every message.
var Discard UpgradeLog = discard{}

type discard struct{}

func (discard) WriteInformation(string, ...any) {}
func (discard) WriteWarning(string, ...any)     {}
func (discard) WriteError(string, ...any)       {}
