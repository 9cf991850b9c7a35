package migration

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/schemasync/internal/logging"
	"github.com/example/schemasync/internal/persistence"
	"github.com/example/schemasync/internal/script"
	"github.com/example/schemasync/internal/vcs"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func componentLogger(ctx context.Context, base *slog.Logger, component, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx, defaultLogger(base))

	pairs := []any{"component", component}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps the failure categories of a run to a stable logging label.
// Engine-level categories win over the persistence cause they wrap.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrMarkerNotStored):
		return "marker_not_stored"
	case errors.Is(err, ErrUpgradeFailed):
		return "upgrade_failed"
	case errors.Is(err, persistence.ErrConnectivity):
		return "connectivity"
	case errors.Is(err, persistence.ErrQuery):
		return "query"
	case errors.Is(err, persistence.ErrInvalidTableName):
		return "invalid_table_name"
	case errors.Is(err, vcs.ErrInvalidRevision):
		return "invalid_revision"
	case errors.Is(err, vcs.ErrSync):
		return "sync"
	case errors.Is(err, script.ErrMissingScript):
		return "missing_script"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "unexpected"
}
