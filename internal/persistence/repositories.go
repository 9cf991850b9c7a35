package persistence

import "context"

// MarkerRepository persists the last applied revision. Rows are only ever
// appended; the current marker is the most recently deployed row.
type MarkerRepository interface {
	// GetCurrent returns the most recent revision, or "" when no row exists.
	GetCurrent(ctx context.Context) (string, error)
	// SetCurrent appends a row for revision stamped with the current time.
	SetCurrent(ctx context.Context, revision string) error
	// History lists up to limit rows, newest first. limit <= 0 lists all rows.
	History(ctx context.Context, limit int) ([]VersionMarker, error)
	// EnsureTable creates the tracking table when it does not exist.
	EnsureTable(ctx context.Context) error
}
