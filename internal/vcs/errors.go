package vcs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSync indicates that a version-control invocation failed.
	ErrSync = errors.New("version control command failed")

	// ErrInvalidRevision indicates a revision that cannot be passed to git safely.
	ErrInvalidRevision = errors.New("invalid revision")
)

// SyncError describes a failed git invocation.
type SyncError struct {
	Args   []string // arguments passed to the executable
	Stderr string   // captured standard error, trimmed
	Err    error    // exit status or start failure
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is reports ErrSync as the error category.
func (e *SyncError) Is(target error) bool {
	return target == ErrSync
}
