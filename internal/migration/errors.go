package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrUpgradeFailed indicates that the database rejected a batch.
	ErrUpgradeFailed = errors.New("upgrade failed")

	// ErrMarkerNotStored indicates that a batch committed but the new marker
	// could not be recorded.
	ErrMarkerNotStored = errors.New("marker not stored after commit")
)

// UpgradeFailure wraps the database error that aborted a batch.
type UpgradeFailure struct {
	Revision string
	Mode     Mode
	Err      error
}

// Error implements the error interface.
func (e *UpgradeFailure) Error() string {
	return fmt.Sprintf("%v: %s batch for revision %s: %v", ErrUpgradeFailed, e.Mode, e.Revision, e.Err)
}

// Unwrap returns the database error.
func (e *UpgradeFailure) Unwrap() error {
	return e.Err
}

// Is reports ErrUpgradeFailed as the error category.
func (e *UpgradeFailure) Is(target error) bool {
	return target == ErrUpgradeFailed
}
