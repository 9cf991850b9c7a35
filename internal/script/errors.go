package script

import (
	"errors"
	"fmt"
)

// ErrMissingScript indicates that a resolved path could not be read from the
// working copy.
var ErrMissingScript = errors.New("script missing from working copy")

// MissingScriptError reports the path that could not be read.
type MissingScriptError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *MissingScriptError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrMissingScript, e.Path, e.Err)
}

// Unwrap returns the underlying file system error.
func (e *MissingScriptError) Unwrap() error {
	return e.Err
}

// Is reports ErrMissingScript as the error category.
func (e *MissingScriptError) Is(target error) bool {
	return target == ErrMissingScript
}
