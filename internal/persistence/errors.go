package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectivity is returned when the target database cannot be reached.
	ErrConnectivity = errors.New("persistence: database unreachable")

	// ErrQuery is returned when the database rejects a statement against the
	// tracking table.
	ErrQuery = errors.New("persistence: query rejected")

	// ErrInvalidTableName is returned when a tracking table name is not a plain
	// (optionally qualified) identifier.
	ErrInvalidTableName = errors.New("persistence: invalid table name")
)

// DatabaseError wraps a driver error with the operation that produced it.
type DatabaseError struct {
	Kind      error  // ErrConnectivity or ErrQuery
	Operation string // e.g. "open", "read marker", "insert marker"
	Query     string // statement text, when applicable
	Err       error
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	return fmt.Sprintf("%v during %s: %v", e.Kind, e.Operation, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// Is reports whether the error belongs to the target category.
func (e *DatabaseError) Is(target error) bool {
	return target == e.Kind
}

// NewConnectivityError reports that the database could not be reached.
func NewConnectivityError(operation string, err error) *DatabaseError {
	return &DatabaseError{Kind: ErrConnectivity, Operation: operation, Err: err}
}

// NewQueryError reports that the database rejected a statement.
func NewQueryError(operation, query string, err error) *DatabaseError {
	return &DatabaseError{Kind: ErrQuery, Operation: operation, Query: query, Err: err}
}
