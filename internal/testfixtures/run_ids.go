package testfixtures

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

var runIDNamespace = uuid.MustParse("6f1c3f0e-8d0b-4c56-9b7a-2f4a4e0d5c11")

// RunIDs produces deterministic run identifiers for tests.
type RunIDs struct {
	mu      sync.Mutex
	counter uint64
	issued  []uuid.UUID
}

// NewRunIDs constructs an empty generator.
func NewRunIDs() *RunIDs {
	return &RunIDs{}
}

// Next returns the next identifier in the sequence.
func (g *RunIDs) Next() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	id := uuid.NewSHA1(runIDNamespace, []byte(strconv.FormatUint(g.counter, 10)))
	g.issued = append(g.issued, id)
	return id
}

// NextFunc exposes Next as a function suitable for dependency injection.
func (g *RunIDs) NextFunc() func() uuid.UUID {
	if g == nil {
		return uuid.New
	}
	return g.Next
}

// Issued returns every identifier handed out so far.
func (g *RunIDs) Issued() []uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]uuid.UUID(nil), g.issued...)
}
