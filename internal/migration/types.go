package migration

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/schemasync/internal/script"
)

// DiffResolver is the narrow version-control surface a run needs.
type DiffResolver interface {
	// SynchronizeLocalCopy makes the working copy match remote/branch exactly.
	SynchronizeLocalCopy(ctx context.Context, remote, branch string) error
	// HeadRevision returns the revision at the tip of the working copy.
	HeadRevision(ctx context.Context) (string, error)
	// DiffPaths lists changed script paths; an empty from lists all scripts.
	DiffPaths(ctx context.Context, from, to string) ([]string, error)
}

// ScriptSource reads scripts from the working copy.
type ScriptSource interface {
	LoadAll(paths []string) ([]script.Script, error)
}

// BatchDialect renders the transaction markers around a batch.
type BatchDialect interface {
	BeginBatch(label string) string
	CommitBatch(label string) string
	RollbackBatch(label string) string
}

// Session is one acquired database connection.
type Session interface {
	Probe(ctx context.Context) error
	ExecBatch(ctx context.Context, batch string) error
	Close() error
}

// Database opens sessions against the target database.
type Database interface {
	Open(ctx context.Context) (Session, error)
	Dialect() BatchDialect
}

// Mode selects how a batch ends.
type Mode int

const (
	// ModeCommit keeps the batch's effects.
	ModeCommit Mode = iota
	// ModeSimulate runs the batch and rolls it back.
	ModeSimulate
)

func (m Mode) String() string {
	if m == ModeSimulate {
		return "simulate"
	}
	return "commit"
}

// RevisionRange is the pair of revisions a change set is computed between.
// An empty From means no marker has been recorded yet; an empty To means
// the head of the working copy.
type RevisionRange struct {
	From string
	To   string
}

// ChangeSet is the ordered list of scripts pending between two revisions.
type ChangeSet struct {
	Range   RevisionRange
	Scripts []script.Script
}

// Empty reports whether no script paths were resolved.
func (c ChangeSet) Empty() bool {
	return len(c.Scripts) == 0
}

// Names returns the script names in order.
func (c ChangeSet) Names() []string {
	names := make([]string, 0, len(c.Scripts))
	for _, s := range c.Scripts {
		names = append(names, s.Name)
	}
	return names
}

// ExecutedUnit is one batch that the database accepted.
type ExecutedUnit struct {
	Revision string
	Mode     Mode
	Scripts  []string
	Duration time.Duration
}

// ApplyResult describes what the Applier did with a change set.
type ApplyResult struct {
	Batch    Batch
	NoOp     bool
	Executed []ExecutedUnit
}

// State is a step in a run's lifecycle.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateNoChangesNeeded
	StateApplying
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateNoChangesNeeded:
		return "no_changes_needed"
	case StateApplying:
		return "applying"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Operation names reported in results.
const (
	OperationUpgrade  = "upgrade"
	OperationDryRun   = "dry-run"
	OperationMarkOnly = "mark-only"
	OperationStatus   = "status"
)

// Result is the outcome of one Engine operation.
type Result struct {
	RunID     uuid.UUID
	Operation string
	State     State
	From      string // marker the run started from; "" when absent
	To        string // target revision
	Scripts   []string
	Executed  []ExecutedUnit
	Err       error
}

// Successful reports whether the operation completed, including no-ops.
func (r Result) Successful() bool {
	return r.Err == nil && r.State != StateFailed
}

// RunOptions selects what Engine.Run does after synchronizing.
type RunOptions struct {
	DryRun   bool
	PrintAll bool
	MarkOnly bool

	// ConnectionLabel and WorkingDir only appear in the run-details log.
	ConnectionLabel string
	WorkingDir      string
}

// Status summarises the pending work without touching the schema.
type Status struct {
	Current string
	Head    string
	Pending []string
}
