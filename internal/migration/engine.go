package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/example/schemasync/internal/logging"
	"github.com/example/schemasync/internal/persistence"
)

// Defaults for the remote and branch a run synchronizes with.
const (
	DefaultRemote = "origin"
	DefaultBranch = "master"
)

// EngineConfig wires an Engine's collaborators.
type EngineConfig struct {
	Resolver DiffResolver
	Applier  *Applier
	Markers  persistence.MarkerRepository

	// Log receives the operator-facing outcome messages. Defaults to Logger.
	Log    logging.UpgradeLog
	Logger *slog.Logger

	// NewRunID issues an identifier per operation. Defaults to uuid.New.
	NewRunID func() uuid.UUID

	Remote string
	Branch string
}

// Engine decides whether an upgrade is required and drives it through
// resolution, execution, and marker persistence.
type Engine struct {
	resolver DiffResolver
	applier  *Applier
	markers  persistence.MarkerRepository
	log      logging.UpgradeLog
	logger   *slog.Logger
	newRunID func() uuid.UUID
	remote   string
	branch   string
}

// NewEngine validates config and returns an Engine.
func NewEngine(config EngineConfig) (*Engine, error) {
	if config.Resolver == nil {
		return nil, errors.New("engine: resolver is required")
	}
	if config.Applier == nil {
		return nil, errors.New("engine: applier is required")
	}
	if config.Markers == nil {
		return nil, errors.New("engine: marker repository is required")
	}

	logger := defaultLogger(config.Logger)
	log := config.Log
	if log == nil {
		log = logging.NewSlogUpgradeLog(logger)
	}
	newRunID := config.NewRunID
	if newRunID == nil {
		newRunID = uuid.New
	}
	remote := config.Remote
	if remote == "" {
		remote = DefaultRemote
	}
	branch := config.Branch
	if branch == "" {
		branch = DefaultBranch
	}

	return &Engine{
		resolver: config.Resolver,
		applier:  config.Applier,
		markers:  config.Markers,
		log:      log,
		logger:   logger,
		newRunID: newRunID,
		remote:   remote,
		branch:   branch,
	}, nil
}

// run tracks one operation's lifecycle.
type run struct {
	result Result
	logger *slog.Logger
	log    logging.UpgradeLog
}

func (e *Engine) begin(ctx context.Context, operation, from, to string) *run {
	id := e.newRunID()
	return &run{
		result: Result{RunID: id, Operation: operation, State: StateIdle, From: from, To: to},
		logger: componentLogger(ctx, e.logger, "engine", operation, "run_id", id.String()),
		log:    logging.With(e.log, "run_id", id.String()),
	}
}

func (r *run) transition(next State) {
	if r.result.State == next {
		return
	}
	r.logger.Debug("state transition", "from", r.result.State.String(), "to", next.String())
	r.result.State = next
}

func (r *run) fail(err error) (Result, error) {
	r.transition(StateFailed)
	r.result.Err = err
	r.logger.Error("run failed", "error", err, "error_kind", ErrorKind(err))
	return r.result, err
}

func (r *run) succeed(state State) (Result, error) {
	r.transition(state)
	return r.result, nil
}

// IsUpgradeRequired reports whether any script changed between current and
// the head of the working copy.
func (e *Engine) IsUpgradeRequired(ctx context.Context, current string) (bool, error) {
	changes, err := e.applier.Resolve(ctx, RevisionRange{From: current})
	if err != nil {
		return false, err
	}
	return !changes.Empty(), nil
}

// DryRun executes the scripts pending between current and target and rolls
// them back. The marker is never touched. With verbose set the log also
// receives each script's full contents.
func (e *Engine) DryRun(ctx context.Context, current, target string, verbose bool) (Result, error) {
	r := e.begin(ctx, OperationDryRun, current, target)
	return e.dryRun(ctx, r, current, target, verbose)
}

func (e *Engine) dryRun(ctx context.Context, r *run, current, target string, verbose bool) (Result, error) {
	r.transition(StateResolving)
	target, err := e.resolveTarget(ctx, target)
	if err != nil {
		r.log.WriteError("Dry run failed: %v", err)
		return r.fail(err)
	}
	r.result.To = target

	changes, err := e.applier.Resolve(ctx, RevisionRange{From: current, To: target})
	if err != nil {
		r.log.WriteError("Dry run failed: %v", err)
		return r.fail(err)
	}
	r.result.Scripts = changes.Names()

	if changes.Empty() {
		r.log.WriteInformation("No new scripts need to be executed - completing.")
		return r.succeed(StateNoChangesNeeded)
	}

	r.log.WriteInformation("Dry run: %d script(s) pending for revision %s", len(changes.Scripts), target)
	for _, s := range changes.Scripts {
		if !s.Valid() {
			r.log.WriteInformation("  %s (blank, skipped)", s.Name)
			continue
		}
		r.log.WriteInformation("  %s (%s)", s.Name, s.ShortChecksum())
		if verbose {
			r.log.WriteInformation("%s", s.Contents)
		}
	}

	r.transition(StateApplying)
	applied, err := e.applier.Execute(ctx, changes, target, ModeSimulate)
	if err != nil {
		r.log.WriteError("Dry run failed: %v", err)
		return r.fail(err)
	}
	r.result.Executed = applied.Executed

	if applied.NoOp {
		r.log.WriteInformation("No new scripts need to be executed - completing.")
		return r.succeed(StateNoChangesNeeded)
	}

	r.log.WriteInformation("Dry run successful; all changes were rolled back")
	r.log.WriteWarning("Sequence and identity values consumed by the dry run are not rolled back")
	return r.succeed(StateSucceeded)
}

// PerformUpgrade synchronizes the working copy, applies the scripts pending
// between current and target, and records target as the new marker once the
// server has committed them. An empty target means the synchronized head.
func (e *Engine) PerformUpgrade(ctx context.Context, current, target string) (Result, error) {
	r := e.begin(ctx, OperationUpgrade, current, target)
	r.transition(StateResolving)
	if err := e.resolver.SynchronizeLocalCopy(ctx, e.remote, e.branch); err != nil {
		r.log.WriteError("Git commands failed to run: %v", err)
		return r.fail(err)
	}
	return e.upgrade(ctx, r, current, target)
}

func (e *Engine) upgrade(ctx context.Context, r *run, current, target string) (Result, error) {
	r.transition(StateResolving)
	target, err := e.resolveTarget(ctx, target)
	if err != nil {
		r.log.WriteError("Upgrade failed: %v", err)
		return r.fail(err)
	}
	r.result.To = target

	changes, err := e.applier.Resolve(ctx, RevisionRange{From: current, To: target})
	if err != nil {
		r.log.WriteError("Upgrade failed: %v", err)
		return r.fail(err)
	}
	r.result.Scripts = changes.Names()

	if changes.Empty() {
		r.log.WriteInformation("No new scripts need to be executed - completing.")
		return r.succeed(StateNoChangesNeeded)
	}
	return e.commit(ctx, r, changes)
}

// commit executes a non-empty change set and records its target. The
// tracking table is read first so that a batch is never committed when its
// marker could not be stored.
func (e *Engine) commit(ctx context.Context, r *run, changes ChangeSet) (Result, error) {
	target := changes.Range.To
	r.log.WriteInformation("Beginning database upgrade")
	for _, s := range changes.Scripts {
		r.log.WriteInformation("  %s", s.Name)
	}

	if _, err := e.markers.GetCurrent(ctx); err != nil {
		r.log.WriteError("Could not read the database version; no scripts were executed: %v", err)
		return r.fail(err)
	}

	r.transition(StateApplying)
	applied, err := e.applier.Execute(ctx, changes, target, ModeCommit)
	if err != nil {
		r.log.WriteError("Upgrade failed: %v", err)
		return r.fail(err)
	}
	r.result.Executed = applied.Executed

	if err := e.markers.SetCurrent(ctx, target); err != nil {
		err = fmt.Errorf("%w: revision %s: %w", ErrMarkerNotStored, target, err)
		r.log.WriteError("Scripts were committed but the database version could not be recorded; run with --mark-only once the tracking table is reachable: %v", err)
		return r.fail(err)
	}

	r.log.WriteInformation("Upgrade successful")
	r.log.WriteInformation("Database updated to %s", target)
	return r.succeed(StateSucceeded)
}

// UpdateMarkerOnly records target as the current marker without executing
// any script. An empty target means the head of the working copy.
func (e *Engine) UpdateMarkerOnly(ctx context.Context, target string) (Result, error) {
	r := e.begin(ctx, OperationMarkOnly, "", target)
	return e.markOnly(ctx, r, target)
}

func (e *Engine) markOnly(ctx context.Context, r *run, target string) (Result, error) {
	r.transition(StateApplying)
	target, err := e.resolveTarget(ctx, target)
	if err != nil {
		r.log.WriteError("Update failed: %v", err)
		return r.fail(err)
	}
	r.result.To = target

	if err := e.markers.SetCurrent(ctx, target); err != nil {
		r.log.WriteError("Update failed: %v", err)
		return r.fail(err)
	}

	r.log.WriteInformation("Database update successful")
	r.log.WriteInformation("Database version marked as %s without executing scripts", target)
	return r.succeed(StateSucceeded)
}

// Run is the full command-line flow: read the marker, synchronize the
// working copy, log the run details, then mark, dry-run, or upgrade.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (Result, error) {
	operation := OperationUpgrade
	switch {
	case opts.MarkOnly:
		operation = OperationMarkOnly
	case opts.DryRun:
		operation = OperationDryRun
	}
	r := e.begin(ctx, operation, "", "")

	r.transition(StateResolving)
	current, err := e.markers.GetCurrent(ctx)
	if err != nil {
		r.log.WriteError("Could not read the database version: %v", err)
		return r.fail(err)
	}
	r.result.From = current

	if err := e.resolver.SynchronizeLocalCopy(ctx, e.remote, e.branch); err != nil {
		r.log.WriteError("Git commands failed to run: %v", err)
		return r.fail(err)
	}

	head, err := e.resolver.HeadRevision(ctx)
	if err != nil {
		r.log.WriteError("Git commands failed to run: %v", err)
		return r.fail(err)
	}
	r.result.To = head

	e.logRunDetails(r.log, opts, current, head)

	switch {
	case opts.MarkOnly:
		return e.markOnly(ctx, r, head)
	case opts.DryRun:
		return e.dryRun(ctx, r, current, head, opts.PrintAll)
	}

	changes, err := e.applier.Resolve(ctx, RevisionRange{From: current, To: head})
	if err != nil {
		r.log.WriteError("Upgrade failed: %v", err)
		return r.fail(err)
	}
	r.result.Scripts = changes.Names()
	if changes.Empty() {
		r.log.WriteInformation("Database already at newest version. Upgrade is not required.")
		return r.succeed(StateNoChangesNeeded)
	}
	return e.commit(ctx, r, changes)
}

// Status synchronizes the working copy and reports the pending scripts.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	r := e.begin(ctx, OperationStatus, "", "")
	status, err := e.status(ctx)
	if err != nil {
		r.logger.Error("status failed", "error", err, "error_kind", ErrorKind(err))
		return Status{}, err
	}
	r.logger.Debug("status resolved", "current", status.Current, "head", status.Head, "pending", len(status.Pending))
	return status, nil
}

func (e *Engine) status(ctx context.Context) (Status, error) {
	current, err := e.markers.GetCurrent(ctx)
	if err != nil {
		return Status{}, err
	}
	if err := e.resolver.SynchronizeLocalCopy(ctx, e.remote, e.branch); err != nil {
		return Status{}, err
	}
	head, err := e.resolver.HeadRevision(ctx)
	if err != nil {
		return Status{}, err
	}
	changes, err := e.applier.Resolve(ctx, RevisionRange{From: current, To: head})
	if err != nil {
		return Status{}, err
	}
	return Status{Current: current, Head: head, Pending: changes.Names()}, nil
}

func (e *Engine) logRunDetails(log logging.UpgradeLog, opts RunOptions, current, head string) {
	if current == "" {
		current = "<none>"
	}
	if opts.ConnectionLabel != "" {
		log.WriteInformation("Connection: %s", opts.ConnectionLabel)
	}
	if opts.WorkingDir != "" {
		log.WriteInformation("Working directory: %s", opts.WorkingDir)
	}
	log.WriteInformation("Database version: %s", current)
	log.WriteInformation("Repository HEAD: %s", head)
}

func (e *Engine) resolveTarget(ctx context.Context, target string) (string, error) {
	if target != "" {
		return target, nil
	}
	return e.resolver.HeadRevision(ctx)
}
