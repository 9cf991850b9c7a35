package migration

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// PathLister lists the script paths changed between two revisions.
type PathLister interface {
	DiffPaths(ctx context.Context, from, to string) ([]string, error)
}

// Applier turns a revision range into one transactional batch and runs it.
type Applier struct {
	paths   PathLister
	scripts ScriptSource
	db      Database
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewApplier returns an Applier reading changes through paths and scripts
// and executing them against db.
func NewApplier(paths PathLister, scripts ScriptSource, db Database, logger *slog.Logger) (*Applier, error) {
	if paths == nil {
		return nil, errors.New("applier: path lister is required")
	}
	if scripts == nil {
		return nil, errors.New("applier: script source is required")
	}
	if db == nil {
		return nil, errors.New("applier: database is required")
	}
	return &Applier{
		paths:   paths,
		scripts: scripts,
		db:      db,
		logger:  defaultLogger(logger),
		now:     time.Now,
	}, nil
}

// SetCommandTimeout bounds how long the server may take to run a batch.
// Zero leaves the bound to the driver.
func (a *Applier) SetCommandTimeout(timeout time.Duration) {
	if timeout < 0 {
		timeout = 0
	}
	a.timeout = timeout
}

// Resolve returns the scripts pending between rng.From and rng.To in diff
// order. Blank scripts are kept so that callers can report them.
func (a *Applier) Resolve(ctx context.Context, rng RevisionRange) (ChangeSet, error) {
	logger := componentLogger(ctx, a.logger, "applier", "resolve", "from", rng.From, "to", rng.To)

	paths, err := a.paths.DiffPaths(ctx, rng.From, rng.To)
	if err != nil {
		logger.Error("diff failed", "error", err, "error_kind", ErrorKind(err))
		return ChangeSet{Range: rng}, err
	}

	scripts, err := a.scripts.LoadAll(paths)
	if err != nil {
		logger.Error("load scripts failed", "error", err, "error_kind", ErrorKind(err))
		return ChangeSet{Range: rng}, err
	}

	logger.Debug("change set resolved", "scripts", len(scripts))
	return ChangeSet{Range: rng, Scripts: scripts}, nil
}

// Execute runs the change set as one batch labeled with target. A change
// set without valid scripts never reaches the database and is reported as a
// no-op. Database rejections come back as *UpgradeFailure; nothing is sent
// to undo a failed batch because the open transaction is discarded when the
// session closes.
func (a *Applier) Execute(ctx context.Context, changes ChangeSet, target string, mode Mode) (result ApplyResult, err error) {
	logger := componentLogger(ctx, a.logger, "applier", "execute", "revision", target, "mode", mode.String())

	result.Batch = BuildBatch(a.db.Dialect(), target, changes.Scripts, mode)
	if result.Batch.Empty() {
		result.NoOp = true
		logger.Debug("nothing to execute", "skipped", len(result.Batch.Skipped))
		return result, nil
	}

	session, err := a.db.Open(ctx)
	if err != nil {
		logger.Error("open session failed", "error", err, "error_kind", ErrorKind(err))
		return result, err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn("close session failed", "error", closeErr)
		}
	}()

	if err := session.Probe(ctx); err != nil {
		logger.Error("connectivity probe failed", "error", err, "error_kind", ErrorKind(err))
		return result, err
	}

	execCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	started := a.now()
	if err := session.ExecBatch(execCtx, result.Batch.Text); err != nil {
		failure := &UpgradeFailure{Revision: target, Mode: mode, Err: err}
		logger.Error("batch rejected", "error", err, "error_kind", ErrorKind(failure))
		return result, failure
	}
	elapsed := a.now().Sub(started)

	result.Executed = []ExecutedUnit{{
		Revision: target,
		Mode:     mode,
		Scripts:  result.Batch.Scripts,
		Duration: elapsed,
	}}
	logger.Info("batch executed", "scripts", len(result.Batch.Scripts), "duration", elapsed)
	return result, nil
}

// Apply resolves rng and executes the result. rng.To must name a revision
// because it labels the transaction.
func (a *Applier) Apply(ctx context.Context, rng RevisionRange, mode Mode) (ApplyResult, error) {
	if rng.To == "" {
		return ApplyResult{}, errors.New("applier: target revision is required")
	}
	changes, err := a.Resolve(ctx, rng)
	if err != nil {
		return ApplyResult{}, err
	}
	return a.Execute(ctx, changes, rng.To, mode)
}
