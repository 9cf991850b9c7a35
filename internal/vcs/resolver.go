package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
)

// DefaultExtensions are the script extensions considered by default.
var DefaultExtensions = []string{".sql"}

// PathFilter restricts resolved paths to script files.
type PathFilter struct {
	// Dir limits results to paths beneath this repository-relative directory.
	// Empty matches the whole repository.
	Dir string

	// Extensions lists accepted file extensions, compared case-insensitively.
	// Empty accepts every file.
	Extensions []string
}

// Match reports whether the repository-relative path passes the filter.
func (f PathFilter) Match(p string) bool {
	if dir := strings.Trim(path.Clean("/"+f.Dir), "/"); dir != "" {
		if !strings.HasPrefix(p, dir+"/") {
			return false
		}
	}
	if len(f.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(p))
	for _, allowed := range f.Extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// GitResolver synchronizes a working copy with its remote and reports which
// script paths changed between two revisions.
type GitResolver struct {
	runner Runner
	filter PathFilter
	logger *slog.Logger
}

// NewGitResolver returns a resolver that drives runner.
func NewGitResolver(runner Runner, filter PathFilter, logger *slog.Logger) *GitResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitResolver{
		runner: runner,
		filter: filter,
		logger: logger.With("component", "git_resolver"),
	}
}

// SynchronizeLocalCopy fetches remote, switches to branch, and hard-resets
// the working copy to remote/branch, removing untracked files.
func (r *GitResolver) SynchronizeLocalCopy(ctx context.Context, remote, branch string) error {
	if err := checkRef("remote", remote); err != nil {
		return err
	}
	if err := checkRef("branch", branch); err != nil {
		return err
	}

	steps := [][]string{
		{"remote", "update", remote},
		{"checkout", branch},
		{"reset", "--hard", remote + "/" + branch},
		{"clean", "-fd"},
	}
	for _, args := range steps {
		out, err := r.runner.Run(ctx, args...)
		if err != nil {
			return fmt.Errorf("synchronize working copy: %w", err)
		}
		r.logger.Debug("git step completed", "args", strings.Join(args, " "), "output", strings.TrimSpace(out))
	}

	r.logger.Info("working copy synchronized", "remote", remote, "branch", branch)
	return nil
}

// HeadRevision returns the revision at the tip of the checked-out branch.
func (r *GitResolver) HeadRevision(ctx context.Context) (string, error) {
	args := []string{"rev-parse", "HEAD"}
	out, err := r.runner.Run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("resolve head revision: %w", err)
	}
	revision := strings.TrimSpace(out)
	if revision == "" {
		return "", &SyncError{Args: args, Err: errors.New("empty revision")}
	}
	return revision, nil
}

// DiffPaths returns script paths added, modified, copied, or renamed between
// from and to, in the order git reports them. Deleted paths are never
// returned. An empty from lists every script present at to. An empty to
// means HEAD.
func (r *GitResolver) DiffPaths(ctx context.Context, from, to string) ([]string, error) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if to == "" {
		to = "HEAD"
	}
	if err := checkRevision(to); err != nil {
		return nil, err
	}
	if from == to {
		return nil, nil
	}

	var args []string
	if from == "" {
		args = []string{"ls-tree", "-r", "--name-only", "-z", to}
	} else {
		if err := checkRevision(from); err != nil {
			return nil, err
		}
		args = []string{"diff", "--name-only", "-z", "--diff-filter=ACMR", from + ".." + to}
	}

	out, err := r.runner.Run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("diff revisions: %w", err)
	}

	// -z keeps paths verbatim: no C-quoting and no trimming.
	var paths []string
	for _, p := range strings.Split(out, "\x00") {
		if p == "" || !r.filter.Match(p) {
			continue
		}
		paths = append(paths, p)
	}

	r.logger.Debug("resolved changed paths", "from", from, "to", to, "count", len(paths))
	return paths, nil
}

func checkRevision(revision string) error {
	if strings.HasPrefix(revision, "-") || strings.ContainsAny(revision, " \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidRevision, revision)
	}
	return nil
}

func checkRef(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %s name is required", ErrInvalidRevision, kind)
	}
	return checkRevision(name)
}
