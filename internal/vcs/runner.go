package vcs

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
)

// DefaultExecutable is the git binary looked up on PATH.
const DefaultExecutable = "git"

// Runner invokes the version-control tool with args and returns its
// standard output.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecRunner runs git as a child process against an existing working copy.
type ExecRunner struct {
	executable  string
	workDir     string
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewExecRunner returns a runner bound to workDir. An empty executable
// selects DefaultExecutable.
func NewExecRunner(executable, workDir string) *ExecRunner {
	if executable == "" {
		executable = DefaultExecutable
	}
	return &ExecRunner{
		executable:  executable,
		workDir:     workDir,
		execCommand: exec.CommandContext,
	}
}

// WorkDir returns the working copy the runner operates on.
func (r *ExecRunner) WorkDir() string {
	return r.workDir
}

// Run executes git with args. Paths are reported unquoted and interactive
// credential prompts are disabled so a missing credential fails fast.
func (r *ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-C", r.workDir, "-c", "core.quotepath=off"}, args...)

	var stdout, stderr bytes.Buffer
	cmd := r.execCommand(ctx, r.executable, full...) //nolint:gosec // G204: executable and args come from operator configuration
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	if err := cmd.Run(); err != nil {
		return "", &SyncError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.String(), nil
}
