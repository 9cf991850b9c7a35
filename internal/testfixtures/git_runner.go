package testfixtures

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// GitReply is the scripted response for one git invocation.
type GitReply struct {
	Output string
	Err    error
}

// GitRunner is a scripted stand-in for the git executable. Replies are keyed
// by the space-joined argument list; unknown invocations fail.
type GitRunner struct {
	mu      sync.Mutex
	replies map[string]GitReply
	calls   []string
}

// NewGitRunner returns a runner with no scripted replies.
func NewGitRunner() *GitRunner {
	return &GitRunner{replies: make(map[string]GitReply)}
}

// On scripts the reply for the given argument list.
func (r *GitRunner) On(args string, output string) *GitRunner {
	return r.Reply(args, GitReply{Output: output})
}

// Fail scripts an error for the given argument list.
func (r *GitRunner) Fail(args string, err error) *GitRunner {
	return r.Reply(args, GitReply{Err: err})
}

// Reply scripts an arbitrary reply.
func (r *GitRunner) Reply(args string, reply GitReply) *GitRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies[args] = reply
	return r
}

// Run records the call and returns the scripted reply.
func (r *GitRunner) Run(_ context.Context, args ...string) (string, error) {
	key := strings.Join(args, " ")

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, key)
	reply, ok := r.replies[key]
	if !ok {
		return "", fmt.Errorf("unexpected git invocation: git %s", key)
	}
	return reply.Output, reply.Err
}

// Calls returns the argument lists seen so far, in order.
func (r *GitRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Called reports whether args was invoked.
func (r *GitRunner) Called(args string) bool {
	for _, call := range r.Calls() {
		if call == args {
			return true
		}
	}
	return false
}
