// Package remote runs shell commands on named hosts with a hard deadline.
//
// Two transports are provided: SSHRunner keeps one pooled x/crypto/ssh
// connection per host, and ExecRunner shells out to the system ssh binary.
// Neither retries; a failed or timed-out command is reported once in the
// Result and the caller decides what to do with it.
package remote

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/gpubench/internal/errors"
)

// Exit statuses that are not real process exit codes.
const (
	// StatusError means the command never produced an exit code
	// (dial failure, session failure, dropped connection).
	StatusError = -1
	// StatusTimeout means the deadline passed and the remote process was
	// abandoned.
	StatusTimeout = -2
)

// Result is what came back from one remote command.
type Result struct {
	Host     string
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Err      error
	Duration time.Duration
}

// OK reports whether the command ran to completion with exit code 0.
func (r Result) OK() bool {
	return r.Err == nil && !r.TimedOut && r.ExitCode == 0
}

// Detail is a one-line description of why a result is not OK, preferring
// stderr over the transport error. Returns "" for OK results.
func (r Result) Detail() string {
	switch {
	case r.OK():
		return ""
	case r.TimedOut:
		return "timed out after " + r.Duration.Round(time.Millisecond).String()
	case r.Err != nil:
		return errors.Summary(r.Err)
	}
	if msg := firstLine(r.Stderr); msg != "" {
		return msg
	}
	return "exit status " + strconv.Itoa(r.ExitCode)
}

// Runner executes a command on a host. Once the command is started (any
// queueing for a session on host is done) implementations must return no
// later than timeout, whatever the remote process does. A zero timeout
// means only ctx bounds the call.
type Runner interface {
	Run(ctx context.Context, host, cmd string, timeout time.Duration) Result
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, host, cmd string, timeout time.Duration) Result

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, host, cmd string, timeout time.Duration) Result {
	return f(ctx, host, cmd, timeout)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
