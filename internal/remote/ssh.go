package remote

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/logger"
)

// SSHRunner runs commands over pooled x/crypto/ssh connections.
type SSHRunner struct {
	pool *Pool
	log  logger.Logger
}

// NewSSHRunner returns a runner backed by pool.
func NewSSHRunner(pool *Pool, log logger.Logger) *SSHRunner {
	if log == nil {
		log = logger.Noop()
	}
	return &SSHRunner{pool: pool, log: log}
}

// Run executes cmd on host. Waiting for a free session slot on host is
// bounded only by ctx; timeout starts once the slot is held and covers the
// dial plus the command.
func (r *SSHRunner) Run(ctx context.Context, host, cmd string, timeout time.Duration) Result {
	res := Result{Host: host, Command: cmd}

	queued := time.Now()
	release, err := r.pool.Acquire(ctx, host)
	if err != nil {
		res.Duration = time.Since(queued)
		res.ExitCode = StatusError
		res.Err = errors.WrapWithCode(err, errors.ErrExec,
			"Cancelled waiting for a session on "+host, "")
		return res
	}
	defer release()
	if wait := time.Since(queued); wait > time.Second {
		r.log.Debug("%s: waited %s for a session slot", host, wait.Round(time.Millisecond))
	}

	start := time.Now()
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	client, err := r.pool.Get(ctx, host)
	if err != nil {
		res.Duration = time.Since(start)
		if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			res.TimedOut = true
			res.ExitCode = StatusTimeout
			res.Err = errors.WrapWithCode(err, errors.ErrTimeout,
				"Timed out connecting to "+host, "")
			return res
		}
		res.ExitCode = StatusError
		res.Err = dialFailure(host, err)
		return res
	}

	r.log.Debug("%s$ %s", host, cmd)
	stdout, stderr, code, err := client.ExecContext(ctx, cmd)
	res.Stdout = string(stdout)
	res.Stderr = string(stderr)
	res.ExitCode = code
	res.Duration = time.Since(start)

	switch {
	case err == nil:
	case errors.IsCode(err, errors.ErrTimeout):
		res.TimedOut = true
		res.ExitCode = StatusTimeout
		res.Err = err
	default:
		res.ExitCode = StatusError
		res.Err = err
		if !client.Alive() {
			r.pool.evict(host, client)
		}
	}
	return res
}

// Close releases the pooled connections.
func (r *SSHRunner) Close() error {
	return r.pool.Close()
}
