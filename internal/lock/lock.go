// Package lock keeps two gpubench runs from sharing a port on the same
// hosts. Each run takes a directory lock on every host with mkdir, which is
// atomic on any POSIX filesystem, and removes it when the run ends.
package lock

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/logger"
	"github.com/rileyhilliard/gpubench/internal/remote"
	"github.com/rileyhilliard/gpubench/internal/util"
	"golang.org/x/sync/errgroup"
)

// Exit codes of the acquire script.
const (
	exitHeld        = 3
	exitWriteFailed = 4
)

const (
	defaultDir            = "/tmp"
	defaultRetryInterval  = 2 * time.Second
	defaultCommandTimeout = 10 * time.Second
)

// Options configures lock acquisition. Zero values pick the defaults.
type Options struct {
	// Dir is the remote directory holding lock directories. Default /tmp.
	Dir string
	// Wait is how long to keep retrying a held lock. Zero tries once.
	Wait time.Duration
	// Stale breaks locks older than this. Zero never breaks a lock.
	Stale time.Duration
	// RetryInterval is the pause between attempts. Default 2s.
	RetryInterval time.Duration
	// CommandTimeout bounds each remote command. Default 10s.
	CommandTimeout time.Duration
	// Command is recorded in the lock info for whoever finds it held.
	Command string
	Logger  logger.Logger
}

func (o Options) withDefaults() Options {
	if o.Dir == "" {
		o.Dir = defaultDir
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = defaultRetryInterval
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = defaultCommandTimeout
	}
	if o.Logger == nil {
		o.Logger = logger.Noop()
	}
	return o
}

func (o Options) path(name string) string {
	return path.Join(o.Dir, name+".lock")
}

// Name is the lock name for a port.
func Name(port int) string {
	return fmt.Sprintf("gpubench-%d", port)
}

// Lock is a held lock on one host.
type Lock struct {
	Host string
	Dir  string
	Info *LockInfo

	runner  remote.Runner
	timeout time.Duration
	once    sync.Once
}

// Acquire takes the named lock on host, retrying while it is held until
// opts.Wait has passed. Stale locks are removed and retried immediately.
func Acquire(ctx context.Context, runner remote.Runner, host, name string, opts Options) (*Lock, error) {
	opts = opts.withDefaults()
	lockDir := opts.path(name)
	infoFile := path.Join(lockDir, "info.json")

	info := NewLockInfo(opts.Command)
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrLock, "Failed to serialize lock info", "")
	}

	acquireCmd := fmt.Sprintf(
		"mkdir %[1]s 2>/dev/null || exit %[4]d; printf '%%s\\n' %[3]s > %[2]s || { rm -rf %[1]s; exit %[5]d; }",
		util.ShellQuote(lockDir), util.ShellQuote(infoFile), util.ShellQuote(string(infoJSON)),
		exitHeld, exitWriteFailed)

	deadline := time.Now().Add(opts.Wait)
	for {
		res := runner.Run(ctx, host, acquireCmd, opts.CommandTimeout)
		switch {
		case res.OK():
			opts.Logger.Debug("locked %s on %s", lockDir, host)
			return &Lock{Host: host, Dir: lockDir, Info: info, runner: runner, timeout: opts.CommandTimeout}, nil
		case res.TimedOut:
			return nil, errors.New(errors.ErrTimeout,
				fmt.Sprintf("Timed out taking lock on %s: %s", host, res.Detail()), "")
		case res.Err != nil:
			return nil, errors.WrapWithCode(res.Err, errors.ErrSSH,
				fmt.Sprintf("Couldn't take lock on %s", host), "")
		case res.ExitCode == exitWriteFailed:
			return nil, errors.New(errors.ErrLock,
				fmt.Sprintf("Failed to write lock info on %s", host),
				fmt.Sprintf("Check that %s is writable on %s", opts.Dir, host))
		case res.ExitCode != exitHeld:
			return nil, errors.New(errors.ErrExec,
				fmt.Sprintf("Lock command failed on %s: %s", host, res.Detail()), "")
		}

		holder := readHolder(ctx, runner, host, infoFile, opts.CommandTimeout)
		if holder != nil && holder.Stale(opts.Stale) {
			opts.Logger.Warn("breaking stale lock on %s held by %s since %s", host, holder, holder.Started.Format(time.RFC3339))
			if err := forceRemove(ctx, runner, host, lockDir, opts.CommandTimeout); err == nil {
				continue
			}
		}

		if !time.Now().Before(deadline) {
			who := "unknown"
			if holder != nil {
				who = holder.String()
			}
			return nil, errors.New(errors.ErrLock,
				fmt.Sprintf("%s on %s is held by %s", name, host, who),
				fmt.Sprintf("Wait for that run to finish, use another --port, or remove %s on %s if it was abandoned.", lockDir, host))
		}

		opts.Logger.Debug("%s on %s is held, retrying in %s", name, host, opts.RetryInterval)
		select {
		case <-ctx.Done():
			return nil, errors.WrapWithCode(ctx.Err(), errors.ErrLock,
				fmt.Sprintf("Gave up waiting for %s on %s", name, host), "")
		case <-time.After(opts.RetryInterval):
		}
	}
}

// Release removes the lock. It runs even if ctx is already cancelled, and
// only the first call does anything.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	var err error
	l.once.Do(func() {
		err = forceRemove(context.WithoutCancel(ctx), l.runner, l.Host, l.Dir, l.timeout)
	})
	return err
}

// Holder reports whether the named lock is held on host and, when its info
// file is readable, by whom.
func Holder(ctx context.Context, runner remote.Runner, host, name string, opts Options) (bool, *LockInfo, error) {
	opts = opts.withDefaults()
	lockDir := opts.path(name)

	res := runner.Run(ctx, host, "test -d "+util.ShellQuote(lockDir), opts.CommandTimeout)
	switch {
	case res.TimedOut:
		return false, nil, errors.New(errors.ErrTimeout,
			fmt.Sprintf("Timed out checking lock on %s", host), "")
	case res.Err != nil:
		return false, nil, errors.WrapWithCode(res.Err, errors.ErrSSH,
			fmt.Sprintf("Couldn't check lock on %s", host), "")
	case res.ExitCode != 0:
		return false, nil, nil
	}
	return true, readHolder(ctx, runner, host, path.Join(lockDir, "info.json"), opts.CommandTimeout), nil
}

// ForceRelease removes the named lock on host no matter who holds it.
func ForceRelease(ctx context.Context, runner remote.Runner, host, name string, opts Options) error {
	opts = opts.withDefaults()
	return forceRemove(ctx, runner, host, opts.path(name), opts.CommandTimeout)
}

// readHolder returns the lock's info, or nil if it can't be read.
func readHolder(ctx context.Context, runner remote.Runner, host, infoFile string, timeout time.Duration) *LockInfo {
	res := runner.Run(ctx, host, "cat "+util.ShellQuote(infoFile)+" 2>/dev/null", timeout)
	if !res.OK() {
		return nil
	}
	info, err := ParseLockInfo([]byte(strings.TrimSpace(res.Stdout)))
	if err != nil {
		return nil
	}
	return info
}

func forceRemove(ctx context.Context, runner remote.Runner, host, dir string, timeout time.Duration) error {
	res := runner.Run(ctx, host, "rm -rf "+util.ShellQuote(dir), timeout)
	if !res.OK() {
		return errors.New(errors.ErrLock,
			fmt.Sprintf("Failed to remove lock directory %s on %s: %s", dir, host, res.Detail()),
			"Remove it by hand once the host is reachable.")
	}
	return nil
}

// Set is the locks held by one run.
type Set []*Lock

// AcquireAll takes the named lock on every host concurrently. Hosts that
// can't be reached are logged and skipped, since the run will report them
// anyway. If any lock is held by someone else, every lock taken so far is
// released and that error is returned.
func AcquireAll(ctx context.Context, runner remote.Runner, hosts []string, name string, opts Options) (Set, error) {
	opts = opts.withDefaults()
	locks := make([]*Lock, len(hosts))
	errs := make([]error, len(hosts))

	var g errgroup.Group
	for i, host := range hosts {
		g.Go(func() error {
			locks[i], errs[i] = Acquire(ctx, runner, host, name, opts)
			return nil
		})
	}
	_ = g.Wait()

	var (
		held     Set
		firstErr error
	)
	for i, err := range errs {
		switch {
		case err == nil:
			held = append(held, locks[i])
		case errors.IsCode(err, errors.ErrSSH), errors.IsCode(err, errors.ErrTimeout):
			opts.Logger.Warn("skipping lock on %s: %s", hosts[i], errors.Summary(err))
		case firstErr == nil:
			firstErr = err
		}
	}

	if firstErr != nil {
		_ = held.Release(ctx)
		return nil, firstErr
	}
	return held, nil
}

// Release releases every lock concurrently and returns the first failure.
func (s Set) Release(ctx context.Context) error {
	var g errgroup.Group
	for _, l := range s {
		g.Go(func() error { return l.Release(ctx) })
	}
	return g.Wait()
}
