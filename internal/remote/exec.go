package remote

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strconv"
	"time"

	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/logger"
)

// sshTransportFailure is the exit status OpenSSH uses for its own errors,
// as opposed to the remote command's.
const sshTransportFailure = 255

// ExecRunner runs commands through the system ssh binary, so it picks up
// whatever ControlMaster, ProxyJump, or agent setup the user already has.
type ExecRunner struct {
	// Binary is the ssh executable. Default "ssh".
	Binary string
	// ConnectTimeout is passed as -o ConnectTimeout. Zero leaves it unset.
	ConnectTimeout time.Duration
	// ExtraArgs go before the host argument.
	ExtraArgs []string
	Logger    logger.Logger
}

// NewExecRunner returns an ExecRunner using the ssh on PATH.
func NewExecRunner(connectTimeout time.Duration, log logger.Logger) *ExecRunner {
	return &ExecRunner{ConnectTimeout: connectTimeout, Logger: log}
}

func (r *ExecRunner) args(host, cmd string) []string {
	args := []string{"-o", "BatchMode=yes"}
	if r.ConnectTimeout > 0 {
		secs := int(r.ConnectTimeout.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		args = append(args, "-o", "ConnectTimeout="+strconv.Itoa(secs))
	}
	args = append(args, r.ExtraArgs...)
	return append(args, host, cmd)
}

// Run executes cmd on host via ssh. On timeout the local ssh process is
// killed, which drops the channel; the remote process is left to sshd.
func (r *ExecRunner) Run(ctx context.Context, host, cmd string, timeout time.Duration) Result {
	start := time.Now()
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	bin := r.Binary
	if bin == "" {
		bin = "ssh"
	}
	log := r.Logger
	if log == nil {
		log = logger.Noop()
	}

	res := Result{Host: host, Command: cmd}
	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, bin, r.args(host, cmd)...)
	c.Stdout = &stdout
	c.Stderr = &stderr
	// A killed ssh can leave grandchildren holding the pipes open.
	c.WaitDelay = time.Second

	log.Debug("%s$ %s", host, cmd)
	runErr := c.Run()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Duration = time.Since(start)

	if ctx.Err() != nil {
		res.TimedOut = true
		res.ExitCode = StatusTimeout
		res.Err = errors.WrapWithCode(ctx.Err(), errors.ErrTimeout,
			"Timed out running: "+cmd,
			"The remote process was abandoned. Raise --timeout if the host is just slow.")
		return res
	}

	if runErr == nil {
		return res
	}

	var exitErr *exec.ExitError
	if stderrors.As(runErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode == sshTransportFailure {
			res.ExitCode = StatusError
			res.Err = errors.WrapWithCode(stderrors.New(firstLine(res.Stderr)), errors.ErrSSH,
				"ssh to "+host+" failed",
				"Try `ssh "+host+"` by hand; BatchMode means no password prompts.")
		}
		return res
	}

	res.ExitCode = StatusError
	res.Err = errors.WrapWithCode(runErr, errors.ErrExec,
		"Couldn't run "+bin,
		"Make sure an ssh client is installed and on PATH.")
	return res
}
