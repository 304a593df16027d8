package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/rileyhilliard/gpubench/internal/errors"
	"golang.org/x/crypto/ssh"
)

// lockedBuffer lets a timed-out caller snapshot output while the session
// goroutine may still be writing to it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

// Exec runs a command on the remote host and returns the output.
// Exit code is -1 if the command couldn't be executed at all.
func (c *Client) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	return c.ExecContext(context.Background(), cmd)
}

// ExecContext runs a command on the remote host, giving up when ctx is done.
func (c *Client) ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, -1, timeoutError(err, cmd)
	}

	session, err := c.newSSHSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed, or the host's MaxSessions limit was hit.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf lockedBuffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	if err := session.Start(cmd); err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Failed to start command: %s", cmd),
			"Check if the command exists on the remote host.")
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case waitErr := <-done:
		code, execErr := exitStatus(waitErr, cmd)
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), code, execErr
	case <-ctx.Done():
		// Best effort: many sshd builds ignore signal requests, closing the
		// channel is what actually frees us.
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), -1, timeoutError(ctx.Err(), cmd)
	}
}

// exitStatus turns the result of session.Wait into an exit code.
// A non-zero remote exit is not an error.
func exitStatus(err error, cmd string) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	var missing *ssh.ExitMissingError
	if stderrors.As(err, &missing) {
		return -1, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Remote command ended without an exit status: %s", cmd),
			"The connection may have dropped mid-command.")
	}
	return -1, errors.WrapWithCode(err, errors.ErrExec,
		fmt.Sprintf("Failed to execute command: %s", cmd),
		"Check if the command exists on the remote host.")
}

func timeoutError(cause error, cmd string) error {
	return errors.WrapWithCode(cause, errors.ErrTimeout,
		fmt.Sprintf("Timed out running: %s", cmd),
		"The remote process was abandoned. Raise --timeout if the host is just slow.")
}
