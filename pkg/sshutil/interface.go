package sshutil

import "context"

// SSHClient is the subset of Client that command runners depend on.
// The real Client and the mock in sshutil/testing both satisfy it.
type SSHClient interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	Exec(cmd string) (stdout, stderr []byte, exitCode int, err error)

	// ExecContext is Exec bounded by ctx. When ctx ends first the remote
	// process is sent SIGKILL, the session is closed, and whatever output
	// arrived so far is returned with a TIMEOUT-coded error.
	ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error)

	// Alive reports whether the underlying connection can still open sessions.
	Alive() bool

	// Close closes the SSH connection.
	Close() error

	// GetHost returns the original host/alias used to connect.
	GetHost() string

	// GetAddress returns the resolved host:port address.
	GetAddress() string
}
