package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/rileyhilliard/gpubench/internal/errors"
	"golang.org/x/crypto/ssh"
)

const defaultDialTimeout = 10 * time.Second

// Client is an SSH connection plus the name it was dialed by.
type Client struct {
	*ssh.Client
	Host    string // host or alias as given to Dial
	Address string // resolved host:port
}

// DialOptions configures Dial. The zero value dials with a 10s timeout,
// no host key checking, and the default ~/.ssh paths; use
// DefaultDialOptions for strict checking.
type DialOptions struct {
	// Timeout caps TCP connect plus the SSH handshake.
	Timeout time.Duration
	// StrictHostKey verifies host keys against KnownHosts.
	StrictHostKey bool
	// ConfigPath is the ssh_config to resolve aliases from.
	ConfigPath string
	// KnownHosts is the known_hosts file used when StrictHostKey is set.
	KnownHosts string
}

// DefaultDialOptions is a 10s timeout with strict host key checking.
func DefaultDialOptions() DialOptions {
	return DialOptions{Timeout: defaultDialTimeout, StrictHostKey: true}
}

// Dial connects to host, resolving it through the SSH config first (see
// Resolve). Every failure is an ErrSSH error with a suggestion.
func Dial(host string, opts DialOptions) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultDialTimeout
	}
	if opts.KnownHosts == "" {
		opts.KnownHosts = filepath.Join(homeDir(), ".ssh", "known_hosts")
	}

	target := Resolve(host, opts.ConfigPath)
	auth := collectAuth(target.IdentityFile)
	if len(auth.methods) == 0 {
		msg := "No SSH keys or agent to log in with"
		suggestion := "Check your keys are loaded: ssh-add -l"
		if len(auth.encrypted) > 0 {
			msg = "Found SSH key(s) but they're encrypted: " + strings.Join(auth.encrypted, ", ")
			suggestion = addKeysSuggestion(auth.encrypted)
		}
		return nil, errors.New(errors.ErrSSH, msg, suggestion)
	}

	hostKeys, err := hostKeyCallback(opts.StrictHostKey, opts.KnownHosts)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't read known_hosts",
			"Check permissions on ~/.ssh, or set ssh.strict_host_key: false")
	}

	config := &ssh.ClientConfig{
		User:            target.User,
		Auth:            auth.methods,
		HostKeyCallback: hostKeys,
		Timeout:         opts.Timeout,
	}

	address := target.Address()
	conn, err := net.DialTimeout("tcp", address, opts.Timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach %s at %s", host, address),
			suggestionForDialError(err))
	}

	// NewClientConn has no timeout of its own.
	_ = conn.SetDeadline(time.Now().Add(opts.Timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		var mismatch *HostKeyMismatchError
		if stderrors.As(err, &mismatch) {
			return nil, errors.New(errors.ErrSSH, mismatch.Error(), mismatch.Suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with %s failed", host),
			suggestionForHandshakeError(err, auth.encrypted))
	}
	_ = conn.SetDeadline(time.Time{})

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    host,
		Address: address,
	}, nil
}

// Close closes the connection. Closing a nil connection is a no-op.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the host or alias given to Dial.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port.
func (c *Client) GetAddress() string {
	return c.Address
}

// Alive sends an OpenSSH keepalive request, which fails fast on a dead
// transport without opening a session.
func (c *Client) Alive() bool {
	if c.Client == nil {
		return false
	}
	_, _, err := c.Client.SendRequest("keepalive@openssh.com", true, nil)
	return err == nil
}

func (c *Client) newSSHSession() (*ssh.Session, error) {
	if c.Client == nil {
		return nil, stderrors.New("connection closed")
	}
	return c.Client.NewSession()
}

func suggestionForDialError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Is sshd running on that node? Try: ssh <host>"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "Can't route to the host. Check the cluster network."
	case strings.Contains(msg, "timeout"):
		return "Connection timed out. The node may be down or firewalled."
	case strings.Contains(msg, "no such host"):
		return "Hostname didn't resolve. Check spelling and /etc/hosts."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error, encrypted []string) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"), strings.Contains(msg, "no supported methods"):
		if len(encrypted) > 0 {
			return addKeysSuggestion(encrypted)
		}
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	case strings.Contains(msg, "host key"):
		return "Host key issue. Try connecting once by hand: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}
