// Package testing provides an in-memory SSHClient for tests that need to
// exercise command runners without a real sshd.
package testing

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	gberrors "github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/pkg/sshutil"
)

// CommandResponse defines a canned response for a command pattern.
// Delay holds the command open before it answers, so timeouts can be tested.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
	Delay    time.Duration
	// Drop marks the connection dead once the command answers, as if the
	// link went away mid-command.
	Drop bool
}

type patternResponse struct {
	re   *regexp.Regexp
	resp CommandResponse
}

// MockClient simulates an SSH connection. Commands are matched exactly
// first, then against registered regex patterns in registration order.
// Unmatched commands exit 127 like a missing binary.
type MockClient struct {
	mu       sync.Mutex
	host     string
	closed   bool
	dead     bool
	exact    map[string]CommandResponse
	patterns []patternResponse
	calls    []string
}

// NewMockClient creates a mock client for host.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:  host,
		exact: make(map[string]CommandResponse),
	}
}

var _ sshutil.SSHClient = (*MockClient)(nil)

// SetCommandResponse registers a response for an exact command string.
func (m *MockClient) SetCommandResponse(cmd string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exact[cmd] = resp
}

// SetPatternResponse registers a response for commands matching pattern.
func (m *MockClient) SetPatternResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, patternResponse{re: regexp.MustCompile(pattern), resp: resp})
}

// SetDead makes Alive report false, as if the transport dropped.
func (m *MockClient) SetDead(dead bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dead = dead
}

// Calls returns every command passed to Exec/ExecContext.
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Exec runs cmd with no deadline.
func (m *MockClient) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	return m.ExecContext(context.Background(), cmd)
}

// ExecContext answers cmd from the registered responses, honouring Delay
// against ctx the way the real client honours its deadline.
func (m *MockClient) ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, -1, errors.New("connection closed")
	}
	m.calls = append(m.calls, cmd)
	resp, ok := m.exact[cmd]
	if !ok {
		resp = CommandResponse{ExitCode: 127, Stderr: []byte("command not found")}
		for _, p := range m.patterns {
			if p.re.MatchString(cmd) {
				resp = p.resp
				break
			}
		}
	}
	m.mu.Unlock()

	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, nil, -1, gberrors.WrapWithCode(ctx.Err(), gberrors.ErrTimeout,
				"Timed out running: "+cmd, "")
		}
	}

	if resp.Drop {
		m.SetDead(true)
	}
	if resp.Error != nil {
		return nil, nil, -1, resp.Error
	}
	return resp.Stdout, resp.Stderr, resp.ExitCode, nil
}

// Alive reports whether the mock is open and not marked dead.
func (m *MockClient) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && !m.dead
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns host:22.
func (m *MockClient) GetAddress() string {
	return m.host + ":22"
}
