// Package testing provides a scripted remote.Runner for tests that
// coordinate many hosts without SSH.
package testing

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/rileyhilliard/gpubench/internal/remote"
)

// Response is a canned command result. Delay is how long the command
// "runs"; if it exceeds the caller's timeout the result is a timeout.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
	Delay    time.Duration
}

// Handler computes a response for one call.
type Handler func(host, cmd string) Response

// Call records one invocation.
type Call struct {
	Host    string
	Command string
	Timeout time.Duration
}

type rule struct {
	host    string
	pattern *regexp.Regexp
	handler Handler
}

// FakeRunner answers commands from rules registered with On and OnFunc.
// Rules are checked newest first; the first whose host (empty matches any)
// and pattern match wins. Unmatched commands exit 127.
type FakeRunner struct {
	mu          sync.Mutex
	rules       []rule
	unreachable map[string]bool
	calls       []Call
	inFlight    int
	maxInFlight int
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{unreachable: make(map[string]bool)}
}

var _ remote.Runner = (*FakeRunner)(nil)

// On answers commands on host matching pattern with resp.
func (f *FakeRunner) On(host, pattern string, resp Response) {
	f.OnFunc(host, pattern, func(string, string) Response { return resp })
}

// OnFunc answers commands on host matching pattern with h.
func (f *FakeRunner) OnFunc(host, pattern string, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{host: host, pattern: regexp.MustCompile(pattern), handler: h})
}

// Unreachable makes every command on host fail like a refused connection.
func (f *FakeRunner) Unreachable(host string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreachable[host] = true
}

// Calls returns every call so far, in arrival order.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsMatching counts calls whose command matches pattern.
func (f *FakeRunner) CallsMatching(pattern string) int {
	re := regexp.MustCompile(pattern)
	n := 0
	for _, c := range f.Calls() {
		if re.MatchString(c.Command) {
			n++
		}
	}
	return n
}

// MaxInFlight is the highest number of concurrent Run calls observed.
func (f *FakeRunner) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *FakeRunner) lookup(host, cmd string) (Handler, bool) {
	for i := len(f.rules) - 1; i >= 0; i-- {
		r := f.rules[i]
		if r.host != "" && r.host != host {
			continue
		}
		if r.pattern.MatchString(cmd) {
			return r.handler, true
		}
	}
	return nil, false
}

// Run implements remote.Runner.
func (f *FakeRunner) Run(ctx context.Context, host, cmd string, timeout time.Duration) remote.Result {
	start := time.Now()
	f.mu.Lock()
	f.calls = append(f.calls, Call{Host: host, Command: cmd, Timeout: timeout})
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	down := f.unreachable[host]
	h, ok := f.lookup(host, cmd)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	res := remote.Result{Host: host, Command: cmd}
	if down {
		res.ExitCode = remote.StatusError
		res.Err = errors.New("dial tcp " + host + ":22: connect: connection refused")
		res.Duration = time.Since(start)
		return res
	}

	resp := Response{ExitCode: 127, Stderr: "command not found"}
	if ok {
		resp = h(host, cmd)
	}

	if resp.Delay > 0 {
		wait := resp.Delay
		timedOut := false
		if timeout > 0 && timeout < wait {
			wait = timeout
			timedOut = true
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timedOut = true
		}
		timer.Stop()
		if timedOut {
			res.TimedOut = true
			res.ExitCode = remote.StatusTimeout
			res.Err = context.DeadlineExceeded
			res.Duration = time.Since(start)
			return res
		}
	}

	res.Stdout = resp.Stdout
	res.Stderr = resp.Stderr
	res.ExitCode = resp.ExitCode
	res.Err = resp.Err
	if resp.Err != nil && resp.ExitCode == 0 {
		res.ExitCode = remote.StatusError
	}
	res.Duration = time.Since(start)
	return res
}
