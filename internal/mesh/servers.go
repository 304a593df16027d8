package mesh

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/iperf"
	"github.com/rileyhilliard/gpubench/internal/logger"
	"github.com/rileyhilliard/gpubench/internal/remote"
	"golang.org/x/sync/errgroup"
)

const defaultReadyInterval = 200 * time.Millisecond

// Servers starts and stops the bandwidth server on each host.
type Servers struct {
	Runner  remote.Runner
	Tool    iperf.Tool
	Port    int
	Timeout time.Duration
	// Parallel caps concurrent hosts. Zero means all at once.
	Parallel int
	// ReadyWait, when set, polls Tool.ReadyCommand after a successful start
	// until it passes or the window runs out. Zero trusts the start command.
	ReadyWait     time.Duration
	ReadyInterval time.Duration
	Log           logger.Logger
	Observer      Observer
}

func (s *Servers) log() logger.Logger {
	if s.Log == nil {
		return logger.Noop()
	}
	return s.Log
}

func (s *Servers) observer() Observer {
	if s.Observer == nil {
		return NopObserver{}
	}
	return s.Observer
}

func (s *Servers) group() *errgroup.Group {
	g := &errgroup.Group{}
	if s.Parallel > 0 {
		g.SetLimit(s.Parallel)
	}
	return g
}

// StartAll launches a server on every host concurrently. Only hosts that
// failed appear in the returned map. A failure never stops the other hosts
// from being started.
func (s *Servers) StartAll(ctx context.Context, hosts []string) map[string]error {
	obs := s.observer()
	obs.PhaseStarted(PhaseStart, len(hosts))
	start := time.Now()
	s.log().Info("starting %s servers on %d hosts (port %d)", s.Tool.Name(), len(hosts), s.Port)

	var mu sync.Mutex
	failed := make(map[string]error)
	g := s.group()
	for _, host := range hosts {
		g.Go(func() error {
			err := s.start(ctx, host)
			if err != nil {
				s.log().Warn("error starting server on %s: %s", host, errors.Summary(err))
				mu.Lock()
				failed[host] = err
				mu.Unlock()
			}
			obs.HostDone(PhaseStart, host, err)
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	obs.PhaseDone(PhaseStart, elapsed)
	s.log().Info("servers started on %d/%d hosts in %s", len(hosts)-len(failed), len(hosts), elapsed.Round(time.Millisecond))
	return failed
}

func (s *Servers) start(ctx context.Context, host string) error {
	res := s.Runner.Run(ctx, host, s.Tool.ServerCommand(s.Port), s.Timeout)
	if !res.OK() {
		return resultError(res, "Couldn't start server on "+host)
	}
	if s.ReadyWait <= 0 {
		return nil
	}
	return s.waitReady(ctx, host)
}

// waitReady polls the ready command until it passes or ReadyWait elapses.
func (s *Servers) waitReady(ctx context.Context, host string) error {
	interval := s.ReadyInterval
	if interval <= 0 {
		interval = defaultReadyInterval
	}
	ctx, cancel := context.WithTimeout(ctx, s.ReadyWait)
	defer cancel()

	cmd := s.Tool.ReadyCommand(s.Port)
	for {
		res := s.Runner.Run(ctx, host, cmd, s.Timeout)
		if res.OK() {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.New(errors.ErrTimeout,
				"Server on "+host+" not ready after "+s.ReadyWait.String(),
				"The server may have exited right after launch; check the port is free.")
		case <-time.After(interval):
		}
	}
}

// StopAll asks every host to stop its server. Failures are logged and
// dropped; a host with nothing to stop is not an error. Runs even if ctx is
// already cancelled, since the servers are still out there.
func (s *Servers) StopAll(ctx context.Context, hosts []string) {
	ctx = context.WithoutCancel(ctx)
	obs := s.observer()
	obs.PhaseStarted(PhaseStop, len(hosts))
	start := time.Now()

	g := s.group()
	for _, host := range hosts {
		g.Go(func() error {
			res := s.Runner.Run(ctx, host, s.Tool.StopCommand(s.Port), s.Timeout)
			var err error
			if !res.OK() {
				err = resultError(res, "Couldn't stop server on "+host)
				s.log().Debug("teardown on %s: %s", host, res.Detail())
			}
			obs.HostDone(PhaseStop, host, err)
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	obs.PhaseDone(PhaseStop, elapsed)
	s.log().Info("servers stopped in %s", elapsed.Round(time.Millisecond))
}

// resultError converts a failed remote.Result into a structured error.
func resultError(res remote.Result, message string) error {
	switch {
	case res.TimedOut:
		return errors.New(errors.ErrTimeout, message+": timeout: "+res.Detail(),
			"Raise --timeout if the host is just slow.")
	case res.Err != nil:
		return errors.WrapWithCode(res.Err, errors.ErrSSH, message, "")
	}
	return errors.New(errors.ErrExec, message+": "+res.Detail(), "")
}
