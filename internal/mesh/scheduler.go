package mesh

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/iperf"
	"github.com/rileyhilliard/gpubench/internal/logger"
	"github.com/rileyhilliard/gpubench/internal/remote"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Scheduler runs one client measurement per ordered pair.
type Scheduler struct {
	Runner   remote.Runner
	Tool     iperf.Tool
	Port     int
	Timeout  time.Duration
	Duration time.Duration
	// Parallel caps concurrent measurements. Zero means every pair at once.
	Parallel int
	// PerServer caps concurrent clients against one server. iperf3 serves
	// one test at a time, so 1 gives clean numbers at the cost of wall
	// clock. Zero means unbounded.
	PerServer int
	Log       logger.Logger
	Observer  Observer
}

// MeasureAll measures every pair of hosts and returns once every task has
// finished or timed out. The matrix is complete on return: a pair that
// could not be measured holds a failure Outcome.
func (s *Scheduler) MeasureAll(ctx context.Context, hosts []string) *Matrix {
	log := s.Log
	if log == nil {
		log = logger.Noop()
	}
	obs := s.Observer
	if obs == nil {
		obs = NopObserver{}
	}

	pairs := Pairs(hosts)
	matrix := NewMatrix(hosts)
	obs.PhaseStarted(PhaseMeasure, len(pairs))
	log.Info("measuring %d pairs (parallel=%s, per-server=%s)", len(pairs), limitString(s.Parallel), limitString(s.PerServer))
	start := time.Now()

	var slots map[string]*semaphore.Weighted
	if s.PerServer > 0 {
		slots = make(map[string]*semaphore.Weighted, len(hosts))
		for _, h := range hosts {
			slots[h] = semaphore.NewWeighted(int64(s.PerServer))
		}
	}

	g := &errgroup.Group{}
	if s.Parallel > 0 {
		g.SetLimit(s.Parallel)
	}
	for _, p := range pairs {
		g.Go(func() error {
			taskStart := time.Now()
			outcome := s.measure(ctx, p, slots[p.Server])
			elapsed := time.Since(taskStart)
			if err := matrix.Set(p, outcome); err != nil {
				log.Error("%v", err)
			}
			if outcome.Failed() {
				log.Debug("%s failed: %s", p, outcome.Err)
			} else {
				log.Debug("%s: %.2f Gbps", p, outcome.Gbps)
			}
			obs.PairDone(p, outcome, elapsed)
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	obs.PhaseDone(PhaseMeasure, elapsed)
	log.Info("measured %d pairs in %s, %d failed", matrix.Len(), elapsed.Round(time.Millisecond), matrix.Failures())
	return matrix
}

// measure runs one client command. Waiting for a per-server slot does not
// count against the task timeout.
func (s *Scheduler) measure(ctx context.Context, p Pair, slot *semaphore.Weighted) Outcome {
	if slot != nil {
		if err := slot.Acquire(ctx, 1); err != nil {
			return Failure("timeout: cancelled waiting for " + p.Server)
		}
		defer slot.Release(1)
	}

	res := s.Runner.Run(ctx, p.Client, s.Tool.ClientCommand(p.Server, s.Port, s.Duration), s.Timeout)
	return s.outcome(res)
}

// outcome classifies a client result. Timeouts are prefixed "timeout:";
// unparseable output reads "failed to parse output: ..."; anything else
// carries the transport or tool message.
func (s *Scheduler) outcome(res remote.Result) Outcome {
	if res.TimedOut {
		return Failure(fmt.Sprintf("timeout: no result within %s", s.Timeout))
	}
	if !res.OK() {
		if r, ok := s.Tool.(iperf.ErrorReporter); ok && res.Err == nil {
			if msg := r.ToolError(res.Stdout); msg != "" {
				return Failure("iperf3: error - " + msg)
			}
		}
		return Failure(res.Detail())
	}
	gbps, err := s.Tool.Parse(res.Stdout)
	if err != nil {
		return Failure(errors.Summary(err))
	}
	return Success(gbps)
}

func limitString(n int) string {
	if n <= 0 {
		return "unbounded"
	}
	return fmt.Sprint(n)
}
