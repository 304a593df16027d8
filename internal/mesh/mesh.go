package mesh

import (
	"context"
	"strings"
	"time"

	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/iperf"
	"github.com/rileyhilliard/gpubench/internal/logger"
	"github.com/rileyhilliard/gpubench/internal/remote"
)

// Options configures a Mesh.
type Options struct {
	Port      int
	Timeout   time.Duration
	Duration  time.Duration
	Parallel  int
	PerServer int
	ReadyWait time.Duration
}

// Mesh wires server lifecycle and measurement into a single run.
type Mesh struct {
	servers   *Servers
	scheduler *Scheduler
	log       logger.Logger
}

// New builds a Mesh. log and obs may be nil.
func New(runner remote.Runner, tool iperf.Tool, opts Options, log logger.Logger, obs Observer) *Mesh {
	if log == nil {
		log = logger.Noop()
	}
	if obs == nil {
		obs = NopObserver{}
	}
	return &Mesh{
		servers: &Servers{
			Runner:    runner,
			Tool:      tool,
			Port:      opts.Port,
			Timeout:   opts.Timeout,
			Parallel:  opts.Parallel,
			ReadyWait: opts.ReadyWait,
			Log:       log,
			Observer:  obs,
		},
		scheduler: &Scheduler{
			Runner:    runner,
			Tool:      tool,
			Port:      opts.Port,
			Timeout:   opts.Timeout,
			Duration:  opts.Duration,
			Parallel:  opts.Parallel,
			PerServer: opts.PerServer,
			Log:       log,
			Observer:  obs,
		},
		log: log,
	}
}

// Result is everything a run produced.
type Result struct {
	Hosts        []string
	Matrix       *Matrix
	ServerErrors map[string]error
	StartedAt    time.Time
	Duration     time.Duration
}

// Run starts servers, measures every pair, and stops the servers. It only
// returns an error when there is nothing to measure; everything that goes
// wrong on a host or pair is recorded in the Result instead.
func (m *Mesh) Run(ctx context.Context, hosts []string) (*Result, error) {
	hosts, dropped := Dedupe(hosts)
	if len(dropped) > 0 {
		m.log.Warn("ignoring duplicate hosts: %s", strings.Join(dropped, ", "))
	}
	if len(hosts) < 2 {
		return nil, errors.New(errors.ErrConfig,
			"Need at least two hosts to measure bandwidth",
			"Pass hosts as arguments or set `hosts` in .gpubench.yaml.")
	}

	startedAt := time.Now()
	serverErrs := m.servers.StartAll(ctx, hosts)
	if len(serverErrs) == len(hosts) {
		m.log.Warn("no server started; every pair will fail")
	}

	matrix := func() *Matrix {
		defer m.servers.StopAll(ctx, hosts)
		return m.scheduler.MeasureAll(ctx, hosts)
	}()

	return &Result{
		Hosts:        hosts,
		Matrix:       matrix,
		ServerErrors: serverErrs,
		StartedAt:    startedAt,
		Duration:     time.Since(startedAt),
	}, nil
}
