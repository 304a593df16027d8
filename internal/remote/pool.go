package remote

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/logger"
	"github.com/rileyhilliard/gpubench/pkg/sshutil"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DialFunc opens a connection to host.
type DialFunc func(host string, timeout time.Duration) (sshutil.SSHClient, error)

// SSHDialer returns a DialFunc backed by sshutil.Dial. The pool's connect
// timeout replaces opts.Timeout.
func SSHDialer(opts sshutil.DialOptions) DialFunc {
	return func(host string, timeout time.Duration) (sshutil.SSHClient, error) {
		opts := opts
		opts.Timeout = timeout
		client, err := sshutil.Dial(host, opts)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// PoolOptions configures a Pool. Zero values pick the defaults.
type PoolOptions struct {
	// ConnectTimeout caps TCP connect plus SSH handshake. Default 10s.
	ConnectTimeout time.Duration
	// SessionsPerHost caps concurrent sessions on one connection, which
	// must stay under sshd's MaxSessions (10 by default). Default 8.
	SessionsPerHost int
	// DialRate limits new connections per second across all hosts.
	// Zero means unlimited.
	DialRate float64
	// FailureTTL is how long a failed dial is remembered before the host is
	// tried again. Default 30s.
	FailureTTL time.Duration
	// Dial opens connections. Default SSHDialer with strict host keys.
	Dial DialFunc
	Logger logger.Logger
}

const (
	defaultConnectTimeout  = 10 * time.Second
	defaultSessionsPerHost = 8
	defaultFailureTTL      = 30 * time.Second
)

// Pool keeps one SSH connection per host so that every command sent to the
// same host shares a single handshake. Dead connections are evicted and
// redialed on next use. Failed dials are cached for FailureTTL so a host that
// is down fails all its commands quickly instead of redialing for each one.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*poolEntry
	opts    PoolOptions
	limiter *rate.Limiter
	log     logger.Logger
}

type poolEntry struct {
	// dialing serializes connection setup for one host; a weighted
	// semaphore rather than a mutex so waiters can give up on ctx.
	dialing  *semaphore.Weighted
	sessions *semaphore.Weighted
	client   sshutil.SSHClient
	dialErr  error
	failedAt time.Time
	lastUsed time.Time
}

// NewPool creates an empty pool.
func NewPool(opts PoolOptions) *Pool {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.SessionsPerHost <= 0 {
		opts.SessionsPerHost = defaultSessionsPerHost
	}
	if opts.FailureTTL <= 0 {
		opts.FailureTTL = defaultFailureTTL
	}
	if opts.Dial == nil {
		opts.Dial = SSHDialer(sshutil.DefaultDialOptions())
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.DialRate > 0 {
		burst := int(opts.DialRate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.DialRate), burst)
	}

	return &Pool{
		entries: make(map[string]*poolEntry),
		opts:    opts,
		limiter: limiter,
		log:     opts.Logger,
	}
}

func (p *Pool) entry(host string) *poolEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[host]
	if !ok {
		e = &poolEntry{
			dialing:  semaphore.NewWeighted(1),
			sessions: semaphore.NewWeighted(int64(p.opts.SessionsPerHost)),
		}
		p.entries[host] = e
	}
	return e
}

// Get returns a live connection for host, dialing if needed.
func (p *Pool) Get(ctx context.Context, host string) (sshutil.SSHClient, error) {
	e := p.entry(host)
	if err := e.dialing.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.dialing.Release(1)

	if e.client != nil {
		if e.client.Alive() {
			e.lastUsed = time.Now()
			return e.client, nil
		}
		p.log.Debug("connection to %s is dead, redialing", host)
		_ = e.client.Close()
		e.client = nil
	}

	if e.dialErr != nil && time.Since(e.failedAt) < p.opts.FailureTTL {
		return nil, e.dialErr
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	timeout := p.opts.ConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	p.log.Debug("dialing %s (timeout %s)", host, timeout)
	client, err := p.opts.Dial(host, timeout)
	if err != nil {
		// A dial that lost to the caller's deadline says nothing about the host.
		if ctx.Err() == nil {
			e.dialErr = err
			e.failedAt = time.Now()
		}
		return nil, err
	}

	e.client = client
	e.dialErr = nil
	e.lastUsed = time.Now()
	return client, nil
}

// Acquire waits for a session slot on host. The caller must call release
// when its command is finished. Slots are taken before the connection so a
// queued command holds neither a slot nor a dial.
func (p *Pool) Acquire(ctx context.Context, host string) (release func(), err error) {
	e := p.entry(host)
	if err := e.sessions.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { e.sessions.Release(1) }, nil
}

// Evict closes and forgets the connection for host, if any.
func (p *Pool) Evict(host string) {
	p.evict(host, nil)
}

// evict drops host's connection. With a non-nil client it only drops that
// exact client, leaving a connection someone else already redialed alone.
func (p *Pool) evict(host string, client sshutil.SSHClient) {
	p.mu.Lock()
	e, ok := p.entries[host]
	p.mu.Unlock()
	if !ok {
		return
	}
	// Wait out any dial in progress so we don't close a fresh client from
	// under it.
	_ = e.dialing.Acquire(context.Background(), 1)
	defer e.dialing.Release(1)
	if e.client == nil || (client != nil && e.client != client) {
		return
	}
	_ = e.client.Close()
	e.client = nil
}

// Size returns the number of open connections.
func (p *Pool) Size() int {
	p.mu.Lock()
	entries := make([]*poolEntry, 0, len(p.entries))
	for _, e := range p.entries {
		entries = append(entries, e)
	}
	p.mu.Unlock()

	n := 0
	for _, e := range entries {
		_ = e.dialing.Acquire(context.Background(), 1)
		if e.client != nil {
			n++
		}
		e.dialing.Release(1)
	}
	return n
}

// Close closes every connection and empties the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[string]*poolEntry)
	p.mu.Unlock()

	for host, e := range entries {
		_ = e.dialing.Acquire(context.Background(), 1)
		if e.client != nil {
			if err := e.client.Close(); err != nil {
				p.log.Debug("closing connection to %s: %v", host, err)
			}
			e.client = nil
		}
		e.dialing.Release(1)
	}
	return nil
}

// dialFailure wraps a dial error for Result.Err.
func dialFailure(host string, err error) error {
	if errors.IsCode(err, errors.ErrSSH) || errors.IsCode(err, errors.ErrConfig) {
		return err
	}
	return errors.WrapWithCode(err, errors.ErrSSH,
		"Couldn't connect to "+host,
		"Check the host is up and reachable with plain ssh.")
}
