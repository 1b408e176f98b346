// Package pool implements the connection pool (C4): a seed-client
// clone-per-lease model with adaptive degree-of-parallelism probing and
// throttle back-off, generalizing the teacher's early single-connection
// driver/adapter abstractions into a multi-lease pool.
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/dvsuite/queryexec/errs"
	"github.com/dvsuite/queryexec/logx"
)

// SeedClient is the long-lived, authenticated connection a Pool clones leases
// from. Invalidate is called once, by the pool, after a clone reports it is
// unusable (AuthFailed) so the next GetLease can reseed.
type SeedClient interface {
	Clone(ctx context.Context) (LeaseClient, error)
	Invalidate()
}

// LeaseClient is a single leased connection handed to a caller.
type LeaseClient interface {
	Healthy() bool
	Close() error
}

// SeedFactory constructs a fresh SeedClient against envURL, e.g. performing
// the initial auth handshake.
type SeedFactory func(ctx context.Context, envURL string) (SeedClient, error)

// Config holds the ambient knobs a collaborator builds programmatically;
// the core never parses these from a config file itself (see SPEC_FULL.md's
// Ambient Stack note on pool.Config).
type Config struct {
	MaxConcurrent  int
	ProbeTimeout   time.Duration
	RetryCap       int
	ThrottleFloor  int // minimum MaxConcurrent the cooldown will reduce to
}

// DefaultConfig mirrors the teacher's habit of small, explicit zero-value
// defaults rather than a magic-constants table.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 4,
		ProbeTimeout:  5 * time.Second,
		RetryCap:      3,
		ThrottleFloor: 1,
	}
}

// Pool is the generalization of the teacher's driver.Database/adapter.Database
// single-connection pattern into a multi-lease, seed-cloning pool.
type Pool struct {
	seedFactory SeedFactory
	envURL      string
	cfg         Config

	mu       sync.Mutex
	seed     SeedClient
	free     []LeaseClient // LIFO free list, kept warm
	inflight int

	sem chan struct{} // FIFO-fair semaphore, size == current MaxConcurrent

	throttle *Throttle
	log      logx.Logger

	coolMu    sync.Mutex
	coolHeld  bool
	coolTimer *time.Timer
}

// SetLogger installs the diagnostic sink used for throttle/reseed events.
// Defaults to logx.NullLogger when never called.
func (p *Pool) SetLogger(l logx.Logger) { p.log = l }

func (p *Pool) logger() logx.Logger {
	if p.log == nil {
		return logx.NullLogger{}
	}
	return p.log
}

// Lease is a borrowed connection; callers must call Release exactly once.
type Lease struct {
	pool   *Pool
	client LeaseClient
}

// Client exposes the underlying LeaseClient for the caller's use.
func (l *Lease) Client() LeaseClient { return l.client }

// New constructs a Pool. Init must be called before the first GetLease.
func New(seedFactory SeedFactory, envURL string, cfg Config) *Pool {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Pool{
		seedFactory: seedFactory,
		envURL:      envURL,
		cfg:         cfg,
		sem:         make(chan struct{}, cfg.MaxConcurrent),
		throttle:    newThrottle(cfg),
	}
}

// Init performs the initial seed handshake, probes adaptive DOP (best
// effort, single request, bounded by cfg.ProbeTimeout), then fills the
// semaphore with the resulting effective MaxConcurrent.
func (p *Pool) Init(ctx context.Context, probe ProbeFunc) error {
	seed, err := p.seedFactory(ctx, p.envURL)
	if err != nil {
		return errs.Wrap(errs.AuthFailed, err)
	}
	p.mu.Lock()
	p.seed = seed
	p.mu.Unlock()

	effective := probeDOP(ctx, probe, p.cfg.MaxConcurrent, DefaultConfig().MaxConcurrent, p.cfg.ProbeTimeout)
	p.cfg.MaxConcurrent = effective
	p.throttle.cfg.MaxConcurrent = effective
	p.sem = make(chan struct{}, effective)
	for i := 0; i < effective; i++ {
		p.sem <- struct{}{}
	}
	return nil
}

// GetLease blocks (FIFO-fair on the semaphore channel) until a slot is free,
// then hands back a warm free-list connection or clones a fresh one from the
// seed. On AuthFailed it reseeds exactly once before propagating.
func (p *Pool) GetLease(ctx context.Context) (*Lease, error) {
	if err := p.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	select {
	case <-p.sem:
	case <-ctx.Done():
		return nil, errs.Wrap(errs.Cancelled, ctx.Err())
	}

	p.mu.Lock()
	if p.seed == nil {
		p.mu.Unlock()
		p.sem <- struct{}{}
		return nil, errs.New(errs.PoolClosed, "pool not initialized")
	}
	// LIFO pop from the free list for token warmth.
	for len(p.free) > 0 {
		c := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		if c.Healthy() {
			p.inflight++
			p.mu.Unlock()
			return &Lease{pool: p, client: c}, nil
		}
		_ = c.Close()
	}
	seed := p.seed
	p.mu.Unlock()

	client, err := seed.Clone(ctx)
	if err != nil {
		if errs.Is(err, errs.AuthFailed) {
			if reErr := p.reseed(ctx); reErr != nil {
				p.sem <- struct{}{}
				return nil, reErr
			}
			p.mu.Lock()
			seed = p.seed
			p.mu.Unlock()
			client, err = seed.Clone(ctx)
		}
		if err != nil {
			p.sem <- struct{}{}
			return nil, errs.Wrap(errs.AuthFailed, err)
		}
	}

	p.mu.Lock()
	p.inflight++
	p.mu.Unlock()
	return &Lease{pool: p, client: client}, nil
}

func (p *Pool) reseed(ctx context.Context) error {
	p.mu.Lock()
	old := p.seed
	p.mu.Unlock()
	if old != nil {
		old.Invalidate()
	}
	seed, err := p.seedFactory(ctx, p.envURL)
	if err != nil {
		p.logger().Printf("pool: reseed failed: %v\n", err)
		return errs.Wrap(errs.AuthFailed, err)
	}
	p.mu.Lock()
	p.seed = seed
	p.mu.Unlock()
	p.logger().Println("pool: reseeded after AuthFailed")
	return nil
}

// Release returns the lease's connection to the free list and frees a
// semaphore slot.
func (l *Lease) Release() {
	p := l.pool
	p.mu.Lock()
	p.inflight--
	if l.client.Healthy() {
		p.free = append(p.free, l.client)
	} else {
		_ = l.client.Close()
	}
	p.mu.Unlock()
	p.sem <- struct{}{}
}

// NotifyThrottled is how a caller reports an observed Throttled response
// (§4.3): the pool records the back-off window, reserves one semaphore slot
// for the 60s cooldown so the next GetLease calls actually see a reduced
// effective MaxConcurrent, and releases the current lease without health
// penalty -- the caller decides whether and when to retry.
func (p *Pool) NotifyThrottled(lease *Lease, serverRetryAfter time.Duration) {
	p.throttle.RecordThrottled(serverRetryAfter)
	p.armCooldownReservation()
	p.logger().Printf("pool: throttled, reducing maxConcurrent for %s\n", throttleCooldown)
	lease.Release()
}

// armCooldownReservation pulls one token out of the semaphore for the
// duration of the cooldown window, so concurrent GetLease callers actually
// observe the reduced cap rather than just an advisory counter. Repeated
// throttles while a reservation is already held just re-arm the timer
// instead of reserving a second slot, matching Throttle's own
// floor-at-one-reduction behaviour.
func (p *Pool) armCooldownReservation() {
	p.coolMu.Lock()
	if p.coolHeld {
		if p.coolTimer != nil {
			p.coolTimer.Reset(throttleCooldown)
		}
		p.coolMu.Unlock()
		return
	}
	// Never drive real lease availability below ThrottleFloor: if
	// MaxConcurrent is already at (or below) the floor, reserving a token
	// here would leave fewer than floor leases obtainable for the cooldown
	// window, contradicting the documented floor guarantee.
	if p.cfg.MaxConcurrent-1 < p.cfg.ThrottleFloor {
		p.coolMu.Unlock()
		return
	}
	p.coolHeld = true
	p.coolMu.Unlock()

	go func() {
		<-p.sem
		p.coolMu.Lock()
		p.coolTimer = time.AfterFunc(throttleCooldown, p.releaseCooldownReservation)
		p.coolMu.Unlock()
	}()
}

func (p *Pool) releaseCooldownReservation() {
	p.coolMu.Lock()
	p.coolHeld = false
	p.coolMu.Unlock()
	p.sem <- struct{}{}
}

// InvalidateSeed forces the next GetLease to reseed, e.g. after an explicit
// AuthFailed surfaced outside the pool's own retry path.
func (p *Pool) InvalidateSeed() {
	p.mu.Lock()
	seed := p.seed
	p.seed = nil
	p.mu.Unlock()
	if seed != nil {
		seed.Invalidate()
	}
}

// Dispose closes every free-list connection and the seed. Leases still
// outstanding are the caller's responsibility to Release first.
func (p *Pool) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.free {
		_ = c.Close()
	}
	p.free = nil
	if p.seed != nil {
		p.seed.Invalidate()
		p.seed = nil
	}
}

// Throttled reports the current effective MaxConcurrent (reduced by the
// throttle cooldown, if active).
func (p *Pool) Throttled() int {
	return p.throttle.Current()
}
