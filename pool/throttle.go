package pool

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dvsuite/queryexec/errs"
)

const (
	throttleBaseDelay = 500 * time.Millisecond
	throttleMaxDelay  = 30 * time.Second
	throttleCooldown  = 60 * time.Second
)

// Throttle implements the back-off policy of spec §4.3: full-jitter
// exponential back-off starting at 500ms doubling to a 30s cap, plus a 60s
// cooldown window that reduces the pool's effective MaxConcurrent by one
// (floor cfg.ThrottleFloor) via an atomic counter and a re-arming timer.
type Throttle struct {
	cfg Config

	mu         sync.Mutex
	attempt    int
	retryAfter time.Time

	reduced int32 // atomic: 1 while the cooldown reduction is active
	floor   int32
	timer   *time.Timer
}

func newThrottle(cfg Config) *Throttle {
	floor := int32(cfg.ThrottleFloor)
	if floor < 1 {
		floor = 1
	}
	return &Throttle{cfg: cfg, floor: floor}
}

// Wait blocks until any recorded back-off window has elapsed (or ctx is
// cancelled).
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	until := t.retryAfter
	t.mu.Unlock()
	if until.IsZero() {
		return nil
	}
	d := time.Until(until)
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return errs.Wrap(errs.Cancelled, ctx.Err())
	}
}

// RecordThrottled applies the back-off/cooldown policy after a Throttled
// response. serverRetryAfter, if non-zero, is honored verbatim in place of
// the computed exponential delay.
func (t *Throttle) RecordThrottled(serverRetryAfter time.Duration) {
	t.mu.Lock()
	t.attempt++
	delay := serverRetryAfter
	if delay <= 0 {
		delay = fullJitterDelay(t.attempt)
	}
	t.retryAfter = time.Now().Add(delay)
	t.mu.Unlock()

	t.armCooldown()
}

// fullJitterDelay computes a full-jitter exponential delay for the given
// attempt count (1-indexed), doubling from throttleBaseDelay and capped at
// throttleMaxDelay.
func fullJitterDelay(attempt int) time.Duration {
	max := throttleBaseDelay << uint(attempt-1)
	if max > throttleMaxDelay || max <= 0 {
		max = throttleMaxDelay
	}
	return time.Duration(rand.Int63n(int64(max)))
}

func (t *Throttle) armCooldown() {
	atomic.StoreInt32(&t.reduced, 1)
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(throttleCooldown, func() {
		atomic.StoreInt32(&t.reduced, 0)
	})
	t.mu.Unlock()
}

// Current returns the effective MaxConcurrent: cfg.MaxConcurrent minus one,
// floored at t.floor, while a cooldown is active.
func (t *Throttle) Current() int {
	if atomic.LoadInt32(&t.reduced) == 0 {
		return t.cfg.MaxConcurrent
	}
	reduced := t.cfg.MaxConcurrent - 1
	if reduced < int(t.floor) {
		reduced = int(t.floor)
	}
	return reduced
}
