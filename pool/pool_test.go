package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvsuite/queryexec/errs"
)

type fakeLease struct {
	healthy int32
	closed  int32
}

func (f *fakeLease) Healthy() bool { return atomic.LoadInt32(&f.healthy) != 0 }
func (f *fakeLease) Close() error  { atomic.StoreInt32(&f.closed, 1); return nil }

type fakeSeed struct {
	cloneErr    error
	invalidated int32
	clones      int32
}

func (s *fakeSeed) Clone(ctx context.Context) (LeaseClient, error) {
	if s.cloneErr != nil {
		return nil, s.cloneErr
	}
	atomic.AddInt32(&s.clones, 1)
	return &fakeLease{healthy: 1}, nil
}

func (s *fakeSeed) Invalidate() { atomic.StoreInt32(&s.invalidated, 1) }

func newTestPool(t *testing.T, seed *fakeSeed, maxConcurrent int) *Pool {
	t.Helper()
	p := New(func(ctx context.Context, envURL string) (SeedClient, error) {
		return seed, nil
	}, "https://example.crm.dynamics.com", Config{MaxConcurrent: maxConcurrent, RetryCap: 3, ThrottleFloor: 1})
	if err := p.Init(context.Background(), nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return p
}

func TestGetLease_ReleaseRoundTrip(t *testing.T) {
	seed := &fakeSeed{}
	p := newTestPool(t, seed, 2)

	lease, err := p.GetLease(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	lease.Release()

	if seed.clones != 1 {
		t.Fatalf("expected one clone, got %d", seed.clones)
	}
}

func TestGetLease_ReusesFreeListBeforeCloning(t *testing.T) {
	seed := &fakeSeed{}
	p := newTestPool(t, seed, 2)

	l1, _ := p.GetLease(context.Background())
	l1.Release()

	l2, err := p.GetLease(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	l2.Release()

	if seed.clones != 1 {
		t.Fatalf("expected free-list reuse, got %d clones", seed.clones)
	}
}

func TestMaxConcurrentNeverExceeded(t *testing.T) {
	seed := &fakeSeed{}
	p := newTestPool(t, seed, 2)

	l1, err := p.GetLease(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	l2, err := p.GetLease(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	if _, err := p.GetLease(ctx); err == nil {
		t.Fatalf("expected third lease to block/fail while two are outstanding")
	}

	l1.Release()
	l2.Release()
}

func TestGetLease_PoolClosedBeforeInit(t *testing.T) {
	p := New(func(ctx context.Context, envURL string) (SeedClient, error) {
		return &fakeSeed{}, nil
	}, "https://example.crm.dynamics.com", Config{MaxConcurrent: 1})
	p.sem = make(chan struct{}, 1)
	p.sem <- struct{}{}

	_, err := p.GetLease(context.Background())
	if !errs.Is(err, errs.PoolClosed) {
		t.Fatalf("expected PoolClosed, got %v", err)
	}
}

func TestReseedOnAuthFailed(t *testing.T) {
	seed := &fakeSeed{cloneErr: errs.New(errs.AuthFailed, "expired")}
	reseeded := int32(0)
	p := New(func(ctx context.Context, envURL string) (SeedClient, error) {
		if atomic.AddInt32(&reseeded, 1) > 1 {
			return &fakeSeed{}, nil
		}
		return seed, nil
	}, "https://example.crm.dynamics.com", Config{MaxConcurrent: 1})
	if err := p.Init(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	lease, err := p.GetLease(context.Background())
	if err != nil {
		t.Fatalf("expected reseed to recover: %v", err)
	}
	lease.Release()
	if seed.invalidated == 0 {
		t.Fatalf("expected original seed to be invalidated")
	}
}

func TestThrottle_CooldownReducesMaxConcurrentByOne(t *testing.T) {
	th := newThrottle(Config{MaxConcurrent: 4, ThrottleFloor: 1})
	th.RecordThrottled(0)
	if th.Current() != 3 {
		t.Fatalf("expected cooldown to reduce MaxConcurrent by one, got %d", th.Current())
	}
}

func TestThrottle_FloorIsRespected(t *testing.T) {
	th := newThrottle(Config{MaxConcurrent: 1, ThrottleFloor: 1})
	th.RecordThrottled(0)
	if th.Current() != 1 {
		t.Fatalf("expected floor of 1, got %d", th.Current())
	}
}

func TestNotifyThrottled_ReducesEffectiveConcurrency(t *testing.T) {
	seed := &fakeSeed{}
	p := newTestPool(t, seed, 4)

	leases := make([]*Lease, 0, 4)
	for i := 0; i < 4; i++ {
		l, err := p.GetLease(context.Background())
		if err != nil {
			t.Fatalf("GetLease %d: %v", i, err)
		}
		leases = append(leases, l)
	}

	p.NotifyThrottled(leases[0], 0)
	for _, l := range leases[1:] {
		l.Release()
	}

	// One slot is reserved for the cooldown window, so a 4th concurrent
	// lease request must not succeed immediately.
	deadline := time.Now().Add(50 * time.Millisecond)
	acquired := make([]*Lease, 0, 3)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		l, err := p.GetLease(ctx)
		cancel()
		if err != nil {
			continue
		}
		acquired = append(acquired, l)
	}
	if len(acquired) > 3 {
		t.Fatalf("expected at most 3 concurrent leases during cooldown, got %d", len(acquired))
	}
	for _, l := range acquired {
		l.Release()
	}
}

func TestNotifyThrottled_AtFloorLeavesLeaseAvailabilityUntouched(t *testing.T) {
	seed := &fakeSeed{}
	p := newTestPool(t, seed, 1)

	l, err := p.GetLease(context.Background())
	if err != nil {
		t.Fatalf("GetLease: %v", err)
	}
	// A 1ns server retry-after keeps the back-off window (up to 500ms of
	// jitter when none is given) from gating the GetLease below.
	p.NotifyThrottled(l, time.Nanosecond)

	// MaxConcurrent == ThrottleFloor == 1: the cooldown must not reserve a
	// token, or the only lease slot would be unobtainable for 60s.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	l2, err := p.GetLease(ctx)
	if err != nil {
		t.Fatalf("expected a lease to remain obtainable at the floor, got: %v", err)
	}
	l2.Release()
}

func TestProbeDOP_FallsBackOnError(t *testing.T) {
	got := probeDOP(context.Background(), func(ctx context.Context) (int, error) {
		return 0, errors.New("boom")
	}, 0, 4, 0)
	if got != 4 {
		t.Fatalf("expected fallback to default 4, got %d", got)
	}
}

func TestProbeDOP_TakesLowerOfCapAndHeadroom(t *testing.T) {
	got := probeDOP(context.Background(), func(ctx context.Context) (int, error) {
		return 2, nil
	}, 10, 4, 0)
	if got != 2 {
		t.Fatalf("expected 2 (probed headroom), got %d", got)
	}
}
