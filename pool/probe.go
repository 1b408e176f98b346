package pool

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProbeFunc reports a server-side concurrency headroom hint, e.g. read from
// a response header on a cheap best-effort request. A probe that errors or
// exceeds the configured timeout is treated as "no signal" by probeDOP.
type ProbeFunc func(ctx context.Context) (headroom int, err error)

// probeDOP runs probe once under cfg.ProbeTimeout and returns the lower of
// (configured cap, probed headroom, defaultMaxConcurrent). Failure to probe
// falls back to the default, per spec §4.3's Adaptive DOP rule.
func probeDOP(ctx context.Context, probe ProbeFunc, configuredCap int, defaultMaxConcurrent int, timeout time.Duration) int {
	if probe == nil {
		return clampDOP(configuredCap, defaultMaxConcurrent, defaultMaxConcurrent)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	eg, egCtx := errgroup.WithContext(ctx)
	var headroom int
	eg.Go(func() error {
		h, err := probe(egCtx)
		if err != nil {
			return err
		}
		headroom = h
		return nil
	})
	if err := eg.Wait(); err != nil {
		return clampDOP(configuredCap, defaultMaxConcurrent, defaultMaxConcurrent)
	}
	return clampDOP(configuredCap, headroom, defaultMaxConcurrent)
}

func clampDOP(configuredCap, probed, def int) int {
	values := []int{def}
	if configuredCap > 0 {
		values = append(values, configuredCap)
	}
	if probed > 0 {
		values = append(values, probed)
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	if min <= 0 {
		min = 1
	}
	return min
}
