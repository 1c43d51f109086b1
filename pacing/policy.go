// Package pacing produces the human-like request cadence every worker
// must follow. The policy is consulted, never bypassed, before each
// navigation and scroll — one bursty worker would expose the whole
// pool, so the cadence has to be uniform.
package pacing

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"agoda-scraper/config"

	"golang.org/x/time/rate"
)

// Policy draws randomized delays from configured ranges and schedules
// periodic session breaks. Safe for concurrent use; the only shared
// mutable state is the RNG, guarded by a mutex, and the rate limiter,
// which is concurrency-safe by itself.
type Policy struct {
	dateMin, dateMax   time.Duration
	hotelMin, hotelMax time.Duration
	breakEvery         int
	breakMin, breakMax time.Duration

	limiter *rate.Limiter

	mu  sync.Mutex
	rng *rand.Rand
}

func NewPolicy(cfg *config.Config) *Policy {
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return &Policy{
		dateMin:    cfg.DateDelayMin,
		dateMax:    cfg.DateDelayMax,
		hotelMin:   cfg.HotelDelayMin,
		hotelMax:   cfg.HotelDelayMax,
		breakEvery: cfg.SessionBreakEvery,
		breakMin:   cfg.SessionBreakMin,
		breakMax:   cfg.SessionBreakMax,
		limiter:    limiter,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// DelayBeforeHotel is the pause a worker takes before starting a new
// hotel.
func (p *Policy) DelayBeforeHotel() time.Duration {
	return p.draw(p.hotelMin, p.hotelMax)
}

// DelayBeforeDate is the shorter pause between successive check-in
// dates of the same hotel.
func (p *Policy) DelayBeforeDate() time.Duration {
	return p.draw(p.dateMin, p.dateMax)
}

// SessionBreak reports whether the worker should take a long pause
// after having completed the given number of hotels, and for how long.
// Fixed delays are a detectable pattern; so are fixed cadences, which
// is why the break itself is randomized too.
func (p *Policy) SessionBreak(hotelsCompleted int) (time.Duration, bool) {
	if p.breakEvery <= 0 || hotelsCompleted == 0 || hotelsCompleted%p.breakEvery != 0 {
		return 0, false
	}
	return p.draw(p.breakMin, p.breakMax), true
}

// Wait blocks until the shared rate limiter admits one more request.
// This caps the pool-wide request rate regardless of worker count.
func (p *Policy) Wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// draw returns a uniform duration in [min, max] plus up to 5% jitter.
func (p *Policy) draw(min, max time.Duration) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := min
	if max > min {
		d += time.Duration(p.rng.Int63n(int64(max - min + 1)))
	}
	jitter := time.Duration(p.rng.Int63n(int64(d)/20 + 1))
	return d + jitter
}

// Sleep pauses for d, returning early if ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
