package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryGuard is the process-local burst guard. State resets on restart and
// is not shared across instances; the durable email counter remains the
// authoritative bound.
type MemoryGuard struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	now      Clock

	mu          sync.Mutex
	lastCleanup time.Time
}

// NewMemoryGuard allows perWindow requests per key over window, with the
// full allowance available as a burst.
func NewMemoryGuard(perWindow int, window time.Duration, now Clock) *MemoryGuard {
	if now == nil {
		now = time.Now
	}
	return &MemoryGuard{
		rate:        rate.Limit(float64(perWindow) / window.Seconds()),
		burst:       perWindow,
		now:         now,
		lastCleanup: now(),
	}
}

func (g *MemoryGuard) Allow(_ context.Context, key string) bool {
	return g.limiterFor(key).AllowN(g.now(), 1)
}

func (g *MemoryGuard) limiterFor(key string) *rate.Limiter {
	if l, ok := g.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}

	l := rate.NewLimiter(g.rate, g.burst)
	actual, _ := g.limiters.LoadOrStore(key, l)

	g.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters with full buckets so ephemeral keys don't
// accumulate forever.
func (g *MemoryGuard) maybeCleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.now().Sub(g.lastCleanup) < 5*time.Minute {
		return
	}
	g.lastCleanup = g.now()

	g.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).TokensAt(g.now()) >= float64(g.burst) {
			g.limiters.Delete(key)
		}
		return true
	})
}
