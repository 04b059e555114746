package signal

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	pruneAbove = 1024
	idleTTL    = 10 * time.Minute
)

type limiterEntry struct {
	lim  *rate.Limiter
	last time.Time
}

// RoomRateLimiter throttles browser-originated broadcasts per client
// token. Tabs sharing a token share one budget.
type RoomRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func NewRoomRateLimiter(perSecond float64, burst int) *RoomRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RoomRateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *RoomRateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= pruneAbove {
			rl.prune(now)
		}
		e = &limiterEntry{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = e
	}
	e.last = now
	return e.lim.AllowN(now, 1)
}

func (rl *RoomRateLimiter) prune(now time.Time) {
	for k, e := range rl.limiters {
		if now.Sub(e.last) > idleTTL {
			delete(rl.limiters, k)
		}
	}
}

func (rl *RoomRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
