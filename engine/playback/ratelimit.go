package playback

import (
	"sync"

	"golang.org/x/time/rate"
)

// saveLimiter bounds per-entity state persistence so bursts of queue edits
// between autosave ticks do not hammer the store.
type saveLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newSaveLimiter(perSecond float64, burst int) *saveLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &saveLimiter{
		limiters: make(map[int64]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow reports whether a save for the entity may proceed now.
func (l *saveLimiter) Allow(entityID int64) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[entityID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[entityID] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// Forget drops an entity's limiter once the entity is gone.
func (l *saveLimiter) Forget(entityID int64) {
	l.mu.Lock()
	delete(l.limiters, entityID)
	l.mu.Unlock()
}
