package ratelimit

import (
	"context"
	"sync"
	"time"
)

type record struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps window counters in process memory. Counters are lost
// on restart and are not shared between instances.
type MemoryLimiter struct {
	settings Settings
	now      func() time.Time

	mu      sync.Mutex
	records map[string]*record
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(settings Settings) *MemoryLimiter {
	return &MemoryLimiter{
		settings: settings.withDefaults(),
		now:      time.Now,
		records:  make(map[string]*record),
	}
}

// WithClock replaces the time source. Used by tests.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

// Admit implements RateLimiter.
func (l *MemoryLimiter) Admit(_ context.Context, clientKey string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[clientKey]
	if !ok || !now.Before(rec.resetAt) {
		l.records[clientKey] = &record{count: 1, resetAt: now.Add(l.settings.Window)}
		return Decision{Allowed: true, Remaining: l.settings.Max - 1}, nil
	}

	rec.count++
	if rec.count > l.settings.Max {
		return Decision{Allowed: false, RetryAfter: rec.resetAt.Sub(now)}, nil
	}
	return Decision{Allowed: true, Remaining: l.settings.Max - rec.count}, nil
}

// Sweep drops records whose window has elapsed and returns how many were removed.
func (l *MemoryLimiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, rec := range l.records {
		if !now.Before(rec.resetAt) {
			delete(l.records, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (l *MemoryLimiter) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
