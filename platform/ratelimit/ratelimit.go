// Package ratelimit provides fixed-window admission control keyed by client.
// This is part of the platform layer and contains no business logic.
package ratelimit

import (
	"context"
	"time"
)

const (
	// DefaultMax is the number of admissions allowed per window.
	DefaultMax = 3
	// DefaultWindow is the length of a fixed window.
	DefaultWindow = 15 * time.Minute
)

// Decision is the outcome of one admission attempt.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below 1.
func (d Decision) RetryAfterSeconds() int {
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// RateLimiter admits or denies a request for clientKey.
//
// The window is fixed, not sliding: the first admission opens a window of
// the configured length and every call inside it counts against the same
// budget until it elapses.
type RateLimiter interface {
	Admit(ctx context.Context, clientKey string) (Decision, error)
}

// Settings configures a limiter.
type Settings struct {
	Max    int
	Window time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.Max <= 0 {
		s.Max = DefaultMax
	}
	if s.Window <= 0 {
		s.Window = DefaultWindow
	}
	return s
}
