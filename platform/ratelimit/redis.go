package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the counter, starts the window on the first
// hit, and returns the new count with the remaining window in milliseconds.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiter shares window counters between instances through Redis.
type RedisLimiter struct {
	client   redis.UniversalClient
	settings Settings
	prefix   string
}

// NewRedisLimiter creates a Redis-backed limiter. Keys are namespaced by prefix.
func NewRedisLimiter(client redis.UniversalClient, prefix string, settings Settings) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{
		client:   client,
		settings: settings.withDefaults(),
		prefix:   prefix,
	}
}

// Admit implements RateLimiter.
func (l *RedisLimiter) Admit(ctx context.Context, clientKey string) (Decision, error) {
	key := fmt.Sprintf("%s:%s", l.prefix, clientKey)
	raw, err := fixedWindowScript.Run(ctx, l.client, []string{key}, l.settings.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(raw) != 2 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected reply length %d", len(raw))
	}

	count, ttl := int(raw[0]), time.Duration(raw[1])*time.Millisecond
	if count > l.settings.Max {
		return Decision{Allowed: false, RetryAfter: ttl}, nil
	}
	return Decision{Allowed: true, Remaining: l.settings.Max - count}, nil
}
