// Package distlock provides cross-process mutual exclusion for jobs that must
// not overlap, backed by Redis or PostgreSQL advisory locks.
package distlock

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Release when the lock is not owned by the caller.
var ErrNotHeld = errors.New("distlock: lock not held")

// Lock is a non-blocking distributed lock.
// A Lock value must not be shared between concurrent holders; create one per attempt.
type Lock interface {
	// Acquire tries to take the lock and reports whether it succeeded.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock back if it is still owned.
	Release(ctx context.Context) error
}

// Extender is implemented by locks that expire unless refreshed.
type Extender interface {
	// Extend pushes the expiry out by TTL. It returns ErrNotHeld once the
	// lock has lapsed or passed to another holder.
	Extend(ctx context.Context) error
	TTL() time.Duration
}

// Factory creates a fresh Lock for key.
type Factory func(key string) Lock

// NewFactory picks Redis when a client is given, otherwise PostgreSQL.
func NewFactory(redisClient redis.UniversalClient, pool *pgxpool.Pool, ttl time.Duration) Factory {
	if redisClient != nil {
		return func(key string) Lock { return NewRedisLock(redisClient, key, ttl) }
	}
	return func(key string) Lock { return NewPGAdvisoryLock(pool, key) }
}

// =============================================================================
// Redis lock
// =============================================================================

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLock is a SET NX PX lock with an owner token. The TTL bounds how long
// a crashed holder can block others.
type RedisLock struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	token  string
}

var _ Extender = (*RedisLock)(nil)

// NewRedisLock creates a lock on key that expires after ttl.
func NewRedisLock(client redis.UniversalClient, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{
		client: client,
		key:    "lock:" + key,
		ttl:    ttl,
		token:  uuid.NewString(),
	}
}

// Acquire implements Lock.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	return ok, nil
}

// Release implements Lock.
func (l *RedisLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// TTL implements Extender.
func (l *RedisLock) TTL() time.Duration {
	return l.ttl
}

// Extend pushes the expiry out by the lock TTL if still owned.
func (l *RedisLock) Extend(ctx context.Context) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// =============================================================================
// PostgreSQL advisory lock
// =============================================================================

// PGAdvisoryLock holds a session-scoped advisory lock on a dedicated pool
// connection. The lock is dropped by the server if that connection dies.
type PGAdvisoryLock struct {
	pool   *pgxpool.Pool
	lockID int64

	mu   sync.Mutex
	conn *pgxpool.Conn
}

// NewPGAdvisoryLock derives a stable lock id from key.
func NewPGAdvisoryLock(pool *pgxpool.Pool, key string) *PGAdvisoryLock {
	return &PGAdvisoryLock{pool: pool, lockID: AdvisoryKey(key)}
}

// AdvisoryKey hashes key into the bigint space used by pg_advisory_lock.
func AdvisoryKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

// Acquire implements Lock.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return false, nil
	}

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Release()
		return false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return false, nil
	}

	l.conn = conn
	return true, nil
}

// Release implements Lock.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return ErrNotHeld
	}
	conn := l.conn
	l.conn = nil
	defer conn.Release()

	var released bool
	if err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", l.lockID).Scan(&released); err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	if !released {
		return ErrNotHeld
	}
	return nil
}
