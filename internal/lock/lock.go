// Package lock serializes payment verification per reference.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ms-booking/internal/logger"

	"github.com/go-redis/redis/v8"
)

const DefaultTTL = 30 * time.Second

// ErrHeld means another owner holds the lock.
var ErrHeld = errors.New("lock held by another owner")

// Locker acquires a named lock for owner. The lock lapses after the TTL if never released.
type Locker interface {
	Acquire(ctx context.Context, key, owner string) error
	Release(ctx context.Context, key, owner string) error
}

func verifyKey(key string) string {
	return "verify_lock:" + key
}

// ---------------- REDIS ----------------

type Redis struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

var _ Locker = (*Redis)(nil)

func NewRedis(client *redis.Client, ttl time.Duration, log *logger.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{Client: client, TTL: ttl, Logger: log}
}

func (r *Redis) Acquire(ctx context.Context, key, owner string) error {
	ok, err := r.Client.SetNX(ctx, verifyKey(key), owner, r.TTL).Result()
	if err != nil {
		return fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrHeld)
	}
	return nil
}

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Release deletes the key only if owner still holds it.
func (r *Redis) Release(ctx context.Context, key, owner string) error {
	k := verifyKey(key)
	n, err := releaseScript.Run(ctx, r.Client, []string{k}, owner).Int()
	if err != nil {
		return fmt.Errorf("redis unlock %s: %w", key, err)
	}
	if n == 0 {
		r.Logger.Debug("REDIS", fmt.Sprintf("Lock %s not held by %s, nothing released", k, owner))
	}
	return nil
}

// ---------------- IN-PROCESS ----------------

// Local is the single-instance Locker used when Redis is not configured.
type Local struct {
	mu    sync.Mutex
	TTL   time.Duration
	held  map[string]localHold
	clock func() time.Time
}

type localHold struct {
	owner   string
	expires time.Time
}

var _ Locker = (*Local)(nil)

func NewLocal(ttl time.Duration) *Local {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Local{TTL: ttl, held: make(map[string]localHold), clock: time.Now}
}

func (l *Local) Acquire(ctx context.Context, key, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if h, ok := l.held[key]; ok && now.Before(h.expires) {
		return fmt.Errorf("%s: %w", key, ErrHeld)
	}
	l.held[key] = localHold{owner: owner, expires: now.Add(l.TTL)}
	return nil
}

func (l *Local) Release(_ context.Context, key, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.held[key]; ok && h.owner == owner {
		delete(l.held, key)
	}
	return nil
}
