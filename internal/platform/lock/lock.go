// Package lock provides a Redis mutex for period-level critical sections.
//
// Lifecycle transitions (close, reopen, permanent close) mutate an external
// ERPNext document through several sequential calls with no transaction
// around them. The lock serializes concurrent transitions on the same
// period so two simultaneous close requests cannot both create a closing
// journal entry.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld indicates another request currently holds the lock.
var ErrHeld = errors.New("lock: already held")

// releaseScript deletes the key only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker acquires per-period mutexes backed by Redis SET NX.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocker builds a Locker. The TTL bounds how long a crashed holder can
// block other requests.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{client: client, ttl: ttl}
}

// PeriodKey builds the lock key for an accounting period.
func PeriodKey(periodName string) string {
	return fmt.Sprintf("period:%s:lock", periodName)
}

// Acquire takes the lock and returns an opaque token required to release
// it. Returns ErrHeld when the lock is owned by someone else.
func (l *Locker) Acquire(ctx context.Context, key string) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("lock: acquire %s: %w", key, err)
	}
	if !ok {
		return "", ErrHeld
	}
	return token, nil
}

// Release frees the lock if token still owns it. Releasing an expired or
// stolen lock is not an error; the lock simply stays with its new owner.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("lock: release %s: %w", key, err)
	}
	return nil
}
