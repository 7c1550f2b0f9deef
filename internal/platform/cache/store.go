package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss indicates the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a small JSON read-through cache with a fixed TTL. It is used for
// upstream documents that are cheap to re-fetch but read on nearly every
// request, such as the period closing configuration singleton.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore builds a Store. A nil client disables caching: every Get misses
// and Set/Delete become no-ops.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Get unmarshals the cached value for key into target.
func (s *Store) Get(ctx context.Context, key string, target any) error {
	if s == nil || s.client == nil {
		return ErrMiss
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}
	return json.Unmarshal(raw, target)
}

// Set stores value under key for the configured TTL.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	if s == nil || s.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, s.ttl).Err()
}

// Delete drops a cached key, typically after the source document changed.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}
