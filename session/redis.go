package session

import (
	"context"
	"time"

	"github.com/BaSui01/imageflow/internal/cache"
)

// KeyPrefix namespaces session records inside the shared Redis keyspace.
const KeyPrefix = "imageflow:session:"

// RedisStore persists sessions through the shared cache manager so multiple
// service instances observe the same session state. Records carry a sliding
// TTL refreshed on every Put.
type RedisStore struct {
	cache *cache.Manager
	ttl   time.Duration
}

// NewRedisStore wraps an existing cache manager. The manager's lifecycle
// belongs to the caller; Close on the store never closes the manager.
func NewRedisStore(manager *cache.Manager, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{cache: manager, ttl: ttl}
}

func sessionKey(id string) string {
	return KeyPrefix + id
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	var sess Session
	if err := s.cache.GetJSON(ctx, sessionKey(id), &sess); err != nil {
		if cache.IsCacheMiss(err) {
			return nil, notFoundError(id)
		}
		return nil, storeError("get", err)
	}
	return &sess, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, sess *Session) error {
	if err := s.cache.SetJSON(ctx, sessionKey(sess.ID), sess, s.ttl); err != nil {
		return storeError("put", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, sessionKey(id)); err != nil {
		return storeError("delete", err)
	}
	return nil
}

// Len implements Store. Redis drops expired keys itself, so a SCAN count is
// exact enough for gauges.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	count, err := s.cache.CountKeys(ctx, KeyPrefix+"*")
	if err != nil {
		return 0, storeError("len", err)
	}
	return int(count), nil
}

// Close implements Store. The underlying cache manager stays open.
func (s *RedisStore) Close() error {
	return nil
}
