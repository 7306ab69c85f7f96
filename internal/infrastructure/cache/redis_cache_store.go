package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pulse-core-analytics-layer/internal/domain"
	"pulse-core-analytics-layer/internal/ports"

	"github.com/redis/go-redis/v9"
)

// RedisCacheStore implements CacheStore on Redis. Entries are stored as JSON
// values under analytics:{client}:{endpoint}:{fingerprint} with the entry's
// TTL as the Redis expiration, so stale entries also age out of the store.
type RedisCacheStore struct {
	client *redis.Client
}

// NewRedisCacheStore creates a new Redis cache store
func NewRedisCacheStore(client *redis.Client) ports.CacheStore {
	return &RedisCacheStore{client: client}
}

func cacheKey(clientID, endpointKey, fingerprint string) string {
	return fmt.Sprintf("analytics:%s:%s:%s", clientID, endpointKey, fingerprint)
}

// Get retrieves a cache entry. A miss is (nil, nil).
func (s *RedisCacheStore) Get(ctx context.Context, clientID, endpointKey, fingerprint string) (*domain.CacheEntry, error) {
	raw, err := s.client.Get(ctx, cacheKey(clientID, endpointKey, fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read cache entry: %v", domain.ErrStorageUnavailable, err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A corrupt entry is treated as a miss; the caller recomputes and
		// overwrites it.
		return nil, nil
	}

	return &entry, nil
}

// Set writes a whole cache entry, replacing any previous one for the key.
func (s *RedisCacheStore) Set(ctx context.Context, entry *domain.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	key := cacheKey(entry.ClientID, entry.EndpointKey, entry.ParamsFingerprint)
	if err := s.client.Set(ctx, key, raw, entry.TTL).Err(); err != nil {
		return fmt.Errorf("%w: failed to write cache entry: %v", domain.ErrStorageUnavailable, err)
	}

	return nil
}

// Delete removes a cache entry. Deleting a missing entry is not an error.
func (s *RedisCacheStore) Delete(ctx context.Context, clientID, endpointKey, fingerprint string) error {
	if err := s.client.Del(ctx, cacheKey(clientID, endpointKey, fingerprint)).Err(); err != nil {
		return fmt.Errorf("%w: failed to delete cache entry: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}
