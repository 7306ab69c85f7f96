package ports

import (
	"context"

	"pulse-core-analytics-layer/internal/domain"
)

// CacheStore reads and writes analytics cache entries keyed by
// (client, endpoint, params fingerprint). Writes replace the whole entry.
// A miss is (nil, nil); errors mean the cache backend itself failed.
type CacheStore interface {
	Get(ctx context.Context, clientID, endpointKey, fingerprint string) (*domain.CacheEntry, error)
	Set(ctx context.Context, entry *domain.CacheEntry) error
	Delete(ctx context.Context, clientID, endpointKey, fingerprint string) error
}
