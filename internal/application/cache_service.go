package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"pulse-core-analytics-layer/internal/domain"
	"pulse-core-analytics-layer/internal/infrastructure/metrics"
	"pulse-core-analytics-layer/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheTTL = 6 * time.Hour
	fastModeTTLCap  = 15 * time.Minute
)

// AnalyticsComputer is the slice of the analytics service the cache manager
// depends on.
type AnalyticsComputer interface {
	Compute(ctx context.Context, clientID string, platform domain.PlatformType, fastMode bool) (*domain.AnalyticsBundle, error)
}

// CacheService decides per request whether cached analytics are fresh enough
// to serve or must be recomputed. Concurrent recomputations of the same
// (client, endpoint, params) key collapse into one flight; distinct keys run
// fully independently.
type CacheService struct {
	store        ports.CacheStore
	analytics    AnalyticsComputer
	integrations ports.IntegrationRepository
	recorder     *metrics.Recorder
	logger       zerolog.Logger

	group singleflight.Group
	now   func() time.Time
}

// NewCacheService creates a new cache service
func NewCacheService(
	store ports.CacheStore,
	analytics AnalyticsComputer,
	integrations ports.IntegrationRepository,
	recorder *metrics.Recorder,
	logger zerolog.Logger,
) *CacheService {
	return &CacheService{
		store:        store,
		analytics:    analytics,
		integrations: integrations,
		recorder:     recorder,
		logger:       logger,
		now:          time.Now,
	}
}

// GetOrCompute serves a cached analytics bundle when it is still fresh, and
// otherwise recomputes and overwrites the entry whole. forceRefresh bypasses
// freshness; fastMode shortens the entry's lifetime.
func (s *CacheService) GetOrCompute(
	ctx context.Context,
	clientID string,
	endpointKey string,
	params map[string]string,
	forceRefresh bool,
	fastMode bool,
) (*domain.CachedResponse, error) {
	fingerprint := paramsFingerprint(endpointKey, params, fastMode)

	if !forceRefresh {
		if response := s.lookup(ctx, clientID, endpointKey, fingerprint); response != nil {
			s.observeCache("hit")
			return response, nil
		}
		s.observeCache("miss")
	}

	flightKey := clientID + "|" + endpointKey + "|" + fingerprint
	value, err, shared := s.group.Do(flightKey, func() (interface{}, error) {
		// Another request may have finished the same recomputation while we
		// waited for the flight; serve its entry instead of recomputing.
		if !forceRefresh {
			if response := s.lookup(ctx, clientID, endpointKey, fingerprint); response != nil {
				return response, nil
			}
		}
		return s.recompute(ctx, clientID, endpointKey, fingerprint, params, fastMode)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute analytics for client %s: %w", clientID, err)
	}

	if shared {
		s.logger.Debug().
			Str("clientId", clientID).
			Str("endpointKey", endpointKey).
			Msg("Served shared in-flight computation")
	}

	return value.(*domain.CachedResponse), nil
}

// lookup returns the cached response when a fresh entry exists, nil otherwise.
// Cache backend failures degrade to a miss.
func (s *CacheService) lookup(ctx context.Context, clientID, endpointKey, fingerprint string) *domain.CachedResponse {
	entry, err := s.store.Get(ctx, clientID, endpointKey, fingerprint)
	if err != nil {
		s.logger.Warn().Err(err).Str("clientId", clientID).Msg("Cache read failed, treating as miss")
		return nil
	}
	if entry == nil || !entry.Fresh(s.now()) {
		return nil
	}

	var bundle domain.AnalyticsBundle
	if err := json.Unmarshal(entry.Payload, &bundle); err != nil {
		return nil
	}

	return &domain.CachedResponse{
		Source:     domain.SourceCache,
		Bundle:     &bundle,
		ComputedAt: entry.ComputedAt,
	}
}

// recompute runs the analytics computation and replaces the cache entry.
func (s *CacheService) recompute(
	ctx context.Context,
	clientID string,
	endpointKey string,
	fingerprint string,
	params map[string]string,
	fastMode bool,
) (*domain.CachedResponse, error) {
	s.observeCache("recompute")

	platform := domain.PlatformAll
	if p, ok := params["platform"]; ok && p != "" {
		platform = domain.PlatformType(p)
	}

	bundle, err := s.analytics.Compute(ctx, clientID, platform, fastMode)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analytics bundle: %w", err)
	}

	computedAt := s.now()
	entry := &domain.CacheEntry{
		ClientID:          clientID,
		EndpointKey:       endpointKey,
		ParamsFingerprint: fingerprint,
		Payload:           payload,
		ComputedAt:        computedAt,
		TTL:               s.entryTTL(ctx, clientID, platform, fastMode),
	}

	// A failed cache write must not fail the request; the next request just
	// recomputes again.
	if err := s.store.Set(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("clientId", clientID).Msg("Failed to write cache entry")
	}

	source := domain.SourceComputed
	if len(bundle.SectionErrors) > 0 {
		source = domain.SourceComputedPartial
	}

	return &domain.CachedResponse{
		Source:     source,
		Bundle:     bundle,
		ComputedAt: computedAt,
	}, nil
}

// entryTTL derives the cache lifetime from the integration's sync cadence,
// capped down in fast mode.
func (s *CacheService) entryTTL(ctx context.Context, clientID string, platform domain.PlatformType, fastMode bool) time.Duration {
	ttl := defaultCacheTTL

	if s.integrations != nil && platform != domain.PlatformAll {
		integration, err := s.integrations.GetByClientAndPlatform(ctx, clientID, platform)
		if err != nil {
			s.logger.Warn().Err(err).Str("clientId", clientID).Msg("Falling back to default cache TTL")
		} else if integration != nil {
			ttl = integration.SyncTTL()
		}
	}

	if fastMode && ttl > fastModeTTLCap {
		ttl = fastModeTTLCap
	}
	return ttl
}

func (s *CacheService) observeCache(outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveCache(outcome)
	}
}

// paramsFingerprint produces a stable digest of the request parameters, so
// semantically identical requests share one cache entry regardless of map
// iteration order.
func paramsFingerprint(endpointKey string, params map[string]string, fastMode bool) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	hasher := sha256.New()
	hasher.Write([]byte(endpointKey))
	for _, key := range keys {
		hasher.Write([]byte("|" + key + "=" + params[key]))
	}
	if fastMode {
		hasher.Write([]byte("|fast"))
	}

	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
