package ports

import (
	"context"

	"pulse-core-analytics-layer/internal/domain"
)

// RawRecordRepository reads a client's unorganized records. A client with no
// data yields an empty slice, not an error; errors are reserved for genuine
// backend failures.
type RawRecordRepository interface {
	ListByClient(ctx context.Context, clientID string) ([]domain.RawRecord, error)
}

// OrganizedEntityRepository persists categorized records keyed by their
// natural key, so re-organizing the same raw data never duplicates rows.
type OrganizedEntityRepository interface {
	UpsertBatch(ctx context.Context, entities []domain.OrganizedEntity) (int, error)
	CountByCategory(ctx context.Context, clientID string) (map[domain.Category]int, error)
}

// OrderRepository persists normalized orders. UpsertBatch returns the number
// of rows actually changed (inserted or modified) in this call.
type OrderRepository interface {
	UpsertBatch(ctx context.Context, orders []domain.Order) (int, error)
	ListByClient(ctx context.Context, clientID string, platform domain.PlatformType) ([]domain.Order, error)
}

// ProductRepository persists normalized products with the same changed-row
// semantics as OrderRepository.
type ProductRepository interface {
	UpsertBatch(ctx context.Context, products []domain.Product) (int, error)
	ListByClient(ctx context.Context, clientID string, platform domain.PlatformType) ([]domain.Product, error)
}

// IntegrationRepository manages platform integration records and their sync
// schedule metadata.
type IntegrationRepository interface {
	Create(ctx context.Context, integration *domain.PlatformIntegration) error
	GetByClientAndPlatform(ctx context.Context, clientID string, platform domain.PlatformType) (*domain.PlatformIntegration, error)
	ListActive(ctx context.Context) ([]*domain.PlatformIntegration, error)
	UpdateSyncTimes(ctx context.Context, integration *domain.PlatformIntegration) error
}

// SettingsRepository stores per-client alert thresholds. A client without
// stored settings yields (nil, nil) and callers fall back to defaults.
type SettingsRepository interface {
	GetThresholds(ctx context.Context, clientID string) (*domain.AlertThresholds, error)
	SaveThresholds(ctx context.Context, clientID string, thresholds domain.AlertThresholds) error
}
