package populators

import (
	"context"
	"fmt"
	"time"

	"pulse-core-analytics-layer/internal/domain"
	"pulse-core-analytics-layer/internal/ports"

	"github.com/rs/zerolog"
)

// basePopulator carries the storage handles and the fetch/upsert flow shared
// by every platform populator; each platform contributes only its Extract.
type basePopulator struct {
	platform domain.PlatformType
	records  ports.RawRecordRepository
	orders   ports.OrderRepository
	products ports.ProductRepository
	logger   zerolog.Logger
	now      func() time.Time
}

// Type returns the platform this populator serves
func (b *basePopulator) Type() domain.PlatformType {
	return b.platform
}

// FetchClientData returns the client's raw records. Empty input is a normal
// state, not an error.
func (b *basePopulator) FetchClientData(ctx context.Context, clientID string) ([]domain.RawRecord, error) {
	return b.records.ListByClient(ctx, clientID)
}

// populate runs fetch → extract → upsert and reports granular counts.
// Finding zero platform-relevant records is a success with zero counts;
// inserted counts are rows actually changed, so a re-run against unchanged
// raw data reports zero inserts.
func (b *basePopulator) populate(
	ctx context.Context,
	clientID string,
	extract func([]domain.RawRecord) domain.Extraction,
) (*domain.PopulateResult, error) {
	start := b.now()

	result := &domain.PopulateResult{
		ClientID:     clientID,
		PlatformType: b.platform,
	}

	records, err := b.FetchClientData(ctx, clientID)
	if err != nil {
		result.Error = err.Error()
		result.ProcessingTimeSeconds = b.now().Sub(start).Seconds()
		return result, fmt.Errorf("failed to fetch raw records for client %s: %w", clientID, err)
	}

	result.RawRecordsProcessed = len(records)

	extraction := extract(records)
	result.OrdersFound = len(extraction.Orders)
	result.ProductsFound = len(extraction.Products)

	if result.OrdersFound == 0 && result.ProductsFound == 0 {
		result.Success = true
		result.ProcessingTimeSeconds = b.now().Sub(start).Seconds()
		b.logger.Info().
			Str("clientId", clientID).
			Str("platform", string(b.platform)).
			Int("rawRecords", result.RawRecordsProcessed).
			Msg("No platform-relevant records found")
		return result, nil
	}

	ordersChanged, ordersErr := b.orders.UpsertBatch(ctx, extraction.Orders)
	if ordersErr != nil {
		result.Error = ordersErr.Error()
		b.logger.Error().
			Err(ordersErr).
			Str("clientId", clientID).
			Str("platform", string(b.platform)).
			Msg("Failed to upsert orders")
	}
	result.OrdersInserted = ordersChanged

	productsChanged, productsErr := b.products.UpsertBatch(ctx, extraction.Products)
	if productsErr != nil {
		if result.Error != "" {
			result.Error += "; "
		}
		result.Error += productsErr.Error()
		b.logger.Error().
			Err(productsErr).
			Str("clientId", clientID).
			Str("platform", string(b.platform)).
			Msg("Failed to upsert products")
	}
	result.ProductsInserted = productsChanged

	result.TotalInserted = result.OrdersInserted + result.ProductsInserted
	result.Success = ordersErr == nil && productsErr == nil
	result.ProcessingTimeSeconds = b.now().Sub(start).Seconds()

	b.logger.Info().
		Str("clientId", clientID).
		Str("platform", string(b.platform)).
		Int("ordersFound", result.OrdersFound).
		Int("productsFound", result.ProductsFound).
		Int("totalInserted", result.TotalInserted).
		Bool("success", result.Success).
		Msg("Populated platform data")

	if !result.Success {
		return result, fmt.Errorf("failed to populate %s data for client %s: %s", b.platform, clientID, result.Error)
	}
	return result, nil
}
