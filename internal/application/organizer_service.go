package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"pulse-core-analytics-layer/internal/domain"
	"pulse-core-analytics-layer/internal/ports"

	"github.com/rs/zerolog"
)

// OrganizerService classifies a client's raw records into semantic categories
// and persists them idempotently, keyed by a stable natural key.
type OrganizerService struct {
	rawRecords ports.RawRecordRepository
	organized  ports.OrganizedEntityRepository
	logger     zerolog.Logger
	now        func() time.Time
}

// NewOrganizerService creates a new organizer service
func NewOrganizerService(
	rawRecords ports.RawRecordRepository,
	organized ports.OrganizedEntityRepository,
	logger zerolog.Logger,
) *OrganizerService {
	return &OrganizerService{
		rawRecords: rawRecords,
		organized:  organized,
		logger:     logger,
		now:        time.Now,
	}
}

// Categorize classifies raw records into category buckets. It is a pure
// function: no I/O, and the same input set always yields the same buckets
// regardless of input order (each bucket is sorted by natural key).
func (s *OrganizerService) Categorize(records []domain.RawRecord) map[domain.Category][]domain.OrganizedEntity {
	buckets := make(map[domain.Category][]domain.OrganizedEntity)

	for _, record := range records {
		category := classifyPayload(record.Payload)
		buckets[category] = append(buckets[category], domain.OrganizedEntity{
			ClientID:   record.ClientID,
			Category:   category,
			NaturalKey: naturalKey(record),
			Payload:    record.Payload,
		})
	}

	for category := range buckets {
		bucket := buckets[category]
		sort.Slice(bucket, func(i, j int) bool {
			return bucket[i].NaturalKey < bucket[j].NaturalKey
		})
	}

	return buckets
}

// OrganizeClientData fetches, categorizes, and persists one client's raw
// data. A client with zero records is a success with zero counts. One
// category's persistence failure does not abort the others; Success is true
// only when every category persisted cleanly.
func (s *OrganizerService) OrganizeClientData(ctx context.Context, clientID string) (*domain.OrganizeResult, error) {
	start := s.now()

	result := &domain.OrganizeResult{
		ClientID:         clientID,
		OrganizedRecords: make(map[domain.Category]int),
	}

	records, err := s.rawRecords.ListByClient(ctx, clientID)
	if err != nil {
		result.ProcessingTimeSeconds = s.now().Sub(start).Seconds()
		return result, fmt.Errorf("failed to fetch raw records for client %s: %w", clientID, err)
	}

	result.TotalRawRecords = len(records)
	if len(records) == 0 {
		result.Success = true
		result.ProcessingTimeSeconds = s.now().Sub(start).Seconds()
		s.logger.Info().Str("clientId", clientID).Msg("No raw records to organize")
		return result, nil
	}

	buckets := s.Categorize(records)
	organizedAt := s.now()

	result.Success = true
	for _, category := range categoryOrder(buckets) {
		entities := buckets[category]
		for i := range entities {
			entities[i].OrganizedAt = organizedAt
		}

		if _, err := s.organized.UpsertBatch(ctx, entities); err != nil {
			if result.CategoryErrors == nil {
				result.CategoryErrors = make(map[domain.Category]string)
			}
			result.CategoryErrors[category] = err.Error()
			result.Success = false
			s.logger.Error().
				Err(err).
				Str("clientId", clientID).
				Str("category", string(category)).
				Msg("Failed to persist organized category")
			continue
		}

		result.OrganizedRecords[category] = len(entities)
		result.TotalOrganized += len(entities)
	}

	result.ProcessingTimeSeconds = s.now().Sub(start).Seconds()

	s.logger.Info().
		Str("clientId", clientID).
		Int("totalRawRecords", result.TotalRawRecords).
		Int("totalOrganized", result.TotalOrganized).
		Bool("success", result.Success).
		Msg("Organized client data")

	return result, nil
}

// categoryOrder returns the bucket keys in a fixed order so persistence and
// result aggregation are deterministic.
func categoryOrder(buckets map[domain.Category][]domain.OrganizedEntity) []domain.Category {
	categories := make([]domain.Category, 0, len(buckets))
	for category := range buckets {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	return categories
}

// classifyPayload assigns a raw payload to a semantic category by its shape.
// Order signals win over product signals because marketplace order payloads
// often embed product fields.
func classifyPayload(payload json.RawMessage) domain.Category {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return domain.CategoryUnclassified
	}

	hasAny := func(keys ...string) bool {
		for _, key := range keys {
			if _, ok := fields[key]; ok {
				return true
			}
		}
		return false
	}

	switch {
	case hasAny("order_number", "amazon_order_id", "order_total", "total_price"):
		return domain.CategoryOrders
	case hasAny("variants", "asin", "product_type", "sku", "seller_sku"):
		return domain.CategoryProducts
	case hasAny("inventory_quantity", "quantity_available", "stock_level"):
		return domain.CategoryInventory
	default:
		return domain.CategoryUnclassified
	}
}

// naturalKey derives the stable key used for idempotent upserts: the
// payload's own external identifier when it carries one, the raw record ID
// otherwise.
func naturalKey(record domain.RawRecord) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(record.Payload, &fields); err != nil {
		return record.ID
	}

	for _, key := range []string{"id", "amazon_order_id", "asin", "sku", "seller_sku"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil && asString != "" {
			return record.SourceHint + ":" + asString
		}
		var asNumber json.Number
		if err := json.Unmarshal(raw, &asNumber); err == nil && asNumber.String() != "" {
			return record.SourceHint + ":" + asNumber.String()
		}
	}

	return record.ID
}
