package ports

import (
	"context"

	"pulse-core-analytics-layer/internal/domain"
)

// PlatformPopulator is the capability set one commerce platform plugs into
// the pipeline: fetch the client's raw records, recognize the platform's
// payload shapes, and upsert the normalized entities. New platforms register
// a populator; the scheduler never changes.
type PlatformPopulator interface {
	// Type returns the platform this populator serves.
	Type() domain.PlatformType

	// FetchClientData returns the client's raw records. Empty input is a
	// normal state, not an error.
	FetchClientData(ctx context.Context, clientID string) ([]domain.RawRecord, error)

	// Extract is a pure classification step: it recognizes this platform's
	// order and product payload shapes inside generic raw records and skips
	// everything else silently.
	Extract(records []domain.RawRecord) domain.Extraction

	// Populate runs fetch → extract → upsert for one client and reports
	// granular counts. Re-running against unchanged raw data yields the same
	// entity set.
	Populate(ctx context.Context, clientID string) (*domain.PopulateResult, error)
}
