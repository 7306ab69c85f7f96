package ports

import (
	"context"

	"pulse-core-analytics-layer/internal/domain"
)

// InsightGenerator produces free-text narrative insight from a structured
// analytics sample. It is best-effort: callers log its errors and continue;
// the numeric analytics path never depends on it.
type InsightGenerator interface {
	GenerateInsight(ctx context.Context, bundle *domain.AnalyticsBundle) (string, error)
}
