package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pulse-core-analytics-layer/internal/domain"
	"pulse-core-analytics-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultKPIWindowDays  = 30
	defaultFastSampleSize = 500
)

// AnalyticsService computes the derived analytics bundle (KPIs, trend series,
// stock alerts) from a client's populated platform entities. A sub-section's
// failure degrades the bundle instead of failing it.
type AnalyticsService struct {
	orders     ports.OrderRepository
	products   ports.ProductRepository
	rawRecords ports.RawRecordRepository
	settings   ports.SettingsRepository
	insight    ports.InsightGenerator
	logger     zerolog.Logger

	windowDays     int
	fastSampleSize int
	now            func() time.Time
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(
	orders ports.OrderRepository,
	products ports.ProductRepository,
	rawRecords ports.RawRecordRepository,
	settings ports.SettingsRepository,
	insight ports.InsightGenerator,
	logger zerolog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		orders:         orders,
		products:       products,
		rawRecords:     rawRecords,
		settings:       settings,
		insight:        insight,
		logger:         logger,
		windowDays:     defaultKPIWindowDays,
		fastSampleSize: defaultFastSampleSize,
		now:            time.Now,
	}
}

// Compute builds the analytics bundle for one client and platform scope.
// Fast mode bounds the entity sample for latency; both modes return the same
// shape. The returned bundle is always usable: failed sub-sections are
// recorded in SectionErrors and the rest is populated.
func (s *AnalyticsService) Compute(ctx context.Context, clientID string, platform domain.PlatformType, fastMode bool) (*domain.AnalyticsBundle, error) {
	bundle := &domain.AnalyticsBundle{
		ClientID:      clientID,
		Platform:      platform,
		FastMode:      fastMode,
		SKUList:       []string{},
		SectionErrors: map[string]string{},
		ComputedAt:    s.now(),
	}

	orders, ordersErr := s.orders.ListByClient(ctx, clientID, platform)
	if ordersErr != nil {
		bundle.SectionErrors["orders"] = ordersErr.Error()
		s.logger.Error().Err(ordersErr).Str("clientId", clientID).Msg("Failed to load orders for analytics")
	}

	products, productsErr := s.products.ListByClient(ctx, clientID, platform)
	if productsErr != nil {
		bundle.SectionErrors["products"] = productsErr.Error()
		s.logger.Error().Err(productsErr).Str("clientId", clientID).Msg("Failed to load products for analytics")
	}

	if fastMode {
		orders = sampleRecentOrders(orders, s.fastSampleSize)
		if len(products) > s.fastSampleSize {
			products = products[:s.fastSampleSize]
		}
	}

	if ordersErr == nil && productsErr == nil {
		bundle.KPIs = computeKPIs(orders, products, s.windowDays, fastMode, s.now())
	} else {
		bundle.SectionErrors["kpis"] = "skipped: entity load failed"
	}

	if ordersErr == nil {
		// Built by a single pure function, invoked exactly once per compute.
		bundle.Trends = buildTrendSeries(orders, s.windowDays, s.now())
	} else {
		bundle.SectionErrors["trends"] = "skipped: order load failed"
	}

	if productsErr == nil {
		bundle.Alerts = s.computeAlerts(ctx, clientID, products, bundle.SectionErrors)
		bundle.SKUList = skuList(products)
	} else {
		bundle.SectionErrors["alerts"] = "skipped: product load failed"
	}

	bundle.DataSummary = s.computeDataSummary(ctx, clientID, orders, products, bundle.SectionErrors)

	s.generateInsight(ctx, bundle)

	if len(bundle.SectionErrors) == 0 {
		bundle.SectionErrors = nil
	}

	return bundle, nil
}

// computeAlerts evaluates stock levels against the client's thresholds. A
// settings load failure degrades to defaults and is recorded, not fatal.
func (s *AnalyticsService) computeAlerts(ctx context.Context, clientID string, products []domain.Product, sectionErrors map[string]string) *domain.AlertSummary {
	thresholds := domain.DefaultAlertThresholds()
	if s.settings != nil {
		stored, err := s.settings.GetThresholds(ctx, clientID)
		if err != nil {
			sectionErrors["alert_settings"] = err.Error()
			s.logger.Warn().Err(err).Str("clientId", clientID).Msg("Falling back to default alert thresholds")
		} else if stored != nil {
			thresholds = *stored
		}
	}

	summary := &domain.AlertSummary{Alerts: []domain.StockAlert{}}
	for _, product := range products {
		switch {
		case product.InventoryQuantity <= thresholds.LowStock:
			summary.LowStockAlerts++
			summary.Alerts = append(summary.Alerts, domain.StockAlert{
				SKU:          product.SKU,
				Title:        product.Title,
				PlatformType: product.PlatformType,
				Quantity:     product.InventoryQuantity,
				Kind:         "low_stock",
			})
		case product.InventoryQuantity >= thresholds.Overstock:
			summary.OverstockAlerts++
			summary.Alerts = append(summary.Alerts, domain.StockAlert{
				SKU:          product.SKU,
				Title:        product.Title,
				PlatformType: product.PlatformType,
				Quantity:     product.InventoryQuantity,
				Kind:         "overstock",
			})
		}
	}
	summary.TotalAlerts = summary.LowStockAlerts + summary.OverstockAlerts
	return summary
}

// computeDataSummary reports record counts per source for the read path.
func (s *AnalyticsService) computeDataSummary(ctx context.Context, clientID string, orders []domain.Order, products []domain.Product, sectionErrors map[string]string) *domain.DataSummary {
	summary := &domain.DataSummary{
		Orders:   make(map[domain.PlatformType]int),
		Products: make(map[domain.PlatformType]int),
	}

	for _, order := range orders {
		summary.Orders[order.PlatformType]++
	}
	for _, product := range products {
		summary.Products[product.PlatformType]++
	}

	if s.rawRecords != nil {
		records, err := s.rawRecords.ListByClient(ctx, clientID)
		if err != nil {
			sectionErrors["data_summary"] = err.Error()
		} else {
			summary.RawRecords = len(records)
		}
	}

	return summary
}

// generateInsight attaches the best-effort narrative insight. Its failure is
// logged and ignored; the numeric analytics path never depends on it.
func (s *AnalyticsService) generateInsight(ctx context.Context, bundle *domain.AnalyticsBundle) {
	if s.insight == nil {
		return
	}

	text, err := s.insight.GenerateInsight(ctx, bundle)
	if err != nil {
		s.logger.Warn().Err(err).Str("clientId", bundle.ClientID).Msg("Insight generation failed")
		return
	}
	bundle.Insight = text
}

// computeKPIs aggregates the trailing-window revenue and the current
// inventory position.
func computeKPIs(orders []domain.Order, products []domain.Product, windowDays int, approximate bool, now time.Time) *domain.KPISummary {
	cutoff := now.AddDate(0, 0, -windowDays)

	revenue := decimal.Zero
	orderCount := 0
	for _, order := range orders {
		if order.PlacedAt.Before(cutoff) {
			continue
		}
		revenue = revenue.Add(order.TotalPrice)
		orderCount++
	}

	averageOrderValue := decimal.Zero
	if orderCount > 0 {
		averageOrderValue = revenue.DivRound(decimal.NewFromInt(int64(orderCount)), 2)
	}

	inventoryUnits := 0
	inventoryValue := decimal.Zero
	for _, product := range products {
		inventoryUnits += product.InventoryQuantity
		inventoryValue = inventoryValue.Add(product.Price.Mul(decimal.NewFromInt(int64(product.InventoryQuantity))))
	}

	turnover := 0.0
	if inventoryValue.IsPositive() {
		turnover = revenue.DivRound(inventoryValue, 4).InexactFloat64()
	}

	return &domain.KPISummary{
		WindowDays:        windowDays,
		Revenue:           revenue,
		OrderCount:        orderCount,
		AverageOrderValue: averageOrderValue,
		InventoryUnits:    inventoryUnits,
		InventoryTurnover: turnover,
		Approximate:       approximate,
	}
}

// buildTrendSeries buckets the trailing window of orders into daily points
// and a weekly rollup. Pure: same orders in, same series out, and each order
// contributes to exactly one daily bucket.
func buildTrendSeries(orders []domain.Order, windowDays int, now time.Time) *domain.TrendSeries {
	cutoff := now.AddDate(0, 0, -windowDays)

	daily := make(map[string]*domain.TrendPoint)
	weekly := make(map[string]*domain.TrendPoint)

	for _, order := range orders {
		if order.PlacedAt.Before(cutoff) {
			continue
		}

		day := order.PlacedAt.Format("2006-01-02")
		if _, ok := daily[day]; !ok {
			daily[day] = &domain.TrendPoint{Bucket: day}
		}
		daily[day].Revenue = daily[day].Revenue.Add(order.TotalPrice)
		daily[day].OrderCount++

		year, week := order.PlacedAt.ISOWeek()
		weekKey := fmt.Sprintf("%d-W%02d", year, week)
		if _, ok := weekly[weekKey]; !ok {
			weekly[weekKey] = &domain.TrendPoint{Bucket: weekKey}
		}
		weekly[weekKey].Revenue = weekly[weekKey].Revenue.Add(order.TotalPrice)
		weekly[weekKey].OrderCount++
	}

	return &domain.TrendSeries{
		Daily:  sortedPoints(daily),
		Weekly: sortedPoints(weekly),
	}
}

func sortedPoints(buckets map[string]*domain.TrendPoint) []domain.TrendPoint {
	points := make([]domain.TrendPoint, 0, len(buckets))
	for _, point := range buckets {
		points = append(points, *point)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Bucket < points[j].Bucket })
	return points
}

// sampleRecentOrders bounds the order set to the most recent n for fast mode.
func sampleRecentOrders(orders []domain.Order, n int) []domain.Order {
	if len(orders) <= n {
		return orders
	}
	sampled := make([]domain.Order, len(orders))
	copy(sampled, orders)
	sort.Slice(sampled, func(i, j int) bool { return sampled[i].PlacedAt.After(sampled[j].PlacedAt) })
	return sampled[:n]
}

// skuList returns the sorted, de-duplicated SKUs of a client's products.
func skuList(products []domain.Product) []string {
	seen := make(map[string]struct{})
	skus := []string{}
	for _, product := range products {
		if product.SKU == "" {
			continue
		}
		if _, ok := seen[product.SKU]; ok {
			continue
		}
		seen[product.SKU] = struct{}{}
		skus = append(skus, product.SKU)
	}
	sort.Strings(skus)
	return skus
}
