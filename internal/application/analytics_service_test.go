package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"pulse-core-analytics-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type fakeOrderLister struct {
	orders []domain.Order
	err    error
}

func (f *fakeOrderLister) UpsertBatch(ctx context.Context, orders []domain.Order) (int, error) {
	return len(orders), nil
}

func (f *fakeOrderLister) ListByClient(ctx context.Context, clientID string, platform domain.PlatformType) ([]domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	if platform == domain.PlatformAll {
		return f.orders, nil
	}
	var filtered []domain.Order
	for _, order := range f.orders {
		if order.PlatformType == platform {
			filtered = append(filtered, order)
		}
	}
	return filtered, nil
}

type fakeProductLister struct {
	products []domain.Product
	err      error
}

func (f *fakeProductLister) UpsertBatch(ctx context.Context, products []domain.Product) (int, error) {
	return len(products), nil
}

func (f *fakeProductLister) ListByClient(ctx context.Context, clientID string, platform domain.PlatformType) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	if platform == domain.PlatformAll {
		return f.products, nil
	}
	var filtered []domain.Product
	for _, product := range f.products {
		if product.PlatformType == platform {
			filtered = append(filtered, product)
		}
	}
	return filtered, nil
}

type fakeSettingsRepo struct {
	thresholds *domain.AlertThresholds
	err        error
}

func (f *fakeSettingsRepo) GetThresholds(ctx context.Context, clientID string) (*domain.AlertThresholds, error) {
	return f.thresholds, f.err
}

func (f *fakeSettingsRepo) SaveThresholds(ctx context.Context, clientID string, thresholds domain.AlertThresholds) error {
	f.thresholds = &thresholds
	return nil
}

type fakeInsightGenerator struct {
	text string
	err  error
}

func (f *fakeInsightGenerator) GenerateInsight(ctx context.Context, bundle *domain.AnalyticsBundle) (string, error) {
	return f.text, f.err
}

var analyticsNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func testOrder(platform domain.PlatformType, externalID, total string, placedAt time.Time) domain.Order {
	return domain.Order{
		ClientID:     "c1",
		PlatformType: platform,
		ExternalID:   externalID,
		OrderNumber:  externalID,
		TotalPrice:   decimal.RequireFromString(total),
		Currency:     "USD",
		PlacedAt:     placedAt,
	}
}

func testProduct(platform domain.PlatformType, sku, price string, quantity int) domain.Product {
	return domain.Product{
		ClientID:          "c1",
		PlatformType:      platform,
		ExternalID:        sku,
		Title:             sku,
		SKU:               sku,
		Price:             decimal.RequireFromString(price),
		InventoryQuantity: quantity,
		UpdatedAt:         analyticsNow,
	}
}

func newTestAnalyticsService(orders *fakeOrderLister, products *fakeProductLister, settings *fakeSettingsRepo) *AnalyticsService {
	svc := NewAnalyticsService(orders, products, &fakeRawRecordRepo{}, settings, &fakeInsightGenerator{}, zerolog.Nop())
	svc.now = func() time.Time { return analyticsNow }
	return svc
}

func TestComputeKPIsTrailingWindow(t *testing.T) {
	orders := &fakeOrderLister{orders: []domain.Order{
		testOrder(domain.PlatformShopify, "1", "100.00", analyticsNow.AddDate(0, 0, -5)),
		testOrder(domain.PlatformShopify, "2", "50.00", analyticsNow.AddDate(0, 0, -10)),
		// Outside the 30-day window, must not count.
		testOrder(domain.PlatformShopify, "3", "999.00", analyticsNow.AddDate(0, 0, -45)),
	}}
	products := &fakeProductLister{products: []domain.Product{
		testProduct(domain.PlatformShopify, "SKU-1", "10.00", 5),
	}}
	svc := newTestAnalyticsService(orders, products, &fakeSettingsRepo{})

	bundle, err := svc.Compute(context.Background(), "c1", domain.PlatformAll, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle.KPIs == nil {
		t.Fatal("KPIs: got nil")
	}
	if !bundle.KPIs.Revenue.Equal(decimal.RequireFromString("150.00")) {
		t.Errorf("Revenue: got %s, want 150.00", bundle.KPIs.Revenue)
	}
	if bundle.KPIs.OrderCount != 2 {
		t.Errorf("OrderCount: got %d, want 2", bundle.KPIs.OrderCount)
	}
	if !bundle.KPIs.AverageOrderValue.Equal(decimal.RequireFromString("75.00")) {
		t.Errorf("AverageOrderValue: got %s, want 75.00", bundle.KPIs.AverageOrderValue)
	}
	if bundle.KPIs.InventoryUnits != 5 {
		t.Errorf("InventoryUnits: got %d, want 5", bundle.KPIs.InventoryUnits)
	}
}

func TestComputeTrendsSingleContribution(t *testing.T) {
	sameDay := analyticsNow.AddDate(0, 0, -3)
	orders := &fakeOrderLister{orders: []domain.Order{
		testOrder(domain.PlatformShopify, "1", "10.00", sameDay),
		testOrder(domain.PlatformAmazon, "2", "20.00", sameDay.Add(2*time.Hour)),
		testOrder(domain.PlatformShopify, "3", "5.00", analyticsNow.AddDate(0, 0, -9)),
	}}
	svc := newTestAnalyticsService(orders, &fakeProductLister{}, &fakeSettingsRepo{})

	bundle, err := svc.Compute(context.Background(), "c1", domain.PlatformAll, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle.Trends == nil {
		t.Fatal("Trends: got nil")
	}
	if got := len(bundle.Trends.Daily); got != 2 {
		t.Fatalf("daily buckets: got %d, want 2", got)
	}

	// Buckets are sorted ascending; the later day holds both same-day orders.
	last := bundle.Trends.Daily[len(bundle.Trends.Daily)-1]
	if last.OrderCount != 2 {
		t.Errorf("same-day bucket OrderCount: got %d, want 2", last.OrderCount)
	}
	if !last.Revenue.Equal(decimal.RequireFromString("30.00")) {
		t.Errorf("same-day bucket Revenue: got %s, want 30.00", last.Revenue)
	}

	// Every order lands in exactly one daily bucket.
	totalCount := 0
	totalRevenue := decimal.Zero
	for _, point := range bundle.Trends.Daily {
		totalCount += point.OrderCount
		totalRevenue = totalRevenue.Add(point.Revenue)
	}
	if totalCount != 3 {
		t.Errorf("daily order total: got %d, want 3", totalCount)
	}
	if !totalRevenue.Equal(decimal.RequireFromString("35.00")) {
		t.Errorf("daily revenue total: got %s, want 35.00", totalRevenue)
	}
}

func TestComputeAlertsDefaultThresholds(t *testing.T) {
	products := &fakeProductLister{products: []domain.Product{
		testProduct(domain.PlatformShopify, "LOW", "5.00", 3),
		testProduct(domain.PlatformShopify, "OK", "5.00", 100),
		testProduct(domain.PlatformAmazon, "OVER", "5.00", 900),
	}}
	svc := newTestAnalyticsService(&fakeOrderLister{}, products, &fakeSettingsRepo{})

	bundle, err := svc.Compute(context.Background(), "c1", domain.PlatformAll, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle.Alerts == nil {
		t.Fatal("Alerts: got nil")
	}
	if bundle.Alerts.LowStockAlerts != 1 {
		t.Errorf("LowStockAlerts: got %d, want 1", bundle.Alerts.LowStockAlerts)
	}
	if bundle.Alerts.OverstockAlerts != 1 {
		t.Errorf("OverstockAlerts: got %d, want 1", bundle.Alerts.OverstockAlerts)
	}
	if bundle.Alerts.TotalAlerts != 2 {
		t.Errorf("TotalAlerts: got %d, want 2", bundle.Alerts.TotalAlerts)
	}
}

func TestComputeAlertsStoredThresholds(t *testing.T) {
	products := &fakeProductLister{products: []domain.Product{
		testProduct(domain.PlatformShopify, "SKU-1", "5.00", 40),
	}}
	settings := &fakeSettingsRepo{thresholds: &domain.AlertThresholds{LowStock: 50, Overstock: 1000}}
	svc := newTestAnalyticsService(&fakeOrderLister{}, products, settings)

	bundle, err := svc.Compute(context.Background(), "c1", domain.PlatformAll, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle.Alerts.LowStockAlerts != 1 {
		t.Errorf("LowStockAlerts with stored threshold 50: got %d, want 1", bundle.Alerts.LowStockAlerts)
	}
}

func TestComputeSectionFailureDegrades(t *testing.T) {
	orders := &fakeOrderLister{err: errors.New("orders collection down")}
	products := &fakeProductLister{products: []domain.Product{
		testProduct(domain.PlatformShopify, "SKU-1", "5.00", 3),
	}}
	svc := newTestAnalyticsService(orders, products, &fakeSettingsRepo{})

	bundle, err := svc.Compute(context.Background(), "c1", domain.PlatformAll, false)
	if err != nil {
		t.Fatalf("Compute must not fail on a section error, got: %v", err)
	}
	if _, ok := bundle.SectionErrors["orders"]; !ok {
		t.Errorf("SectionErrors: missing orders entry, got %v", bundle.SectionErrors)
	}
	if bundle.KPIs != nil {
		t.Error("KPIs: got non-nil, want skipped when orders failed")
	}
	if bundle.Alerts == nil {
		t.Error("Alerts: got nil, want populated from products despite order failure")
	}
	if len(bundle.SKUList) != 1 {
		t.Errorf("SKUList: got %d entries, want 1", len(bundle.SKUList))
	}
}

func TestComputeFastModeSameShape(t *testing.T) {
	var orders []domain.Order
	for i := 0; i < 20; i++ {
		orders = append(orders, testOrder(domain.PlatformShopify, string(rune('a'+i)), "10.00", analyticsNow.AddDate(0, 0, -1)))
	}
	orderRepo := &fakeOrderLister{orders: orders}
	products := &fakeProductLister{products: []domain.Product{
		testProduct(domain.PlatformShopify, "SKU-1", "5.00", 3),
	}}

	svc := newTestAnalyticsService(orderRepo, products, &fakeSettingsRepo{})
	svc.fastSampleSize = 10

	full, err := svc.Compute(context.Background(), "c1", domain.PlatformAll, false)
	if err != nil {
		t.Fatalf("full mode: %v", err)
	}
	fast, err := svc.Compute(context.Background(), "c1", domain.PlatformAll, true)
	if err != nil {
		t.Fatalf("fast mode: %v", err)
	}

	if !fast.FastMode || full.FastMode {
		t.Error("FastMode flags not set as requested")
	}
	if fast.KPIs == nil || fast.Trends == nil || fast.Alerts == nil || fast.DataSummary == nil {
		t.Fatal("fast mode bundle missing sections present in full mode")
	}
	if !fast.KPIs.Approximate {
		t.Error("fast mode KPIs must be flagged approximate")
	}
	if full.KPIs.Approximate {
		t.Error("full mode KPIs must not be flagged approximate")
	}
	if fast.KPIs.OrderCount != svc.fastSampleSize {
		t.Errorf("fast mode sampled OrderCount: got %d, want %d", fast.KPIs.OrderCount, svc.fastSampleSize)
	}
	if full.KPIs.OrderCount != 20 {
		t.Errorf("full mode OrderCount: got %d, want 20", full.KPIs.OrderCount)
	}
}

func TestComputeSKUListSortedDeduped(t *testing.T) {
	products := &fakeProductLister{products: []domain.Product{
		testProduct(domain.PlatformShopify, "ZED", "5.00", 100),
		testProduct(domain.PlatformAmazon, "ALPHA", "5.00", 100),
		testProduct(domain.PlatformAmazon, "ZED", "5.00", 100),
		{ClientID: "c1", PlatformType: domain.PlatformShopify, ExternalID: "nosku", InventoryQuantity: 100, Price: decimal.Zero},
	}}
	svc := newTestAnalyticsService(&fakeOrderLister{}, products, &fakeSettingsRepo{})

	bundle, err := svc.Compute(context.Background(), "c1", domain.PlatformAll, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"ALPHA", "ZED"}
	if len(bundle.SKUList) != len(want) {
		t.Fatalf("SKUList: got %v, want %v", bundle.SKUList, want)
	}
	for i := range want {
		if bundle.SKUList[i] != want[i] {
			t.Errorf("SKUList[%d]: got %q, want %q", i, bundle.SKUList[i], want[i])
		}
	}
}

func TestComputeInsightBestEffort(t *testing.T) {
	svc := NewAnalyticsService(
		&fakeOrderLister{},
		&fakeProductLister{},
		&fakeRawRecordRepo{},
		&fakeSettingsRepo{},
		&fakeInsightGenerator{err: errors.New("insight endpoint down")},
		zerolog.Nop(),
	)
	svc.now = func() time.Time { return analyticsNow }

	bundle, err := svc.Compute(context.Background(), "c1", domain.PlatformAll, false)
	if err != nil {
		t.Fatalf("Compute must not fail when insight fails: %v", err)
	}
	if bundle.Insight != "" {
		t.Errorf("Insight: got %q, want empty on failure", bundle.Insight)
	}
}

func TestComputePlatformScope(t *testing.T) {
	orders := &fakeOrderLister{orders: []domain.Order{
		testOrder(domain.PlatformShopify, "1", "10.00", analyticsNow.AddDate(0, 0, -1)),
		testOrder(domain.PlatformAmazon, "2", "20.00", analyticsNow.AddDate(0, 0, -1)),
	}}
	svc := newTestAnalyticsService(orders, &fakeProductLister{}, &fakeSettingsRepo{})

	bundle, err := svc.Compute(context.Background(), "c1", domain.PlatformShopify, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle.KPIs.OrderCount != 1 {
		t.Errorf("shopify-scoped OrderCount: got %d, want 1", bundle.KPIs.OrderCount)
	}
	if !bundle.KPIs.Revenue.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("shopify-scoped Revenue: got %s, want 10.00", bundle.KPIs.Revenue)
	}
}
