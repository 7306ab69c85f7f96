package application

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"pulse-core-analytics-layer/internal/application/populators"
	"pulse-core-analytics-layer/internal/domain"

	"github.com/rs/zerolog"
)

// fakePopulator stands in for a platform populator so scheduler tests control
// each job's outcome directly.
type fakePopulator struct {
	platform domain.PlatformType
	err      error
	panics   bool
	calls    int64
	orders   int
	products int
}

func (f *fakePopulator) Type() domain.PlatformType { return f.platform }

func (f *fakePopulator) FetchClientData(ctx context.Context, clientID string) ([]domain.RawRecord, error) {
	return nil, nil
}

func (f *fakePopulator) Extract(records []domain.RawRecord) domain.Extraction {
	return domain.Extraction{}
}

func (f *fakePopulator) Populate(ctx context.Context, clientID string) (*domain.PopulateResult, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.panics {
		panic("populator exploded")
	}
	result := &domain.PopulateResult{
		ClientID:         clientID,
		PlatformType:     f.platform,
		OrdersInserted:   f.orders,
		ProductsInserted: f.products,
		Success:          f.err == nil,
	}
	if f.err != nil {
		result.Error = f.err.Error()
		return result, f.err
	}
	return result, nil
}

func activeIntegration(id, clientID string, platform domain.PlatformType) *domain.PlatformIntegration {
	return &domain.PlatformIntegration{
		ID:                 id,
		ClientID:           clientID,
		PlatformType:       platform,
		Status:             domain.IntegrationActive,
		SyncFrequencyHours: 24,
		CreatedAt:          time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

type schedulerFixture struct {
	scheduler    *SchedulerService
	integrations *fakeIntegrationRepo
	registry     *populators.Registry
	rawRecords   *fakeRawRecordRepo
	organized    *fakeOrganizedRepo
	cacheStore   *fakeCacheStore
	computer     *countingComputer
}

func newSchedulerFixture(integrations []*domain.PlatformIntegration) *schedulerFixture {
	fixture := &schedulerFixture{
		integrations: &fakeIntegrationRepo{integrations: integrations},
		registry:     populators.NewRegistry(zerolog.Nop()),
		rawRecords:   &fakeRawRecordRepo{},
		organized:    newFakeOrganizedRepo(),
		cacheStore:   newFakeCacheStore(),
		computer:     &countingComputer{},
	}

	organizer := NewOrganizerService(fixture.rawRecords, fixture.organized, zerolog.Nop())
	cache := NewCacheService(fixture.cacheStore, fixture.computer, fixture.integrations, nil, zerolog.Nop())

	fixture.scheduler = NewSchedulerService(
		fixture.integrations,
		fixture.registry,
		organizer,
		cache,
		nil,
		nil,
		2,
		time.Minute,
		zerolog.Nop(),
	)
	return fixture
}

func TestRunFullRefreshZeroIntegrations(t *testing.T) {
	fixture := newSchedulerFixture(nil)

	report, err := fixture.scheduler.RunFullRefresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalJobs != 0 {
		t.Errorf("TotalJobs: got %d, want 0", report.TotalJobs)
	}
	if report.Message == "" {
		t.Error("Message: got empty, want a no-work explanation")
	}
	if fixture.scheduler.State() != domain.BatchDone {
		t.Errorf("State: got %s, want done", fixture.scheduler.State())
	}
}

func TestRunFullRefreshEnumerationFailure(t *testing.T) {
	fixture := newSchedulerFixture(nil)
	fixture.integrations.listErr = errors.New("mongo unreachable")

	_, err := fixture.scheduler.RunFullRefresh(context.Background())
	if err == nil {
		t.Fatal("expected error when enumeration fails")
	}
	if !errors.Is(err, domain.ErrEnumerationFailed) {
		t.Errorf("error chain: got %v, want ErrEnumerationFailed", err)
	}
}

func TestRunFullRefreshFanOutAndAggregate(t *testing.T) {
	fixture := newSchedulerFixture([]*domain.PlatformIntegration{
		activeIntegration("i1", "c1", domain.PlatformShopify),
		activeIntegration("i2", "c1", domain.PlatformAmazon),
		activeIntegration("i3", "c2", domain.PlatformShopify),
	})
	shopify := &fakePopulator{platform: domain.PlatformShopify, orders: 2}
	amazon := &fakePopulator{platform: domain.PlatformAmazon, products: 1}
	fixture.registry.Register(shopify)
	fixture.registry.Register(amazon)

	report, err := fixture.scheduler.RunFullRefresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalJobs != 3 {
		t.Errorf("TotalJobs: got %d, want 3", report.TotalJobs)
	}
	if report.SuccessfulJobs != 3 || report.FailedJobs != 0 {
		t.Errorf("jobs: got success=%d failed=%d, want 3 and 0", report.SuccessfulJobs, report.FailedJobs)
	}

	c1 := report.ClientResults["c1"]
	if len(c1) != 2 {
		t.Fatalf("c1 results: got %d platforms, want 2", len(c1))
	}
	if got := c1[domain.PlatformShopify].OrdersInserted; got != 2 {
		t.Errorf("c1 shopify OrdersInserted: got %d, want 2", got)
	}
	if got := c1[domain.PlatformAmazon].ProductsInserted; got != 1 {
		t.Errorf("c1 amazon ProductsInserted: got %d, want 1", got)
	}
	if got := report.ClientResults["c2"][domain.PlatformShopify]; got == nil || !got.Success {
		t.Errorf("c2 shopify result: got %+v, want success", got)
	}
	if got := c1[domain.PlatformShopify].SKUsCached; got != 1 {
		t.Errorf("SKUsCached: got %d, want 1 from warmed bundle", got)
	}
}

func TestRunFullRefreshFailureIsolation(t *testing.T) {
	fixture := newSchedulerFixture([]*domain.PlatformIntegration{
		activeIntegration("i1", "c1", domain.PlatformShopify),
		activeIntegration("i2", "c2", domain.PlatformAmazon),
		activeIntegration("i3", "c3", domain.PlatformShopify),
	})
	fixture.registry.Register(&fakePopulator{platform: domain.PlatformShopify})
	fixture.registry.Register(&fakePopulator{platform: domain.PlatformAmazon, err: errors.New("amazon API down")})

	report, err := fixture.scheduler.RunFullRefresh(context.Background())
	if err != nil {
		t.Fatalf("one job's failure must not fail the batch: %v", err)
	}
	if report.SuccessfulJobs != 2 {
		t.Errorf("SuccessfulJobs: got %d, want 2", report.SuccessfulJobs)
	}
	if report.FailedJobs != 1 {
		t.Errorf("FailedJobs: got %d, want 1", report.FailedJobs)
	}

	failed := report.ClientResults["c2"][domain.PlatformAmazon]
	if failed == nil || failed.Success {
		t.Fatalf("c2 amazon result: got %+v, want failure", failed)
	}
	if failed.Error == "" {
		t.Error("failed job Error: got empty, want populated")
	}
}

func TestRunFullRefreshPanicCaptured(t *testing.T) {
	fixture := newSchedulerFixture([]*domain.PlatformIntegration{
		activeIntegration("i1", "c1", domain.PlatformShopify),
		activeIntegration("i2", "c2", domain.PlatformAmazon),
	})
	fixture.registry.Register(&fakePopulator{platform: domain.PlatformShopify, panics: true})
	fixture.registry.Register(&fakePopulator{platform: domain.PlatformAmazon})

	report, err := fixture.scheduler.RunFullRefresh(context.Background())
	if err != nil {
		t.Fatalf("a panicking job must not fail the batch: %v", err)
	}
	if report.FailedJobs != 1 || report.SuccessfulJobs != 1 {
		t.Errorf("jobs: got success=%d failed=%d, want 1 and 1", report.SuccessfulJobs, report.FailedJobs)
	}
}

func TestRunFullRefreshUnknownPlatform(t *testing.T) {
	fixture := newSchedulerFixture([]*domain.PlatformIntegration{
		activeIntegration("i1", "c1", domain.PlatformType("ebay")),
	})

	report, err := fixture.scheduler.RunFullRefresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.FailedJobs != 1 {
		t.Errorf("FailedJobs: got %d, want 1", report.FailedJobs)
	}
}

func TestRunFullRefreshAdvancesSyncTimesForAllAttempted(t *testing.T) {
	fixture := newSchedulerFixture([]*domain.PlatformIntegration{
		activeIntegration("i1", "c1", domain.PlatformShopify),
		activeIntegration("i2", "c2", domain.PlatformAmazon),
	})
	fixture.registry.Register(&fakePopulator{platform: domain.PlatformShopify})
	fixture.registry.Register(&fakePopulator{platform: domain.PlatformAmazon, err: errors.New("down")})

	if _, err := fixture.scheduler.RunFullRefresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(fixture.integrations.updated); got != 2 {
		t.Fatalf("sync time updates: got %d, want 2 (failed jobs included)", got)
	}
	for _, integration := range fixture.integrations.updated {
		if integration.LastSyncAt == nil || integration.NextSyncAt == nil {
			t.Errorf("integration %s: sync timestamps not set", integration.ID)
			continue
		}
		want := integration.LastSyncAt.Add(integration.SyncTTL())
		if !integration.NextSyncAt.Equal(want) {
			t.Errorf("integration %s NextSyncAt: got %s, want %s", integration.ID, integration.NextSyncAt, want)
		}
	}
}

func TestRunFullRefreshOrganizesOncePerClient(t *testing.T) {
	// One client, two platforms: organization must run a single time.
	records := []domain.RawRecord{
		rawRecord("r1", "c1", "shopify", `{"order_number": 1, "total_price": "10.00"}`),
	}
	fixture := newSchedulerFixture([]*domain.PlatformIntegration{
		activeIntegration("i1", "c1", domain.PlatformShopify),
		activeIntegration("i2", "c1", domain.PlatformAmazon),
	})
	fixture.rawRecords.records = records
	fixture.registry.Register(&fakePopulator{platform: domain.PlatformShopify})
	fixture.registry.Register(&fakePopulator{platform: domain.PlatformAmazon})

	if _, err := fixture.scheduler.RunFullRefresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(fixture.organized.upserted[domain.CategoryOrders]); got != 1 {
		t.Errorf("organized orders: got %d, want 1 (organize ran once)", got)
	}
}

func TestRunFullRefreshOrganizeFailureFailsClientJobs(t *testing.T) {
	fixture := newSchedulerFixture([]*domain.PlatformIntegration{
		activeIntegration("i1", "c1", domain.PlatformShopify),
	})
	fixture.rawRecords.err = domain.ErrStorageUnavailable
	shopify := &fakePopulator{platform: domain.PlatformShopify}
	fixture.registry.Register(shopify)

	report, err := fixture.scheduler.RunFullRefresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.FailedJobs != 1 {
		t.Errorf("FailedJobs: got %d, want 1", report.FailedJobs)
	}
	if got := atomic.LoadInt64(&shopify.calls); got != 0 {
		t.Errorf("populate calls after organize failure: got %d, want 0", got)
	}
}

func TestRunFullRefreshEndToEndCounts(t *testing.T) {
	// Client with mixed raw data across two platforms: two jobs run, the cache
	// is warmed once per pair, and the report carries both results.
	records := []domain.RawRecord{
		rawRecord("r1", "c1", "shopify", `{"id": 1, "order_number": 1, "total_price": "10.00"}`),
		rawRecord("r2", "c1", "shopify", `{"id": 2, "order_number": 2, "total_price": "20.00"}`),
		rawRecord("r3", "c1", "amazon", `{"asin": "B1", "seller_sku": "S1"}`),
	}
	fixture := newSchedulerFixture([]*domain.PlatformIntegration{
		activeIntegration("i1", "c1", domain.PlatformShopify),
		activeIntegration("i2", "c1", domain.PlatformAmazon),
	})
	fixture.rawRecords.records = records
	fixture.registry.Register(&fakePopulator{platform: domain.PlatformShopify, orders: 2})
	fixture.registry.Register(&fakePopulator{platform: domain.PlatformAmazon, products: 1})

	report, err := fixture.scheduler.RunFullRefresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalJobs != 2 {
		t.Errorf("TotalJobs: got %d, want 2", report.TotalJobs)
	}
	if report.SuccessfulJobs != 2 {
		t.Errorf("SuccessfulJobs: got %d, want 2", report.SuccessfulJobs)
	}

	c1 := report.ClientResults["c1"]
	if c1[domain.PlatformShopify].OrdersInserted != 2 {
		t.Errorf("shopify OrdersInserted: got %d, want 2", c1[domain.PlatformShopify].OrdersInserted)
	}
	if c1[domain.PlatformAmazon].ProductsInserted != 1 {
		t.Errorf("amazon ProductsInserted: got %d, want 1", c1[domain.PlatformAmazon].ProductsInserted)
	}

	// Both jobs forced a cache warm for their own platform scope.
	if got := atomic.LoadInt64(&fixture.computer.calls); got != 2 {
		t.Errorf("cache warm computes: got %d, want 2", got)
	}
}

func TestOrganizeClientDataMixedSourcesEndToEnd(t *testing.T) {
	records := []domain.RawRecord{
		rawRecord("r1", "c1", "shopify", `{"id": 1, "order_number": 1, "total_price": "10.00"}`),
		rawRecord("r2", "c1", "shopify", `{"id": 2, "order_number": 2, "total_price": "20.00"}`),
		rawRecord("r3", "c1", "amazon", `{"asin": "B1", "seller_sku": "S1"}`),
	}
	organized := newFakeOrganizedRepo()
	svc := NewOrganizerService(&fakeRawRecordRepo{records: records}, organized, zerolog.Nop())

	result, err := svc.OrganizeClientData(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OrganizedRecords[domain.CategoryOrders] != 2 {
		t.Errorf("orders: got %d, want 2", result.OrganizedRecords[domain.CategoryOrders])
	}
	if result.OrganizedRecords[domain.CategoryProducts] != 1 {
		t.Errorf("products: got %d, want 1", result.OrganizedRecords[domain.CategoryProducts])
	}
}

func TestRegisterIntegrationUnknownPlatformRejected(t *testing.T) {
	registry := populators.NewRegistry(zerolog.Nop())
	registry.Register(&fakePopulator{platform: domain.PlatformShopify})
	svc := NewIntegrationService(&fakeIntegrationRepo{}, registry, zerolog.Nop())

	_, err := svc.RegisterIntegration(context.Background(), RegisterIntegrationInput{
		ClientID:     "c1",
		PlatformType: domain.PlatformType("ebay"),
	})
	if !errors.Is(err, domain.ErrUnknownPlatform) {
		t.Errorf("error: got %v, want ErrUnknownPlatform", err)
	}
}

func TestRegisterIntegrationIdempotent(t *testing.T) {
	registry := populators.NewRegistry(zerolog.Nop())
	registry.Register(&fakePopulator{platform: domain.PlatformShopify})
	repo := &fakeIntegrationRepo{}
	svc := NewIntegrationService(repo, registry, zerolog.Nop())

	input := RegisterIntegrationInput{ClientID: "c1", PlatformType: domain.PlatformShopify}
	first, err := svc.RegisterIntegration(context.Background(), input)
	if err != nil {
		t.Fatalf("first registration: %v", err)
	}
	second, err := svc.RegisterIntegration(context.Background(), input)
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("IDs differ: %q vs %q, want existing integration returned", first.ID, second.ID)
	}
	if len(repo.integrations) != 1 {
		t.Errorf("stored integrations: got %d, want 1", len(repo.integrations))
	}
	if second.SyncFrequencyHours != 24 {
		t.Errorf("SyncFrequencyHours default: got %d, want 24", second.SyncFrequencyHours)
	}
}
