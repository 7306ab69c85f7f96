package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pulse-core-analytics-layer/internal/application/populators"
	"pulse-core-analytics-layer/internal/domain"
	"pulse-core-analytics-layer/internal/infrastructure/metrics"
	"pulse-core-analytics-layer/internal/infrastructure/pool"
	"pulse-core-analytics-layer/internal/infrastructure/pubsub"
	"pulse-core-analytics-layer/internal/ports"

	"github.com/rs/zerolog"
)

const analyticsEndpointKey = "dashboard_analytics"

// SchedulerService orchestrates a full analytics refresh: it enumerates the
// eligible (client, platform) pairs, fans them out over a bounded worker
// pool, aggregates per-job results, and advances each integration's sync
// schedule. One pair's failure never aborts the batch; only enumeration
// failure fails the run.
type SchedulerService struct {
	integrations ports.IntegrationRepository
	registry     *populators.Registry
	organizer    *OrganizerService
	cache        *CacheService
	events       *pubsub.RefreshPubSub
	recorder     *metrics.Recorder
	logger       zerolog.Logger

	maxConcurrency int
	jobTimeout     time.Duration
	now            func() time.Time

	mu    sync.Mutex
	state domain.BatchState
}

// NewSchedulerService creates a new refresh scheduler
func NewSchedulerService(
	integrations ports.IntegrationRepository,
	registry *populators.Registry,
	organizer *OrganizerService,
	cache *CacheService,
	events *pubsub.RefreshPubSub,
	recorder *metrics.Recorder,
	maxConcurrency int,
	jobTimeout time.Duration,
	logger zerolog.Logger,
) *SchedulerService {
	if maxConcurrency < 1 {
		maxConcurrency = 4
	}
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}
	return &SchedulerService{
		integrations:   integrations,
		registry:       registry,
		organizer:      organizer,
		cache:          cache,
		events:         events,
		recorder:       recorder,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		jobTimeout:     jobTimeout,
		now:            time.Now,
		state:          domain.BatchIdle,
	}
}

// State returns the current batch lifecycle state.
func (s *SchedulerService) State() domain.BatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SchedulerService) setState(state domain.BatchState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// RunFullRefresh executes one batch run over every active integration. The
// scheduled trigger and the manual endpoint both call this entry point with
// identical semantics.
func (s *SchedulerService) RunFullRefresh(ctx context.Context) (*domain.BatchReport, error) {
	start := s.now()
	defer s.setState(domain.BatchDone)

	s.setState(domain.BatchEnumerating)
	integrations, err := s.integrations.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEnumerationFailed, err)
	}

	report := &domain.BatchReport{
		ClientResults: make(map[string]map[domain.PlatformType]*domain.RefreshJobResult),
	}

	if len(integrations) == 0 {
		report.Message = "no active integrations to refresh"
		report.DurationSeconds = s.now().Sub(start).Seconds()
		s.logger.Info().Msg("Refresh batch found no active integrations")
		return report, nil
	}

	report.TotalJobs = len(integrations)
	s.logger.Info().Int("totalJobs", report.TotalJobs).Msg("Starting analytics refresh batch")

	s.setState(domain.BatchFanningOut)

	var (
		resultsMu sync.Mutex
		results   []*domain.RefreshJobResult
		attempted []*domain.PlatformIntegration
		organized sync.Map
	)

	workers := pool.NewWorkerPool(s.maxConcurrency)
	for _, integration := range integrations {
		integration := integration
		submitted := workers.Submit(ctx, func() {
			result := s.runJob(ctx, integration, &organized)

			resultsMu.Lock()
			results = append(results, result)
			attempted = append(attempted, integration)
			resultsMu.Unlock()

			if s.events != nil {
				s.events.Publish(result)
			}
			if s.recorder != nil {
				s.recorder.ObserveJob(string(result.PlatformType), result.Success, result.Duration.Seconds())
			}
		})
		if !submitted {
			s.logger.Warn().
				Str("clientId", integration.ClientID).
				Str("platform", string(integration.PlatformType)).
				Msg("Batch aborted before job start")
		}
	}
	workers.Wait()

	s.setState(domain.BatchAggregating)
	for _, result := range results {
		if result.Success {
			report.SuccessfulJobs++
		} else {
			report.FailedJobs++
		}
		if _, ok := report.ClientResults[result.ClientID]; !ok {
			report.ClientResults[result.ClientID] = make(map[domain.PlatformType]*domain.RefreshJobResult)
		}
		report.ClientResults[result.ClientID][result.PlatformType] = result
	}

	// Sync timestamps advance for every attempted pair regardless of
	// outcome, so a persistently failing integration keeps its cadence.
	attemptedAt := s.now()
	for _, integration := range attempted {
		integration.MarkSyncAttempt(attemptedAt)
		if err := s.integrations.UpdateSyncTimes(ctx, integration); err != nil {
			s.logger.Error().
				Err(err).
				Str("clientId", integration.ClientID).
				Str("platform", string(integration.PlatformType)).
				Msg("Failed to update integration sync times")
		}
	}

	report.DurationSeconds = s.now().Sub(start).Seconds()
	if len(attempted) < report.TotalJobs {
		report.Message = fmt.Sprintf("batch aborted: %d of %d jobs attempted", len(attempted), report.TotalJobs)
	}

	s.logger.Info().
		Int("totalJobs", report.TotalJobs).
		Int("successfulJobs", report.SuccessfulJobs).
		Int("failedJobs", report.FailedJobs).
		Float64("durationSeconds", report.DurationSeconds).
		Msg("Analytics refresh batch finished")

	return report, nil
}

// runJob refreshes one (client, platform) pair: organize → populate → warm
// the analytics cache. Failures, including panics, are captured into the job
// result and never propagate to the batch.
func (s *SchedulerService) runJob(ctx context.Context, integration *domain.PlatformIntegration, organized *sync.Map) (result *domain.RefreshJobResult) {
	start := s.now()
	result = &domain.RefreshJobResult{
		ClientID:     integration.ClientID,
		PlatformType: integration.PlatformType,
	}

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("job panicked: %v", r)
			s.logger.Error().
				Str("clientId", integration.ClientID).
				Str("platform", string(integration.PlatformType)).
				Interface("panic", r).
				Msg("Refresh job panicked")
		}
		result.Duration = s.now().Sub(start)
	}()

	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	populator, ok := s.registry.Get(integration.PlatformType)
	if !ok {
		result.Error = fmt.Sprintf("%v: %s", domain.ErrUnknownPlatform, integration.PlatformType)
		return result
	}

	// Organization is idempotent, so one pass per client per batch is
	// enough even when the client has several platform integrations.
	if err := s.organizeOnce(jobCtx, integration.ClientID, organized); err != nil {
		result.Error = err.Error()
		return result
	}

	populateResult, err := populator.Populate(jobCtx, integration.ClientID)
	if populateResult != nil {
		result.OrdersInserted = populateResult.OrdersInserted
		result.ProductsInserted = populateResult.ProductsInserted
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}

	// Population is done for this pair; warm the dashboard cache so reads
	// hit fresh analytics.
	if s.cache != nil {
		params := map[string]string{"platform": string(integration.PlatformType)}
		response, err := s.cache.GetOrCompute(jobCtx, integration.ClientID, analyticsEndpointKey, params, true, false)
		if err != nil {
			result.Error = fmt.Sprintf("cache warm failed: %v", err)
			return result
		}
		result.SKUsCached = len(response.Bundle.SKUList)
	}

	result.Success = true
	return result
}

// organizeOutcome shares one organization attempt, and its error, between
// every job of the same client within a batch.
type organizeOutcome struct {
	once sync.Once
	err  error
}

// organizeOnce runs OrganizeClientData at most once per client per batch.
func (s *SchedulerService) organizeOnce(ctx context.Context, clientID string, organized *sync.Map) error {
	value, _ := organized.LoadOrStore(clientID, &organizeOutcome{})
	outcome := value.(*organizeOutcome)

	outcome.once.Do(func() {
		result, err := s.organizer.OrganizeClientData(ctx, clientID)
		if err != nil {
			outcome.err = err
			return
		}
		if !result.Success {
			outcome.err = fmt.Errorf("organization degraded for client %s: %v", clientID, result.CategoryErrors)
		}
	})
	return outcome.err
}
