package application

import (
	"context"
	"fmt"
	"time"

	"pulse-core-analytics-layer/internal/application/populators"
	"pulse-core-analytics-layer/internal/domain"
	"pulse-core-analytics-layer/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// IntegrationService handles platform integration registration and lookup
type IntegrationService struct {
	integrationRepo ports.IntegrationRepository
	registry        *populators.Registry
	logger          zerolog.Logger
}

// NewIntegrationService creates a new integration service
func NewIntegrationService(
	integrationRepo ports.IntegrationRepository,
	registry *populators.Registry,
	logger zerolog.Logger,
) *IntegrationService {
	return &IntegrationService{
		integrationRepo: integrationRepo,
		registry:        registry,
		logger:          logger,
	}
}

// RegisterIntegrationInput represents input for registering an integration
type RegisterIntegrationInput struct {
	ClientID           string              `json:"client_id"`
	PlatformType       domain.PlatformType `json:"platform_type"`
	ConnectionName     string              `json:"connection_name"`
	SyncFrequencyHours int                 `json:"sync_frequency_hours"`
}

// RegisterIntegration registers a platform integration for a client. The
// platform must have a registered populator; an existing integration for the
// same (client, platform) pair is returned as-is.
func (s *IntegrationService) RegisterIntegration(ctx context.Context, input RegisterIntegrationInput) (*domain.PlatformIntegration, error) {
	if _, ok := s.registry.Get(input.PlatformType); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlatform, input.PlatformType)
	}

	existing, err := s.integrationRepo.GetByClientAndPlatform(ctx, input.ClientID, input.PlatformType)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing integration: %w", err)
	}

	if existing != nil {
		s.logger.Info().
			Str("clientId", input.ClientID).
			Str("platform", string(input.PlatformType)).
			Msg("Integration already exists, returning existing record")
		return existing, nil
	}

	frequency := input.SyncFrequencyHours
	if frequency <= 0 {
		frequency = 24
	}

	integration := &domain.PlatformIntegration{
		ID:                 uuid.NewString(),
		ClientID:           input.ClientID,
		PlatformType:       input.PlatformType,
		ConnectionName:     input.ConnectionName,
		Status:             domain.IntegrationActive,
		SyncFrequencyHours: frequency,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}

	if err := s.integrationRepo.Create(ctx, integration); err != nil {
		s.logger.Error().Err(err).Msg("Failed to create integration")
		return nil, fmt.Errorf("failed to create integration: %w", err)
	}

	s.logger.Info().
		Str("clientId", input.ClientID).
		Str("platform", string(input.PlatformType)).
		Str("connectionName", input.ConnectionName).
		Int("syncFrequencyHours", frequency).
		Msg("Registered new integration")

	return integration, nil
}

// GetIntegration retrieves an integration by client and platform
func (s *IntegrationService) GetIntegration(ctx context.Context, clientID string, platform domain.PlatformType) (*domain.PlatformIntegration, error) {
	integration, err := s.integrationRepo.GetByClientAndPlatform(ctx, clientID, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}
	if integration == nil {
		return nil, fmt.Errorf("integration not found for client %s platform %s", clientID, platform)
	}
	return integration, nil
}
