package populators

import (
	"sort"
	"sync"

	"pulse-core-analytics-layer/internal/domain"
	"pulse-core-analytics-layer/internal/ports"

	"github.com/rs/zerolog"
)

// Registry holds the registered platform populators. The scheduler resolves
// populators through it, so adding a platform is a registration call, not a
// scheduler change.
type Registry struct {
	mu         sync.RWMutex
	populators map[domain.PlatformType]ports.PlatformPopulator
	logger     zerolog.Logger
}

// NewRegistry creates a new populator registry
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		populators: make(map[domain.PlatformType]ports.PlatformPopulator),
		logger:     logger,
	}
}

// Register adds a populator for its platform type, replacing any previous one
func (r *Registry) Register(populator ports.PlatformPopulator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.populators[populator.Type()] = populator
	r.logger.Info().
		Str("platform", string(populator.Type())).
		Msg("Registered platform populator")
}

// Get returns the populator for a platform type
func (r *Registry) Get(platform domain.PlatformType) (ports.PlatformPopulator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	populator, ok := r.populators[platform]
	return populator, ok
}

// Platforms returns the registered platform types in stable order
func (r *Registry) Platforms() []domain.PlatformType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	platforms := make([]domain.PlatformType, 0, len(r.populators))
	for platform := range r.populators {
		platforms = append(platforms, platform)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	return platforms
}
