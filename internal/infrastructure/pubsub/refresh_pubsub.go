package pubsub

import (
	"context"
	"fmt"
	"sync"

	"pulse-core-analytics-layer/internal/domain"

	"github.com/rs/zerolog"
)

// RefreshEventChannel represents one subscription to refresh job results
type RefreshEventChannel struct {
	ID      string
	Filter  *RefreshEventFilter
	Results chan *domain.RefreshJobResult
	Done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

// RefreshEventFilter filters refresh job results
type RefreshEventFilter struct {
	ClientID string              // Filter by client
	Platform domain.PlatformType // Filter by platform
}

// RefreshPubSub broadcasts per-job refresh results to in-process subscribers
// (metrics recorder, operational listeners). Publishing never blocks the
// scheduler: full subscriber buffers drop events.
type RefreshPubSub struct {
	mu       sync.RWMutex
	channels map[string]*RefreshEventChannel
	logger   zerolog.Logger
	nextID   int64
	idMu     sync.Mutex
}

// NewRefreshPubSub creates a new refresh pub/sub system
func NewRefreshPubSub(logger zerolog.Logger) *RefreshPubSub {
	return &RefreshPubSub{
		channels: make(map[string]*RefreshEventChannel),
		logger:   logger,
	}
}

// Subscribe creates a new subscription channel
func (ps *RefreshPubSub) Subscribe(ctx context.Context, filter *RefreshEventFilter) *RefreshEventChannel {
	ps.idMu.Lock()
	ps.nextID++
	id := fmt.Sprintf("refresh-sub-%d", ps.nextID)
	ps.idMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)

	channel := &RefreshEventChannel{
		ID:      id,
		Filter:  filter,
		Results: make(chan *domain.RefreshJobResult, 16),
		Done:    make(chan struct{}),
		ctx:     subCtx,
		cancel:  cancel,
	}

	ps.mu.Lock()
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("channelId", id).
		Msg("Refresh subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(id)
	}()

	return channel
}

// Unsubscribe removes a subscription channel
func (ps *RefreshPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Results)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Debug().
		Str("channelId", channelID).
		Msg("Refresh subscription removed")
}

// Publish broadcasts a job result to all matching subscribers
func (ps *RefreshPubSub) Publish(result *domain.RefreshJobResult) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, channel := range ps.channels {
		if !matchesFilter(result, channel.Filter) {
			continue
		}
		select {
		case channel.Results <- result:
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Msg("Subscriber buffer full, dropping refresh result")
		}
	}
}

// SubscriberCount returns the number of active subscriptions
func (ps *RefreshPubSub) SubscriberCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.channels)
}

func matchesFilter(result *domain.RefreshJobResult, filter *RefreshEventFilter) bool {
	if filter == nil {
		return true
	}
	if filter.ClientID != "" && result.ClientID != filter.ClientID {
		return false
	}
	if filter.Platform != "" && result.PlatformType != filter.Platform {
		return false
	}
	return true
}
