package domain

import "time"

// PlatformType identifies a connected commerce platform.
type PlatformType string

const (
	PlatformShopify PlatformType = "shopify"
	PlatformAmazon  PlatformType = "amazon"

	// PlatformAll is accepted on the read path to request every connected
	// platform of a client in one response.
	PlatformAll PlatformType = "all"
)

// IntegrationStatus is the lifecycle state of a platform integration.
type IntegrationStatus string

const (
	IntegrationActive IntegrationStatus = "active"
	IntegrationPaused IntegrationStatus = "paused"
	IntegrationError  IntegrationStatus = "error"
)

// PlatformIntegration represents a client's connection to one commerce
// platform with its own sync cadence. The scheduler is the only writer of the
// sync timestamps; deletion is an administrative action outside the core.
type PlatformIntegration struct {
	ID                 string            `json:"id" bson:"_id"`
	ClientID           string            `json:"client_id" bson:"client_id"`
	PlatformType       PlatformType      `json:"platform_type" bson:"platform_type"`
	ConnectionName     string            `json:"connection_name" bson:"connection_name"`
	Status             IntegrationStatus `json:"status" bson:"status"`
	LastSyncAt         *time.Time        `json:"last_sync_at,omitempty" bson:"last_sync_at,omitempty"`
	NextSyncAt         *time.Time        `json:"next_sync_at,omitempty" bson:"next_sync_at,omitempty"`
	SyncFrequencyHours int               `json:"sync_frequency_hours" bson:"sync_frequency_hours"`
	CreatedAt          time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at" bson:"updated_at"`
}

// SyncTTL returns the cache lifetime derived from the integration's cadence.
func (i *PlatformIntegration) SyncTTL() time.Duration {
	hours := i.SyncFrequencyHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// MarkSyncAttempt records a completed refresh attempt (success or failure)
// and advances the schedule so a persistently failing integration is retried
// on its normal cadence, not every tick.
func (i *PlatformIntegration) MarkSyncAttempt(at time.Time) {
	next := at.Add(i.SyncTTL())
	i.LastSyncAt = &at
	i.NextSyncAt = &next
	i.UpdatedAt = at
}
