package entity

import (
	"time"

	"pulse-core-analytics-layer/internal/domain"
)

// MongoIntegrationDoc represents a platform integration in MongoDB
type MongoIntegrationDoc struct {
	ID                 string     `bson:"_id"`
	ClientID           string     `bson:"clientId"`
	PlatformType       string     `bson:"platformType"`
	ConnectionName     string     `bson:"connectionName"`
	Status             string     `bson:"status"`
	LastSyncAt         *time.Time `bson:"lastSyncAt,omitempty"`
	NextSyncAt         *time.Time `bson:"nextSyncAt,omitempty"`
	SyncFrequencyHours int        `bson:"syncFrequencyHours"`
	CreatedAt          time.Time  `bson:"createdAt"`
	UpdatedAt          time.Time  `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoIntegrationDoc) ToDomain() *domain.PlatformIntegration {
	return &domain.PlatformIntegration{
		ID:                 d.ID,
		ClientID:           d.ClientID,
		PlatformType:       domain.PlatformType(d.PlatformType),
		ConnectionName:     d.ConnectionName,
		Status:             domain.IntegrationStatus(d.Status),
		LastSyncAt:         d.LastSyncAt,
		NextSyncAt:         d.NextSyncAt,
		SyncFrequencyHours: d.SyncFrequencyHours,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

// MongoIntegrationDocFromDomain converts a domain entity to a MongoDB document
func MongoIntegrationDocFromDomain(integration *domain.PlatformIntegration) *MongoIntegrationDoc {
	return &MongoIntegrationDoc{
		ID:                 integration.ID,
		ClientID:           integration.ClientID,
		PlatformType:       string(integration.PlatformType),
		ConnectionName:     integration.ConnectionName,
		Status:             string(integration.Status),
		LastSyncAt:         integration.LastSyncAt,
		NextSyncAt:         integration.NextSyncAt,
		SyncFrequencyHours: integration.SyncFrequencyHours,
		CreatedAt:          integration.CreatedAt,
		UpdatedAt:          integration.UpdatedAt,
	}
}
