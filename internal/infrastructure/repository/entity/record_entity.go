package entity

import (
	"time"

	"pulse-core-analytics-layer/internal/domain"
)

// MongoRawRecordDoc represents a raw ingested record in MongoDB. Raw records
// are written by the ingestion path; the core only reads them.
type MongoRawRecordDoc struct {
	ID         string    `bson:"_id"`
	ClientID   string    `bson:"clientId"`
	SourceHint string    `bson:"sourceHint"`
	Payload    []byte    `bson:"payload"`
	ReceivedAt time.Time `bson:"receivedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoRawRecordDoc) ToDomain() domain.RawRecord {
	return domain.RawRecord{
		ID:         d.ID,
		ClientID:   d.ClientID,
		SourceHint: d.SourceHint,
		Payload:    d.Payload,
		ReceivedAt: d.ReceivedAt,
	}
}

// MongoOrganizedEntityDoc represents a categorized record in MongoDB, keyed
// by (clientId, category, naturalKey) so organization is idempotent.
type MongoOrganizedEntityDoc struct {
	ClientID    string    `bson:"clientId"`
	Category    string    `bson:"category"`
	NaturalKey  string    `bson:"naturalKey"`
	Payload     []byte    `bson:"payload"`
	OrganizedAt time.Time `bson:"organizedAt"`
}

// MongoOrganizedEntityDocFromDomain converts a domain entity to a MongoDB document
func MongoOrganizedEntityDocFromDomain(e *domain.OrganizedEntity) *MongoOrganizedEntityDoc {
	return &MongoOrganizedEntityDoc{
		ClientID:    e.ClientID,
		Category:    string(e.Category),
		NaturalKey:  e.NaturalKey,
		Payload:     e.Payload,
		OrganizedAt: e.OrganizedAt,
	}
}
