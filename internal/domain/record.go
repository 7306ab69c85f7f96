package domain

import (
	"encoding/json"
	"time"
)

// Category is the semantic bucket a raw record is organized into.
type Category string

const (
	CategoryOrders       Category = "orders"
	CategoryProducts     Category = "products"
	CategoryInventory    Category = "inventory"
	CategoryUnclassified Category = "unclassified"
)

// RawRecord is one unit of ingested data for a client, tagged with a source
// hint but not yet validated against a platform schema. Immutable once
// created; the core only reads it.
type RawRecord struct {
	ID         string          `json:"id" bson:"_id"`
	ClientID   string          `json:"client_id" bson:"client_id"`
	SourceHint string          `json:"source_hint" bson:"source_hint"`
	Payload    json.RawMessage `json:"payload" bson:"payload"`
	ReceivedAt time.Time       `json:"received_at" bson:"received_at"`
}

// OrganizedEntity is the categorized, validated form of a raw record.
// NaturalKey is stable for a given raw record, so organizing the same record
// twice upserts instead of duplicating.
type OrganizedEntity struct {
	ClientID    string          `json:"client_id" bson:"client_id"`
	Category    Category        `json:"category" bson:"category"`
	NaturalKey  string          `json:"natural_key" bson:"natural_key"`
	Payload     json.RawMessage `json:"payload" bson:"payload"`
	OrganizedAt time.Time       `json:"organized_at" bson:"organized_at"`
}
