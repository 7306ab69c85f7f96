package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a normalized, platform-typed order ready for analytics.
// Uniqueness is enforced on (ClientID, PlatformType, ExternalID); population
// re-runs update rows in place.
type Order struct {
	ClientID      string          `json:"client_id" bson:"client_id"`
	PlatformType  PlatformType    `json:"platform_type" bson:"platform_type"`
	ExternalID    string          `json:"external_id" bson:"external_id"`
	OrderNumber   string          `json:"order_number" bson:"order_number"`
	TotalPrice    decimal.Decimal `json:"total_price" bson:"total_price"`
	Currency      string          `json:"currency" bson:"currency"`
	LineItemCount int             `json:"line_item_count" bson:"line_item_count"`
	PlacedAt      time.Time       `json:"placed_at" bson:"placed_at"`
}

// Product is a normalized, platform-typed product with its current inventory
// position. Same uniqueness rule as Order.
type Product struct {
	ClientID          string          `json:"client_id" bson:"client_id"`
	PlatformType      PlatformType    `json:"platform_type" bson:"platform_type"`
	ExternalID        string          `json:"external_id" bson:"external_id"`
	Title             string          `json:"title" bson:"title"`
	SKU               string          `json:"sku" bson:"sku"`
	Price             decimal.Decimal `json:"price" bson:"price"`
	InventoryQuantity int             `json:"inventory_quantity" bson:"inventory_quantity"`
	UpdatedAt         time.Time       `json:"updated_at" bson:"updated_at"`
}

// Extraction is the output of a populator's pure classification step over a
// client's raw records. Unrecognized payload shapes are skipped, not errors.
type Extraction struct {
	Orders   []Order
	Products []Product
}
