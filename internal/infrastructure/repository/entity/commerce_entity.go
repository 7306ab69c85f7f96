package entity

import (
	"time"

	"pulse-core-analytics-layer/internal/domain"

	"github.com/shopspring/decimal"
)

// MongoOrderDoc represents a normalized order in MongoDB. Money amounts are
// stored as strings to keep decimal precision through BSON.
type MongoOrderDoc struct {
	ClientID      string    `bson:"clientId"`
	PlatformType  string    `bson:"platformType"`
	ExternalID    string    `bson:"externalId"`
	OrderNumber   string    `bson:"orderNumber"`
	TotalPrice    string    `bson:"totalPrice"`
	Currency      string    `bson:"currency"`
	LineItemCount int       `bson:"lineItemCount"`
	PlacedAt      time.Time `bson:"placedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoOrderDoc) ToDomain() domain.Order {
	price, _ := decimal.NewFromString(d.TotalPrice)
	return domain.Order{
		ClientID:      d.ClientID,
		PlatformType:  domain.PlatformType(d.PlatformType),
		ExternalID:    d.ExternalID,
		OrderNumber:   d.OrderNumber,
		TotalPrice:    price,
		Currency:      d.Currency,
		LineItemCount: d.LineItemCount,
		PlacedAt:      d.PlacedAt,
	}
}

// MongoOrderDocFromDomain converts a domain entity to a MongoDB document
func MongoOrderDocFromDomain(o *domain.Order) *MongoOrderDoc {
	return &MongoOrderDoc{
		ClientID:      o.ClientID,
		PlatformType:  string(o.PlatformType),
		ExternalID:    o.ExternalID,
		OrderNumber:   o.OrderNumber,
		TotalPrice:    o.TotalPrice.String(),
		Currency:      o.Currency,
		LineItemCount: o.LineItemCount,
		PlacedAt:      o.PlacedAt,
	}
}

// MongoProductDoc represents a normalized product in MongoDB
type MongoProductDoc struct {
	ClientID          string    `bson:"clientId"`
	PlatformType      string    `bson:"platformType"`
	ExternalID        string    `bson:"externalId"`
	Title             string    `bson:"title"`
	SKU               string    `bson:"sku"`
	Price             string    `bson:"price"`
	InventoryQuantity int       `bson:"inventoryQuantity"`
	UpdatedAt         time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoProductDoc) ToDomain() domain.Product {
	price, _ := decimal.NewFromString(d.Price)
	return domain.Product{
		ClientID:          d.ClientID,
		PlatformType:      domain.PlatformType(d.PlatformType),
		ExternalID:        d.ExternalID,
		Title:             d.Title,
		SKU:               d.SKU,
		Price:             price,
		InventoryQuantity: d.InventoryQuantity,
		UpdatedAt:         d.UpdatedAt,
	}
}

// MongoProductDocFromDomain converts a domain entity to a MongoDB document
func MongoProductDocFromDomain(p *domain.Product) *MongoProductDoc {
	return &MongoProductDoc{
		ClientID:          p.ClientID,
		PlatformType:      string(p.PlatformType),
		ExternalID:        p.ExternalID,
		Title:             p.Title,
		SKU:               p.SKU,
		Price:             p.Price.String(),
		InventoryQuantity: p.InventoryQuantity,
		UpdatedAt:         p.UpdatedAt,
	}
}
