package populators

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"pulse-core-analytics-layer/internal/domain"
	"pulse-core-analytics-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AmazonPopulator extracts Amazon marketplace orders and products from a
// client's raw records and upserts them into the entity stores.
type AmazonPopulator struct {
	basePopulator
}

// NewAmazonPopulator creates a new Amazon populator
func NewAmazonPopulator(
	records ports.RawRecordRepository,
	orders ports.OrderRepository,
	products ports.ProductRepository,
	logger zerolog.Logger,
) ports.PlatformPopulator {
	return &AmazonPopulator{
		basePopulator: basePopulator{
			platform: domain.PlatformAmazon,
			records:  records,
			orders:   orders,
			products: products,
			logger:   logger,
			now:      time.Now,
		},
	}
}

// Populate runs fetch → extract → upsert for one client.
func (p *AmazonPopulator) Populate(ctx context.Context, clientID string) (*domain.PopulateResult, error) {
	return p.populate(ctx, clientID, p.Extract)
}

// amazonOrderPayload mirrors the SP-API order shape the ingestion path
// delivers.
type amazonOrderPayload struct {
	AmazonOrderID string `json:"amazon_order_id"`
	OrderTotal    struct {
		Amount       string `json:"amount"`
		CurrencyCode string `json:"currency_code"`
	} `json:"order_total"`
	PurchaseDate  string `json:"purchase_date"`
	NumberOfItems int    `json:"number_of_items"`
}

// amazonProductPayload mirrors the catalog/listing item shape.
type amazonProductPayload struct {
	ASIN      string `json:"asin"`
	SellerSKU string `json:"seller_sku"`
	ItemName  string `json:"item_name"`
	Price     struct {
		Amount string `json:"amount"`
	} `json:"price"`
	Quantity  int    `json:"quantity"`
	UpdatedAt string `json:"updated_at"`
}

// Extract recognizes Amazon order and product payload shapes inside generic
// raw records. Unrecognized shapes are skipped silently.
func (p *AmazonPopulator) Extract(records []domain.RawRecord) domain.Extraction {
	var extraction domain.Extraction

	for _, record := range records {
		if !isAmazonRecord(record) {
			continue
		}

		if order, ok := decodeAmazonOrder(record); ok {
			extraction.Orders = append(extraction.Orders, order)
			continue
		}
		if product, ok := decodeAmazonProduct(record); ok {
			extraction.Products = append(extraction.Products, product)
		}
	}

	return extraction
}

func isAmazonRecord(record domain.RawRecord) bool {
	return strings.HasPrefix(strings.ToLower(record.SourceHint), "amazon")
}

func decodeAmazonOrder(record domain.RawRecord) (domain.Order, bool) {
	var payload amazonOrderPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return domain.Order{}, false
	}
	if payload.AmazonOrderID == "" {
		return domain.Order{}, false
	}

	total := decimal.Zero
	if payload.OrderTotal.Amount != "" {
		if parsed, err := decimal.NewFromString(payload.OrderTotal.Amount); err == nil {
			total = parsed
		}
	}

	placedAt := record.ReceivedAt
	if parsed, err := time.Parse(time.RFC3339, payload.PurchaseDate); err == nil {
		placedAt = parsed
	}

	return domain.Order{
		ClientID:      record.ClientID,
		PlatformType:  domain.PlatformAmazon,
		ExternalID:    payload.AmazonOrderID,
		OrderNumber:   payload.AmazonOrderID,
		TotalPrice:    total,
		Currency:      payload.OrderTotal.CurrencyCode,
		LineItemCount: payload.NumberOfItems,
		PlacedAt:      placedAt,
	}, true
}

func decodeAmazonProduct(record domain.RawRecord) (domain.Product, bool) {
	var payload amazonProductPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return domain.Product{}, false
	}
	if payload.ASIN == "" {
		return domain.Product{}, false
	}

	price := decimal.Zero
	if payload.Price.Amount != "" {
		if parsed, err := decimal.NewFromString(payload.Price.Amount); err == nil {
			price = parsed
		}
	}

	sku := payload.SellerSKU
	if sku == "" {
		sku = payload.ASIN
	}

	updatedAt := record.ReceivedAt
	if parsed, err := time.Parse(time.RFC3339, payload.UpdatedAt); err == nil {
		updatedAt = parsed
	}

	return domain.Product{
		ClientID:          record.ClientID,
		PlatformType:      domain.PlatformAmazon,
		ExternalID:        payload.ASIN,
		Title:             payload.ItemName,
		SKU:               sku,
		Price:             price,
		InventoryQuantity: payload.Quantity,
		UpdatedAt:         updatedAt,
	}, true
}
