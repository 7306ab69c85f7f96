package populators

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pulse-core-analytics-layer/internal/domain"
	"pulse-core-analytics-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ShopifyPopulator extracts Shopify orders and products from a client's raw
// records and upserts them into the entity stores.
type ShopifyPopulator struct {
	basePopulator
}

// NewShopifyPopulator creates a new Shopify populator
func NewShopifyPopulator(
	records ports.RawRecordRepository,
	orders ports.OrderRepository,
	products ports.ProductRepository,
	logger zerolog.Logger,
) ports.PlatformPopulator {
	return &ShopifyPopulator{
		basePopulator: basePopulator{
			platform: domain.PlatformShopify,
			records:  records,
			orders:   orders,
			products: products,
			logger:   logger,
			now:      time.Now,
		},
	}
}

// Populate runs fetch → extract → upsert for one client.
func (p *ShopifyPopulator) Populate(ctx context.Context, clientID string) (*domain.PopulateResult, error) {
	return p.populate(ctx, clientID, p.Extract)
}

// Extract recognizes Shopify order and product payload shapes inside generic
// raw records. Unrecognized shapes are skipped silently; extraction never
// fails.
func (p *ShopifyPopulator) Extract(records []domain.RawRecord) domain.Extraction {
	var extraction domain.Extraction

	for _, record := range records {
		if !isShopifyRecord(record) {
			continue
		}

		switch shapeOf(record.Payload) {
		case shapeOrder:
			if order, ok := decodeShopifyOrder(record); ok {
				extraction.Orders = append(extraction.Orders, order)
			}
		case shapeProduct:
			extraction.Products = append(extraction.Products, decodeShopifyProducts(record)...)
		}
	}

	return extraction
}

type payloadShape int

const (
	shapeUnknown payloadShape = iota
	shapeOrder
	shapeProduct
)

// shapeOf distinguishes order payloads from product payloads. Order signals
// win: Shopify order payloads embed line-item product fields.
func shapeOf(payload json.RawMessage) payloadShape {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return shapeUnknown
	}

	if _, ok := fields["order_number"]; ok {
		return shapeOrder
	}
	if _, ok := fields["total_price"]; ok {
		return shapeOrder
	}
	if _, ok := fields["variants"]; ok {
		return shapeProduct
	}
	if _, ok := fields["product_type"]; ok {
		return shapeProduct
	}
	return shapeUnknown
}

func isShopifyRecord(record domain.RawRecord) bool {
	return strings.HasPrefix(strings.ToLower(record.SourceHint), "shopify")
}

// decodeShopifyOrder maps a Shopify order payload onto the normalized order
// entity using the go-shopify types, so field parsing (decimals, timestamps)
// follows the platform's own schema.
func decodeShopifyOrder(record domain.RawRecord) (domain.Order, bool) {
	var order goshopify.Order
	if err := json.Unmarshal(record.Payload, &order); err != nil {
		return domain.Order{}, false
	}
	if order.Id == 0 {
		return domain.Order{}, false
	}

	total := decimal.Zero
	if order.TotalPrice != nil {
		total = *order.TotalPrice
	}

	orderNumber := order.Name
	if orderNumber == "" && order.OrderNumber != 0 {
		orderNumber = strconv.Itoa(order.OrderNumber)
	}

	placedAt := record.ReceivedAt
	if order.CreatedAt != nil {
		placedAt = *order.CreatedAt
	}

	return domain.Order{
		ClientID:      record.ClientID,
		PlatformType:  domain.PlatformShopify,
		ExternalID:    fmt.Sprintf("%d", order.Id),
		OrderNumber:   orderNumber,
		TotalPrice:    total,
		Currency:      order.Currency,
		LineItemCount: len(order.LineItems),
		PlacedAt:      placedAt,
	}, true
}

// decodeShopifyProducts maps one Shopify product payload onto normalized
// product entities, one per variant since each variant carries its own SKU
// and inventory position.
func decodeShopifyProducts(record domain.RawRecord) []domain.Product {
	var product goshopify.Product
	if err := json.Unmarshal(record.Payload, &product); err != nil {
		return nil
	}
	if product.Id == 0 {
		return nil
	}

	updatedAt := record.ReceivedAt
	if product.UpdatedAt != nil {
		updatedAt = *product.UpdatedAt
	}

	if len(product.Variants) == 0 {
		return []domain.Product{{
			ClientID:     record.ClientID,
			PlatformType: domain.PlatformShopify,
			ExternalID:   fmt.Sprintf("%d", product.Id),
			Title:        product.Title,
			UpdatedAt:    updatedAt,
		}}
	}

	entities := make([]domain.Product, 0, len(product.Variants))
	for _, variant := range product.Variants {
		price := decimal.Zero
		if variant.Price != nil {
			price = *variant.Price
		}
		entities = append(entities, domain.Product{
			ClientID:          record.ClientID,
			PlatformType:      domain.PlatformShopify,
			ExternalID:        fmt.Sprintf("%d:%d", product.Id, variant.Id),
			Title:             product.Title,
			SKU:               variant.Sku,
			Price:             price,
			InventoryQuantity: variant.InventoryQuantity,
			UpdatedAt:         updatedAt,
		})
	}
	return entities
}
