package repository

import (
	"context"
	"fmt"

	"pulse-core-analytics-layer/internal/domain"
	"pulse-core-analytics-layer/internal/infrastructure/repository/entity"
	"pulse-core-analytics-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// platformFilter builds the tenant-scoped filter used by the entity stores.
// PlatformAll widens the filter to every platform of the client.
func platformFilter(clientID string, platform domain.PlatformType) bson.M {
	filter := bson.M{"clientId": clientID}
	if platform != "" && platform != domain.PlatformAll {
		filter["platformType"] = string(platform)
	}
	return filter
}

// MongoOrderRepository implements OrderRepository using MongoDB
type MongoOrderRepository struct {
	collection *mongo.Collection
}

// NewMongoOrderRepository creates a new MongoDB order repository
func NewMongoOrderRepository(db *mongo.Database) ports.OrderRepository {
	return &MongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

// UpsertBatch persists orders keyed by (clientId, platformType, externalId)
// and returns the number of rows actually changed. Re-running against the
// same data modifies nothing and reports zero.
func (r *MongoOrderRepository) UpsertBatch(ctx context.Context, orders []domain.Order) (int, error) {
	if len(orders) == 0 {
		return 0, nil
	}

	models := make([]mongo.WriteModel, 0, len(orders))
	for i := range orders {
		doc := entity.MongoOrderDocFromDomain(&orders[i])
		filter := bson.M{
			"clientId":     doc.ClientID,
			"platformType": doc.PlatformType,
			"externalId":   doc.ExternalID,
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(filter).
			SetReplacement(doc).
			SetUpsert(true))
	}

	result, err := r.collection.BulkWrite(ctx, models)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert orders: %w", err)
	}

	return int(result.ModifiedCount + result.UpsertedCount), nil
}

// ListByClient retrieves a client's orders, optionally scoped to one platform.
func (r *MongoOrderRepository) ListByClient(ctx context.Context, clientID string, platform domain.PlatformType) ([]domain.Order, error) {
	cursor, err := r.collection.Find(ctx, platformFilter(clientID, platform))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list orders: %v", domain.ErrStorageUnavailable, err)
	}
	defer cursor.Close(ctx)

	orders := []domain.Order{}
	for cursor.Next(ctx) {
		var doc entity.MongoOrderDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: failed to decode order: %v", domain.ErrStorageUnavailable, err)
		}
		orders = append(orders, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: cursor error: %v", domain.ErrStorageUnavailable, err)
	}

	return orders, nil
}

// MongoProductRepository implements ProductRepository using MongoDB
type MongoProductRepository struct {
	collection *mongo.Collection
}

// NewMongoProductRepository creates a new MongoDB product repository
func NewMongoProductRepository(db *mongo.Database) ports.ProductRepository {
	return &MongoProductRepository{
		collection: db.Collection("products"),
	}
}

// UpsertBatch persists products with the same changed-row semantics as the
// order repository.
func (r *MongoProductRepository) UpsertBatch(ctx context.Context, products []domain.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	models := make([]mongo.WriteModel, 0, len(products))
	for i := range products {
		doc := entity.MongoProductDocFromDomain(&products[i])
		filter := bson.M{
			"clientId":     doc.ClientID,
			"platformType": doc.PlatformType,
			"externalId":   doc.ExternalID,
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(filter).
			SetReplacement(doc).
			SetUpsert(true))
	}

	result, err := r.collection.BulkWrite(ctx, models)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert products: %w", err)
	}

	return int(result.ModifiedCount + result.UpsertedCount), nil
}

// ListByClient retrieves a client's products, optionally scoped to one platform.
func (r *MongoProductRepository) ListByClient(ctx context.Context, clientID string, platform domain.PlatformType) ([]domain.Product, error) {
	cursor, err := r.collection.Find(ctx, platformFilter(clientID, platform))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list products: %v", domain.ErrStorageUnavailable, err)
	}
	defer cursor.Close(ctx)

	products := []domain.Product{}
	for cursor.Next(ctx) {
		var doc entity.MongoProductDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: failed to decode product: %v", domain.ErrStorageUnavailable, err)
		}
		products = append(products, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: cursor error: %v", domain.ErrStorageUnavailable, err)
	}

	return products, nil
}
