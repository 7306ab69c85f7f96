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

// MongoRawRecordRepository implements RawRecordRepository using MongoDB
type MongoRawRecordRepository struct {
	collection *mongo.Collection
}

// NewMongoRawRecordRepository creates a new MongoDB raw record repository
func NewMongoRawRecordRepository(db *mongo.Database) ports.RawRecordRepository {
	return &MongoRawRecordRepository{
		collection: db.Collection("raw_records"),
	}
}

// ListByClient retrieves all raw records for a client. A client with no data
// yields an empty slice; only backend failures surface as errors.
func (r *MongoRawRecordRepository) ListByClient(ctx context.Context, clientID string) ([]domain.RawRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"clientId": clientID})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list raw records: %v", domain.ErrStorageUnavailable, err)
	}
	defer cursor.Close(ctx)

	records := []domain.RawRecord{}
	for cursor.Next(ctx) {
		var doc entity.MongoRawRecordDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: failed to decode raw record: %v", domain.ErrStorageUnavailable, err)
		}
		records = append(records, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: cursor error: %v", domain.ErrStorageUnavailable, err)
	}

	return records, nil
}

// MongoOrganizedEntityRepository implements OrganizedEntityRepository using MongoDB
type MongoOrganizedEntityRepository struct {
	collection *mongo.Collection
}

// NewMongoOrganizedEntityRepository creates a new MongoDB organized entity repository
func NewMongoOrganizedEntityRepository(db *mongo.Database) ports.OrganizedEntityRepository {
	return &MongoOrganizedEntityRepository{
		collection: db.Collection("organized_entities"),
	}
}

// UpsertBatch persists categorized records keyed by their natural key and
// returns the number of rows actually changed.
func (r *MongoOrganizedEntityRepository) UpsertBatch(ctx context.Context, entities []domain.OrganizedEntity) (int, error) {
	if len(entities) == 0 {
		return 0, nil
	}

	models := make([]mongo.WriteModel, 0, len(entities))
	for i := range entities {
		doc := entity.MongoOrganizedEntityDocFromDomain(&entities[i])
		filter := bson.M{
			"clientId":   doc.ClientID,
			"category":   doc.Category,
			"naturalKey": doc.NaturalKey,
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(filter).
			SetReplacement(doc).
			SetUpsert(true))
	}

	result, err := r.collection.BulkWrite(ctx, models)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert organized entities: %w", err)
	}

	return int(result.ModifiedCount + result.UpsertedCount), nil
}

// CountByCategory returns per-category entity counts for a client.
func (r *MongoOrganizedEntityRepository) CountByCategory(ctx context.Context, clientID string) (map[domain.Category]int, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"clientId": clientID}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count organized entities: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[domain.Category]int)
	for cursor.Next(ctx) {
		var row struct {
			Category string `bson:"_id"`
			Count    int    `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode category count: %w", err)
		}
		counts[domain.Category(row.Category)] = row.Count
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return counts, nil
}
