package repository

import (
	"context"
	"fmt"
	"time"

	"pulse-core-analytics-layer/internal/domain"
	"pulse-core-analytics-layer/internal/infrastructure/repository/entity"
	"pulse-core-analytics-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoIntegrationRepository implements IntegrationRepository using MongoDB
type MongoIntegrationRepository struct {
	collection *mongo.Collection
}

// NewMongoIntegrationRepository creates a new MongoDB integration repository
func NewMongoIntegrationRepository(db *mongo.Database) ports.IntegrationRepository {
	return &MongoIntegrationRepository{
		collection: db.Collection("integrations"),
	}
}

// Create creates a new platform integration
func (r *MongoIntegrationRepository) Create(ctx context.Context, integration *domain.PlatformIntegration) error {
	doc := entity.MongoIntegrationDocFromDomain(integration)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	// One integration per (client, platform) pair.
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "platformType", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create integration: %w", err)
	}

	return nil
}

// GetByClientAndPlatform retrieves an integration by client ID and platform type
func (r *MongoIntegrationRepository) GetByClientAndPlatform(ctx context.Context, clientID string, platform domain.PlatformType) (*domain.PlatformIntegration, error) {
	var doc entity.MongoIntegrationDoc
	filter := bson.M{
		"clientId":     clientID,
		"platformType": string(platform),
	}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}

	return doc.ToDomain(), nil
}

// ListActive retrieves every integration eligible for a refresh run.
func (r *MongoIntegrationRepository) ListActive(ctx context.Context) ([]*domain.PlatformIntegration, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"status": string(domain.IntegrationActive)})
	if err != nil {
		return nil, fmt.Errorf("failed to list active integrations: %w", err)
	}
	defer cursor.Close(ctx)

	var integrations []*domain.PlatformIntegration
	for cursor.Next(ctx) {
		var doc entity.MongoIntegrationDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode integration: %w", err)
		}
		integrations = append(integrations, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return integrations, nil
}

// UpdateSyncTimes persists the integration's sync schedule after an attempt.
// Only the scheduler calls this.
func (r *MongoIntegrationRepository) UpdateSyncTimes(ctx context.Context, integration *domain.PlatformIntegration) error {
	filter := bson.M{
		"clientId":     integration.ClientID,
		"platformType": string(integration.PlatformType),
	}
	update := bson.M{
		"$set": bson.M{
			"lastSyncAt": integration.LastSyncAt,
			"nextSyncAt": integration.NextSyncAt,
			"updatedAt":  integration.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update sync times: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("integration not found for client %s platform %s", integration.ClientID, integration.PlatformType)
	}

	return nil
}
