package repository

import (
	"context"
	"fmt"
	"time"

	"pulse-core-analytics-layer/internal/domain"
	"pulse-core-analytics-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// clientSettingsDoc stores per-client analytics settings. Kept local to the
// repository; the domain only sees AlertThresholds.
type clientSettingsDoc struct {
	ClientID  string    `bson:"clientId"`
	LowStock  int       `bson:"lowStock"`
	Overstock int       `bson:"overstock"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoSettingsRepository implements SettingsRepository using MongoDB
type MongoSettingsRepository struct {
	collection *mongo.Collection
}

// NewMongoSettingsRepository creates a new MongoDB settings repository
func NewMongoSettingsRepository(db *mongo.Database) ports.SettingsRepository {
	return &MongoSettingsRepository{
		collection: db.Collection("client_settings"),
	}
}

// GetThresholds retrieves a client's alert thresholds. A client without
// stored settings yields (nil, nil); callers fall back to defaults.
func (r *MongoSettingsRepository) GetThresholds(ctx context.Context, clientID string) (*domain.AlertThresholds, error) {
	var doc clientSettingsDoc
	err := r.collection.FindOne(ctx, bson.M{"clientId": clientID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client settings: %w", err)
	}

	return &domain.AlertThresholds{LowStock: doc.LowStock, Overstock: doc.Overstock}, nil
}

// SaveThresholds saves or updates a client's alert thresholds
func (r *MongoSettingsRepository) SaveThresholds(ctx context.Context, clientID string, thresholds domain.AlertThresholds) error {
	doc := clientSettingsDoc{
		ClientID:  clientID,
		LowStock:  thresholds.LowStock,
		Overstock: thresholds.Overstock,
		UpdatedAt: time.Now(),
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"clientId": clientID}
	update := bson.M{"$set": doc}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save client settings: %w", err)
	}

	return nil
}
