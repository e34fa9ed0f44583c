package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukydev/fleet-live/internal/store"
)

// DefaultURI is used when no URI is configured.
const DefaultURI = "mongodb://localhost:27017"

// ConnectMongo connects to MongoDB at uri and pings it.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		uri = DefaultURI
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// preferencesDoc is the stored form of one profile's preferences.
type preferencesDoc struct {
	Profile           string `bson:"_id"`
	store.Preferences `bson:",inline"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

// MongoCollection wraps a MongoDB collection for preference documents.
type MongoCollection struct {
	Collection *mongo.Collection
}

// FindPreferences returns the profile's preferences, or nil when none
// were saved yet.
func (c *MongoCollection) FindPreferences(ctx context.Context, profile string) (*store.Preferences, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var doc preferencesDoc
	err := c.Collection.FindOne(ctx, bson.M{"_id": profile}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc.Preferences, nil
}

// UpsertPreferences replaces the profile's document, creating it if needed.
func (c *MongoCollection) UpsertPreferences(ctx context.Context, profile string, prefs store.Preferences) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	doc := preferencesDoc{Profile: profile, Preferences: prefs, UpdatedAt: time.Now().UTC()}
	_, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": profile}, doc, options.Replace().SetUpsert(true))
	return err
}
