package config

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"docchat-backend/utils"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := utils.WithTimeout(context.Background())
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	if err := createIndexes(client, cfg.DBName); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	ctx, cancel := utils.WithTimeout(context.Background())
	defer cancel()

	db := client.Database(dbName)

	// Index entries are keyed by chunk id for idempotent upserts.
	entriesCollection := db.Collection("index_entries")
	entryIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "chunk_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := entriesCollection.Indexes().CreateMany(ctx, entryIndexes); err != nil {
		return err
	}

	// Message archive indexes
	messagesCollection := db.Collection("messages")
	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	}
	if _, err := messagesCollection.Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return err
	}

	// Device tokens are unique per token string.
	tokensCollection := db.Collection("device_tokens")
	tokenIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := tokensCollection.Indexes().CreateMany(ctx, tokenIndexes); err != nil {
		return err
	}

	return nil
}
