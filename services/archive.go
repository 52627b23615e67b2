package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"docchat-backend/models"
)

// MongoMessageArchive stores answered turns in the messages collection.
type MongoMessageArchive struct {
	collection *mongo.Collection
}

func NewMongoMessageArchive(db *mongo.Database) *MongoMessageArchive {
	return &MongoMessageArchive{
		collection: db.Collection("messages"),
	}
}

func (a *MongoMessageArchive) Save(ctx context.Context, msg models.Message) error {
	if _, err := a.collection.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}
