package vectorstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPersistence stores index entries in the index_entries collection
// so the index survives process restarts.
type MongoPersistence struct {
	collection *mongo.Collection
}

func NewMongoPersistence(db *mongo.Database) *MongoPersistence {
	return &MongoPersistence{
		collection: db.Collection("index_entries"),
	}
}

// SaveEntries upserts entries keyed by chunk_id.
func (mp *MongoPersistence) SaveEntries(ctx context.Context, entries []indexRecord) error {
	if len(entries) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, len(entries))
	for i, rec := range entries {
		writes[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"chunk_id": rec.ChunkID}).
			SetReplacement(rec).
			SetUpsert(true)
	}

	if _, err := mp.collection.BulkWrite(ctx, writes); err != nil {
		return fmt.Errorf("bulk upsert of index entries failed: %w", err)
	}
	return nil
}

// LoadEntries returns all persisted entries in insertion order.
func (mp *MongoPersistence) LoadEntries(ctx context.Context) ([]indexRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := mp.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("finding index entries: %w", err)
	}
	defer cursor.Close(ctx)

	var records []indexRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decoding index entries: %w", err)
	}
	return records, nil
}

// DropEntries removes every persisted entry.
func (mp *MongoPersistence) DropEntries(ctx context.Context) error {
	if _, err := mp.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("deleting index entries: %w", err)
	}
	return nil
}
