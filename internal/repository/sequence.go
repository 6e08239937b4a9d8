package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sequence hands out monotonically increasing integer ids per entity kind,
// backed by a counters collection. Session and config ids are plain ints on
// the wire, so ObjectIDs are not an option.
type Sequence interface {
	Next(ctx context.Context, name string) (int64, error)
}

type sequence struct {
	collection *mongo.Collection
}

// NewSequence creates the id sequence backed by the counters collection
func NewSequence(db *mongo.Database) Sequence {
	return &sequence{
		collection: db.Collection("counters"),
	}
}

func (s *sequence) Next(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Value int64 `bson:"value"`
	}
	err := s.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}
