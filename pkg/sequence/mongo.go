package sequence

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// counterDocument is the shape of a counter record: {_id: <entity>, seq: <last issued value>}.
type counterDocument struct {
	Entity string `bson:"_id"`
	Seq    int64  `bson:"seq"`
}

// MongoAllocator allocates identifiers from a MongoDB collection holding one counter document per entity.
type MongoAllocator struct {
	coll *mongo.Collection
}

// NewMongoAllocator creates an allocator backed by coll.
func NewMongoAllocator(coll *mongo.Collection) *MongoAllocator {
	return &MongoAllocator{coll: coll}
}

// Next atomically increments the counter document of entity and returns the new value.
// The document is created with seq=1 on first use.
func (a *MongoAllocator) Next(ctx context.Context, entity string) (int64, error) {
	if entity == "" {
		return 0, ErrEmptyEntity
	}

	seq, err := a.increment(ctx, entity)
	if mongo.IsDuplicateKeyError(err) {
		// Two first-time upserts raced on the same _id; the loser retries against the now existing document.
		seq, err = a.increment(ctx, entity)
	}
	if err != nil {
		return 0, errors.Join(ErrAllocationFailed, err)
	}
	return seq, nil
}

func (a *MongoAllocator) increment(ctx context.Context, entity string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDocument
	err := a.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: entity}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

var _ Allocator = (*MongoAllocator)(nil)
