package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CaseInsensitive is a collation that compares strings ignoring case (strength 2).
// Queries must pass the same collation to use an index created with it.
var CaseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// Index describes an ascending index over one or more fields.
type Index struct {
	Name      string
	Fields    []string
	Unique    bool
	Sparse    bool
	Collation *options.Collation
}

// EnsureIndexes creates the given indexes on coll. Creating an index that already exists
// with the same definition is a no-op on the server.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection, indexes ...Index) error {
	if len(indexes) == 0 {
		return nil
	}

	models := make([]mongo.IndexModel, 0, len(indexes))
	for _, idx := range indexes {
		keys := bson.D{}
		for _, f := range idx.Fields {
			keys = append(keys, bson.E{Key: f, Value: 1})
		}

		opts := options.Index().SetUnique(idx.Unique).SetSparse(idx.Sparse)
		if idx.Name != "" {
			opts.SetName(idx.Name)
		}
		if idx.Collation != nil {
			opts.SetCollation(idx.Collation)
		}
		models = append(models, mongo.IndexModel{Keys: keys, Options: opts})
	}

	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return errors.Join(ErrIndexCreationFailed, fmt.Errorf("collection %s: %w", coll.Name(), err))
	}
	return nil
}
