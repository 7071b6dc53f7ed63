package mongostore

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/mongomembership/pkg/membership"
	"github.com/dmitrymomot/mongomembership/pkg/mongo"
)

// mapError converts a driver error into a membership error. notFound is returned for
// "no documents" results.
func mapError(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case mongo.IsNoDocuments(err):
		return notFound
	case mongo.IsDuplicateKey(err):
		return fmt.Errorf("%w: %v", membership.ErrDuplicateKey, err)
	default:
		return errors.Join(membership.ErrStorageUnavailable, err)
	}
}

// corrupt marks a document that could not be decoded.
func corrupt(collection string, err error) error {
	return fmt.Errorf("%w: %s: %w", membership.ErrCorruptRecord, collection, err)
}
