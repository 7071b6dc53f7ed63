package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

var (
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
	ErrHealthcheckFailed      = errors.New("mongo healthcheck failed")
	ErrEmptyConnectionURL     = errors.New("empty mongo connection URL")
	ErrInvalidConnectionURL   = errors.New("invalid mongo connection URL")
	ErrNoDatabaseName         = errors.New("mongo connection URL has no database name")
	ErrIndexCreationFailed    = errors.New("failed to create mongo index")
)

// IsDuplicateKey reports whether err was caused by a unique index violation.
func IsDuplicateKey(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}

// IsNoDocuments reports whether err is the driver's "no documents in result" error.
func IsNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
