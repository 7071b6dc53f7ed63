package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"
)

// New creates a connected mongo client.
// It pings the server after connecting and retries up to cfg.RetryAttempts times.
func New(ctx context.Context, cfg Config) (*mongo.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.ConnectionURL).
				SetConnectTimeout(cfg.ConnectTimeout).
				SetMaxPoolSize(cfg.MaxPoolSize).
				SetMinPoolSize(cfg.MinPoolSize).
				SetMaxConnIdleTime(cfg.MaxConnIdleTime).
				SetRetryWrites(cfg.RetryWrites).
				SetRetryReads(cfg.RetryReads),
		)
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				return client, nil
			}
			_ = client.Disconnect(context.Background())
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToConnectToMongo, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrFailedToConnectToMongo, lastErr)
}

// NewWithDatabase creates a new mongo client and returns a database handle with acknowledged writes.
// When database is empty, the database named in the connection URL is used.
func NewWithDatabase(ctx context.Context, cfg Config, database string) (*mongo.Database, error) {
	if database == "" {
		name, err := DatabaseFromURL(cfg.ConnectionURL)
		if err != nil {
			return nil, err
		}
		database = name
	}

	client, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client.Database(database, options.Database().SetWriteConcern(writeconcern.W1())), nil
}

// DatabaseFromURL extracts the database name from a mongodb:// connection URL.
func DatabaseFromURL(url string) (string, error) {
	cs, err := connstring.ParseAndValidate(url)
	if err != nil {
		return "", errors.Join(ErrInvalidConnectionURL, err)
	}
	if cs.Database == "" {
		return "", ErrNoDatabaseName
	}
	return cs.Database, nil
}
