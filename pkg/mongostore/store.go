package mongostore

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/mongomembership/pkg/logger"
	"github.com/dmitrymomot/mongomembership/pkg/membership"
	mongox "github.com/dmitrymomot/mongomembership/pkg/mongo"
	"github.com/dmitrymomot/mongomembership/pkg/sequence"
)

// Store is a membership.Storage backed by MongoDB. It is safe for concurrent use.
type Store struct {
	cfg      Config
	ids      sequence.Allocator
	accounts *mongo.Collection
	roles    *mongo.Collection
	links    *mongo.Collection
	tokens   *mongo.Collection
	logger   *slog.Logger
}

// Option configures the store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a store over db. Empty collection names in cfg fall back to the defaults.
// A nil ids allocator uses a sequence.MongoAllocator on cfg.SequenceCollection.
func New(db *mongo.Database, cfg Config, ids sequence.Allocator, opts ...Option) *Store {
	cfg = cfg.withDefaults()
	if ids == nil {
		ids = sequence.NewMongoAllocator(db.Collection(cfg.SequenceCollection))
	}

	s := &Store{
		cfg:      cfg,
		ids:      ids,
		accounts: db.Collection(cfg.AccountsCollection),
		roles:    db.Collection(cfg.RolesCollection),
		links:    db.Collection(cfg.OAuthLinksCollection),
		tokens:   db.Collection(cfg.OAuthTokensCollection),
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective collection names.
func (s *Store) Config() Config {
	return s.cfg
}

// EnsureIndexes declares the indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	sets := []struct {
		coll    *mongo.Collection
		indexes []mongox.Index
	}{
		{s.accounts, []mongox.Index{
			{Name: "user_name_lower_unique", Fields: []string{"UserNameLower"}, Unique: true},
			{Name: "confirmation_token_unique", Fields: []string{"ConfirmationToken"}, Unique: true, Sparse: true, Collation: mongox.CaseInsensitive},
			{Name: "reset_token", Fields: []string{"PasswordVerificationToken"}, Sparse: true, Collation: mongox.CaseInsensitive},
			{Name: "roles", Fields: []string{"Roles"}},
		}},
		{s.roles, []mongox.Index{
			{Name: "role_name_unique", Fields: []string{"RoleName"}, Unique: true},
		}},
		{s.links, []mongox.Index{
			{Name: "provider_identity_unique", Fields: []string{"ProviderLower", "ProviderUserIdLower"}, Unique: true},
			{Name: "user_id", Fields: []string{"UserId"}},
		}},
		{s.tokens, []mongox.Index{
			{Name: "token_unique", Fields: []string{"Token"}, Unique: true},
		}},
	}

	for _, set := range sets {
		if err := mongox.EnsureIndexes(ctx, set.coll, set.indexes...); err != nil {
			return err
		}
		s.logger.DebugContext(ctx, "indexes ensured",
			logger.Component("mongostore"),
			logger.Entity(set.coll.Name()),
		)
	}
	return nil
}

// nextID allocates an id for a document in coll.
func (s *Store) nextID(ctx context.Context, coll *mongo.Collection) (int64, error) {
	id, err := s.ids.Next(ctx, coll.Name())
	if err != nil {
		s.logger.ErrorContext(ctx, "id allocation failed",
			logger.Component("mongostore"),
			logger.Entity(coll.Name()),
			logger.Error(err),
		)
		return 0, fmt.Errorf("%w: %w", membership.ErrStorageUnavailable, err)
	}
	return id, nil
}

var _ membership.Storage = (*Store)(nil)
