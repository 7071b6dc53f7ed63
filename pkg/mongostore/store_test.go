package mongostore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/mongomembership/pkg/membership"
)

func TestConfigWithDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{RolesCollection: "roles"}.withDefaults()
	assert.Equal(t, "webpages_Membership", cfg.AccountsCollection)
	assert.Equal(t, "roles", cfg.RolesCollection)
	assert.Equal(t, "webpages_OAuthToken", cfg.OAuthTokensCollection)
	assert.Equal(t, "webpages_OAuthMembership", cfg.OAuthLinksCollection)
	assert.Equal(t, "IDSequence", cfg.SequenceCollection)

	assert.Equal(t, DefaultConfig(), Config{}.withDefaults())
}

func TestMapError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, mapError(nil, membership.ErrAccountNotFound))
	assert.ErrorIs(t, mapError(mongo.ErrNoDocuments, membership.ErrRoleNotFound), membership.ErrRoleNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	err := mapError(dup, nil)
	assert.ErrorIs(t, err, membership.ErrDuplicateKey)
	assert.ErrorIs(t, err, membership.ErrConflict)

	boom := errors.New("connection reset")
	err = mapError(boom, nil)
	assert.ErrorIs(t, err, membership.ErrStorageUnavailable)
	assert.ErrorIs(t, err, boom)

	err = corrupt("webpages_Role", boom)
	assert.ErrorIs(t, err, membership.ErrCorruptRecord)
	assert.Contains(t, err.Error(), "webpages_Role")
}

func TestNewLinkDocument(t *testing.T) {
	t.Parallel()

	doc := newLinkDocument(membership.OAuthLink{ID: "x", Provider: "GitHub", ProviderUserID: "AbC", UserID: 3})
	assert.Equal(t, "github", doc.ProviderLower)
	assert.Equal(t, "abc", doc.ProviderUserIDLower)
	assert.Equal(t, "GitHub", doc.Provider)
}
