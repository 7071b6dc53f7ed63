package membership

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_LinkOrCreateOAuthAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("creates confirmed non-local account", func(t *testing.T) {
		t.Parallel()

		svc := newAccountService(t, NewMemoryStorage(nil))
		require.NoError(t, svc.LinkOrCreateOAuthAccount(ctx, "GitHub", "42", "Alice"))

		account, err := svc.Account(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, account.IsLocalAccount)
		assert.True(t, account.IsConfirmed)
		assert.Empty(t, account.PasswordHash)

		id, err := svc.UserIDFromOAuth(ctx, "github", "42")
		require.NoError(t, err)
		assert.Equal(t, account.UserID, id)
	})

	t.Run("links existing account", func(t *testing.T) {
		t.Parallel()

		svc := newAccountService(t, NewMemoryStorage(nil))
		createConfirmed(t, svc, "bob", "pw")
		require.NoError(t, svc.LinkOrCreateOAuthAccount(ctx, "google", "g-1", "BOB"))

		accounts, err := svc.OAuthAccounts(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, []OAuthAccount{{Provider: "google", ProviderUserID: "g-1"}}, accounts)

		hasLocal, err := svc.HasLocalAccount(ctx, 1)
		require.NoError(t, err)
		assert.True(t, hasLocal)
	})

	t.Run("relinks identity to another user", func(t *testing.T) {
		t.Parallel()

		svc := newAccountService(t, NewMemoryStorage(nil))
		require.NoError(t, svc.LinkOrCreateOAuthAccount(ctx, "github", "7", "carol"))
		require.NoError(t, svc.LinkOrCreateOAuthAccount(ctx, "GITHUB", "7", "dave"))

		id, err := svc.UserIDFromOAuth(ctx, "github", "7")
		require.NoError(t, err)
		assert.Equal(t, int64(2), id)

		accounts, err := svc.OAuthAccounts(ctx, "carol")
		require.NoError(t, err)
		assert.Empty(t, accounts)
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()

		svc := newAccountService(t, NewMemoryStorage(nil))
		require.ErrorIs(t, svc.LinkOrCreateOAuthAccount(ctx, "github", "", "x"), ErrEmptyProviderUserID)
		require.ErrorIs(t, svc.LinkOrCreateOAuthAccount(ctx, "github", "1", ""), ErrEmptyUserName)
		require.ErrorIs(t, svc.LinkOrCreateOAuthAccount(ctx, "", "1", "x"), ErrInvalidInput)
	})
}

func TestAccountService_OAuthAccounts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newAccountService(t, NewMemoryStorage(nil))
	require.NoError(t, svc.LinkOrCreateOAuthAccount(ctx, "twitter", "t", "alice"))
	require.NoError(t, svc.LinkOrCreateOAuthAccount(ctx, "github", "b", "alice"))
	require.NoError(t, svc.LinkOrCreateOAuthAccount(ctx, "github", "a", "alice"))

	accounts, err := svc.OAuthAccounts(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []OAuthAccount{
		{Provider: "github", ProviderUserID: "a"},
		{Provider: "github", ProviderUserID: "b"},
		{Provider: "twitter", ProviderUserID: "t"},
	}, accounts)

	ok, err := svc.DeleteOAuthAccount(ctx, "GitHub", "A")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.DeleteOAuthAccount(ctx, "github", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.OAuthAccounts(ctx, "ghost")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountService_OAuthTokens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("store and replace", func(t *testing.T) {
		t.Parallel()

		svc := newAccountService(t, NewMemoryStorage(nil))
		require.NoError(t, svc.StoreOAuthRequestToken(ctx, "req", "s1"))
		require.NoError(t, svc.StoreOAuthRequestToken(ctx, "req", "s2"))

		secret, err := svc.OAuthTokenSecret(ctx, "req")
		require.NoError(t, err)
		assert.Equal(t, "s2", secret)

		require.NoError(t, svc.ReplaceOAuthRequestToken(ctx, "req", "acc", "as"))

		_, err = svc.OAuthTokenSecret(ctx, "req")
		require.ErrorIs(t, err, ErrOAuthTokenNotFound)

		secret, err = svc.OAuthTokenSecret(ctx, "acc")
		require.NoError(t, err)
		assert.Equal(t, "as", secret)
	})

	t.Run("tokens are case-sensitive", func(t *testing.T) {
		t.Parallel()

		svc := newAccountService(t, NewMemoryStorage(nil))
		require.NoError(t, svc.StoreOAuthRequestToken(ctx, "Token", "upper"))
		require.NoError(t, svc.StoreOAuthRequestToken(ctx, "token", "lower"))

		secret, err := svc.OAuthTokenSecret(ctx, "Token")
		require.NoError(t, err)
		assert.Equal(t, "upper", secret)

		ok, err := svc.DeleteOAuthToken(ctx, "TOKEN")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = svc.DeleteOAuthToken(ctx, "token")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("replace with unknown request token does nothing", func(t *testing.T) {
		t.Parallel()

		svc := newAccountService(t, NewMemoryStorage(nil))
		require.NoError(t, svc.ReplaceOAuthRequestToken(ctx, "missing", "acc", "as"))

		_, err := svc.OAuthTokenSecret(ctx, "acc")
		require.ErrorIs(t, err, ErrOAuthTokenNotFound)
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()

		svc := newAccountService(t, NewMemoryStorage(nil))
		require.ErrorIs(t, svc.StoreOAuthRequestToken(ctx, "", "s"), ErrEmptyToken)
		require.ErrorIs(t, svc.StoreOAuthRequestToken(ctx, "t", ""), ErrEmptySecret)
		require.ErrorIs(t, svc.ReplaceOAuthRequestToken(ctx, "r", "", "s"), ErrEmptyToken)
		_, err := svc.OAuthTokenSecret(ctx, "")
		require.ErrorIs(t, err, ErrEmptyToken)
	})
}
