package membership

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mongomembership/pkg/sequence"
)

func TestMemoryStorage_Accounts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("allocates ids and copies records", func(t *testing.T) {
		t.Parallel()

		ids := sequence.NewMemoryAllocator()
		s := NewMemoryStorage(ids)

		a := &Account{UserName: "Alice", UserNameLower: "alice"}
		require.NoError(t, s.UpsertAccount(ctx, a))
		assert.Equal(t, int64(1), a.UserID)
		assert.Equal(t, []string{}, a.Roles)
		assert.Equal(t, int64(1), ids.Current(memoryAccountsEntity))

		got, err := s.AccountByUserName(ctx, "ALICE")
		require.NoError(t, err)
		got.Roles = append(got.Roles, "leak")

		again, err := s.AccountByID(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, again.Roles)
	})

	t.Run("unique user name and confirmation token", func(t *testing.T) {
		t.Parallel()

		s := NewMemoryStorage(nil)
		require.NoError(t, s.UpsertAccount(ctx, &Account{UserNameLower: "a", ConfirmationToken: "Tok"}))

		err := s.UpsertAccount(ctx, &Account{UserNameLower: "a"})
		require.ErrorIs(t, err, ErrDuplicateKey)

		err = s.UpsertAccount(ctx, &Account{UserNameLower: "b", ConfirmationToken: "tok"})
		require.ErrorIs(t, err, ErrDuplicateKey)

		require.NoError(t, s.UpsertAccount(ctx, &Account{UserNameLower: "c"}))
		require.NoError(t, s.UpsertAccount(ctx, &Account{UserNameLower: "d"}), "empty tokens do not collide")
	})

	t.Run("targeted updates leave other fields alone", func(t *testing.T) {
		t.Parallel()

		s := NewMemoryStorage(nil)
		a := &Account{UserNameLower: "a", IsLocalAccount: true, Roles: []string{"admin"}, PasswordFailureCount: 2}
		require.NoError(t, s.UpsertAccount(ctx, a))

		at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, s.ConfirmAccount(ctx, a.UserID))
		require.NoError(t, s.SetResetToken(ctx, a.UserID, "reset", at.Add(time.Hour)))

		got, err := s.AccountByResetToken(ctx, "RESET")
		require.NoError(t, err)
		assert.True(t, got.IsConfirmed)
		assert.Equal(t, at.Add(time.Hour), *got.PasswordResetTokenExpiresAt)

		require.NoError(t, s.SetPassword(ctx, a.UserID, "hash", "salt", at))
		got, err = s.AccountByID(ctx, a.UserID)
		require.NoError(t, err)
		assert.Equal(t, "hash", got.PasswordHash)
		assert.Equal(t, at, *got.PasswordChangedAt)
		assert.Empty(t, got.PasswordResetToken)
		assert.Nil(t, got.PasswordResetTokenExpiresAt)
		assert.Equal(t, []string{"admin"}, got.Roles)
		assert.Equal(t, 2, got.PasswordFailureCount)

		require.ErrorIs(t, s.ConfirmAccount(ctx, 999), ErrAccountNotFound)
		require.ErrorIs(t, s.SetPassword(ctx, 999, "h", "s", at), ErrAccountNotFound)
	})

	t.Run("convert to local account", func(t *testing.T) {
		t.Parallel()

		s := NewMemoryStorage(nil)
		a := &Account{UserNameLower: "a", ConfirmationToken: "keep", ExtraData: "x", Roles: []string{"admin"}}
		require.NoError(t, s.UpsertAccount(ctx, a))
		require.NoError(t, s.UpsertAccount(ctx, &Account{UserNameLower: "b", ConfirmationToken: "taken"}))

		creds := LocalCredentials{PasswordHash: "h", PasswordSalt: "s", ChangedAt: time.Now().UTC()}
		err := s.ConvertToLocalAccount(ctx, a.UserID, LocalCredentials{ConfirmationToken: "TAKEN"})
		require.ErrorIs(t, err, ErrDuplicateKey)

		require.NoError(t, s.ConvertToLocalAccount(ctx, a.UserID, creds))
		got, err := s.AccountByID(ctx, a.UserID)
		require.NoError(t, err)
		assert.True(t, got.IsLocalAccount)
		assert.Equal(t, "keep", got.ConfirmationToken)
		assert.Equal(t, "x", got.ExtraData)
		assert.Equal(t, []string{"admin"}, got.Roles)

		require.ErrorIs(t, s.ConvertToLocalAccount(ctx, a.UserID, creds), ErrDuplicateUserName)
		require.ErrorIs(t, s.ConvertToLocalAccount(ctx, 999, creds), ErrAccountNotFound)
	})

	t.Run("atomic mutations", func(t *testing.T) {
		t.Parallel()

		s := NewMemoryStorage(nil)
		a := &Account{UserNameLower: "a"}
		require.NoError(t, s.UpsertAccount(ctx, a))

		at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, s.RecordPasswordFailure(ctx, a.UserID, at))
		require.NoError(t, s.RecordPasswordFailure(ctx, a.UserID, at))
		require.NoError(t, s.AddAccountRoles(ctx, a.UserID, []string{"x", "y"}))
		require.NoError(t, s.AddAccountRoles(ctx, a.UserID, []string{"y", "z"}))
		require.NoError(t, s.RemoveAccountRoles(ctx, a.UserID, []string{"x"}))

		got, err := s.AccountByID(ctx, a.UserID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.PasswordFailureCount)
		assert.Equal(t, []string{"y", "z"}, got.Roles)

		require.NoError(t, s.RecordLoginSuccess(ctx, a.UserID, at))
		got, err = s.AccountByID(ctx, a.UserID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.PasswordFailureCount)
		assert.Equal(t, at, *got.LastLoginAt)

		n, err := s.RemoveRoleFromAccounts(ctx, "z")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		require.ErrorIs(t, s.AddAccountRoles(ctx, 99, []string{"x"}), ErrAccountNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		s := NewMemoryStorage(nil)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := s.AccountByID(cctx, 1)
		require.ErrorIs(t, err, ErrStorageUnavailable)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMemoryStorage_RolesAndOAuth(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStorage(nil)

	require.NoError(t, s.UpsertRole(ctx, &Role{RoleName: "b"}))
	require.NoError(t, s.UpsertRole(ctx, &Role{RoleName: "a"}))
	require.ErrorIs(t, s.UpsertRole(ctx, &Role{RoleName: "a"}), ErrDuplicateKey)

	roles, err := s.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "a", roles[0].RoleName)
	assert.Equal(t, int64(2), roles[0].RoleID)

	link := &OAuthLink{Provider: "GitHub", ProviderUserID: "X1", UserID: 5}
	require.NoError(t, s.UpsertOAuthLink(ctx, link))
	assert.NotEmpty(t, link.ID)
	require.ErrorIs(t, s.UpsertOAuthLink(ctx, &OAuthLink{Provider: "github", ProviderUserID: "x1"}), ErrDuplicateKey)

	found, err := s.OAuthLinkByProvider(ctx, "github", "x1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), found.UserID)

	n, err := s.DeleteOAuthLinksByUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.UpsertOAuthToken(ctx, &OAuthToken{Token: "t", Secret: "s"}))
	require.NoError(t, s.UpsertOAuthToken(ctx, &OAuthToken{Token: "T", Secret: "s"}))
	require.ErrorIs(t, s.UpsertOAuthToken(ctx, &OAuthToken{Token: "t"}), ErrDuplicateKey)
}
