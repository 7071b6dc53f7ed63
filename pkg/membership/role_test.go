package membership

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// newRoleFixture returns services sharing storage with the given users and roles created.
func newRoleFixture(t *testing.T, storage Storage, users, roles []string) (AccountStore, RoleStore) {
	t.Helper()

	accounts := newAccountService(t, storage)
	rolesSvc := NewRoleService(storage)
	for _, u := range users {
		createConfirmed(t, accounts, u, "pw")
	}
	for _, r := range roles {
		require.NoError(t, rolesSvc.CreateRole(context.Background(), r))
	}
	return accounts, rolesSvc
}

func TestRoleService_CreateRole(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, svc := newRoleFixture(t, NewMemoryStorage(nil), nil, []string{"admin"})

	err := svc.CreateRole(ctx, "admin")
	require.ErrorIs(t, err, ErrDuplicateRole)
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, svc.CreateRole(ctx, "Admin"), "role names are case-sensitive")
	require.ErrorIs(t, svc.CreateRole(ctx, ""), ErrEmptyRoleName)

	exists, err := svc.RoleExists(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.RoleExists(ctx, "ADMIN")
	require.NoError(t, err)
	assert.False(t, exists)

	roles, err := svc.AllRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin", "admin"}, roles)
}

func TestRoleService_DeleteRole(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("refuses populated role", func(t *testing.T) {
		t.Parallel()

		_, svc := newRoleFixture(t, NewMemoryStorage(nil), []string{"alice"}, []string{"R"})
		require.NoError(t, svc.AddUsersToRoles(ctx, []string{"alice"}, []string{"R"}))

		ok, err := svc.DeleteRole(ctx, "R", true)
		require.ErrorIs(t, err, ErrRolePopulated)
		assert.ErrorIs(t, err, ErrConflict)
		assert.False(t, ok)

		exists, err := svc.RoleExists(ctx, "R")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("strips role from every account", func(t *testing.T) {
		t.Parallel()

		_, svc := newRoleFixture(t, NewMemoryStorage(nil), []string{"alice", "bob", "carol"}, []string{"R", "S"})
		require.NoError(t, svc.AddUsersToRoles(ctx, []string{"alice", "bob"}, []string{"R", "S"}))

		ok, err := svc.DeleteRole(ctx, "R", false)
		require.NoError(t, err)
		assert.True(t, ok)

		for _, u := range []string{"alice", "bob"} {
			roles, err := svc.RolesForUser(ctx, u)
			require.NoError(t, err)
			assert.Equal(t, []string{"S"}, roles)
		}

		_, err = svc.UsersInRole(ctx, "R")
		require.ErrorIs(t, err, ErrRoleNotFound)
	})

	t.Run("unknown role", func(t *testing.T) {
		t.Parallel()

		_, svc := newRoleFixture(t, NewMemoryStorage(nil), nil, nil)
		ok, err := svc.DeleteRole(ctx, "nope", true)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRoleService_AddRemoveUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("round trip and idempotence", func(t *testing.T) {
		t.Parallel()

		_, svc := newRoleFixture(t, NewMemoryStorage(nil), []string{"u"}, []string{"R"})

		require.NoError(t, svc.AddUsersToRoles(ctx, []string{"u"}, []string{"R"}))
		require.NoError(t, svc.AddUsersToRoles(ctx, []string{"U"}, []string{"R"}))

		roles, err := svc.RolesForUser(ctx, "u")
		require.NoError(t, err)
		assert.Equal(t, []string{"R"}, roles)

		in, err := svc.IsUserInRole(ctx, "u", "R")
		require.NoError(t, err)
		assert.True(t, in)

		require.NoError(t, svc.RemoveUsersFromRoles(ctx, []string{"u"}, []string{"R"}))
		require.NoError(t, svc.RemoveUsersFromRoles(ctx, []string{"u"}, []string{"R"}))

		roles, err = svc.RolesForUser(ctx, "u")
		require.NoError(t, err)
		assert.Empty(t, roles)
	})

	t.Run("unknown names rejected before any write", func(t *testing.T) {
		t.Parallel()

		_, svc := newRoleFixture(t, NewMemoryStorage(nil), []string{"alice"}, []string{"R"})

		err := svc.AddUsersToRoles(ctx, []string{"alice", "ghost"}, []string{"R"})
		require.ErrorIs(t, err, ErrAccountNotFound)
		assert.ErrorIs(t, err, ErrNotFound)

		err = svc.AddUsersToRoles(ctx, []string{"alice"}, []string{"R", "missing"})
		require.ErrorIs(t, err, ErrRoleNotFound)

		roles, err := svc.RolesForUser(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, roles)
	})

	t.Run("empty lists", func(t *testing.T) {
		t.Parallel()

		_, svc := newRoleFixture(t, NewMemoryStorage(nil), nil, nil)
		require.ErrorIs(t, svc.AddUsersToRoles(ctx, nil, []string{"R"}), ErrEmptyList)
		require.ErrorIs(t, svc.RemoveUsersFromRoles(ctx, []string{"u"}, nil), ErrEmptyList)
		require.ErrorIs(t, svc.AddUsersToRoles(ctx, []string{""}, []string{"R"}), ErrEmptyUserName)
	})

	t.Run("partial failure", func(t *testing.T) {
		t.Parallel()

		storage := newFaultyStorage()
		reg := prometheus.NewRegistry()
		metrics := NewMetrics(reg)
		accounts := newAccountService(t, storage)
		svc := NewRoleService(storage, WithRoleMetrics(metrics))
		for _, u := range []string{"alice", "bob", "carol"} {
			createConfirmed(t, accounts, u, "pw")
		}
		require.NoError(t, svc.CreateRole(ctx, "R"))

		bob, err := accounts.Account(ctx, "bob")
		require.NoError(t, err)
		storage.failAddRolesFor[bob.UserID] = true

		err = svc.AddUsersToRoles(ctx, []string{"alice", "bob", "carol"}, []string{"R"})
		var partial *PartialError
		require.True(t, errors.As(err, &partial))
		assert.Equal(t, []string{"alice"}, partial.Applied)
		assert.Equal(t, []string{"bob", "carol"}, partial.Failed)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Operations().WithLabelValues("add_users_to_roles", resultPartial)))

		in, err := svc.IsUserInRole(ctx, "alice", "R")
		require.NoError(t, err)
		assert.True(t, in)
	})

	t.Run("failure on first account is not partial", func(t *testing.T) {
		t.Parallel()

		storage := newFaultyStorage()
		accounts, svc := newRoleFixture(t, storage, []string{"alice"}, []string{"R"})
		alice, err := accounts.Account(ctx, "alice")
		require.NoError(t, err)
		storage.failAddRolesFor[alice.UserID] = true

		err = svc.AddUsersToRoles(ctx, []string{"alice"}, []string{"R"})
		require.ErrorIs(t, err, ErrStorageUnavailable)
		var partial *PartialError
		assert.False(t, errors.As(err, &partial))
	})
}

func TestRoleService_Queries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, svc := newRoleFixture(t, NewMemoryStorage(nil),
		[]string{"Zed", "alice", "Albert", "bob"}, []string{"R", "empty"})
	require.NoError(t, svc.AddUsersToRoles(ctx, []string{"Zed", "alice", "Albert"}, []string{"R"}))

	users, err := svc.UsersInRole(ctx, "R")
	require.NoError(t, err)
	assert.Equal(t, []string{"Albert", "Zed", "alice"}, users)

	users, err = svc.UsersInRole(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = svc.FindUsersInRoleMatching(ctx, "R", "^AL")
	require.NoError(t, err)
	assert.Equal(t, []string{"Albert", "alice"}, users)

	_, err = svc.FindUsersInRoleMatching(ctx, "R", "(")
	require.ErrorIs(t, err, ErrInvalidPattern)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UsersInRole(ctx, "missing")
	require.ErrorIs(t, err, ErrRoleNotFound)

	_, err = svc.RolesForUser(ctx, "ghost")
	require.ErrorIs(t, err, ErrAccountNotFound)

	in, err := svc.IsUserInRole(ctx, "ghost", "R")
	require.NoError(t, err)
	assert.False(t, in)
}

func TestRoleService_RoundTripProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		storage := NewMemoryStorage(nil)
		accounts := NewAccountService(storage, WithBcryptCost(4))
		svc := NewRoleService(storage)

		users := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,8}`), 1, 4, rapid.ID[string]).Draw(rt, "users")
		roles := rapid.SliceOfNDistinct(rapid.StringMatching(`[A-Za-z]{1,6}`), 1, 4, rapid.ID[string]).Draw(rt, "roles")

		for _, u := range users {
			if _, err := accounts.CreateLocalAccount(ctx, u, "pw", false, ""); err != nil {
				rt.Fatalf("create %s: %v", u, err)
			}
		}
		for _, r := range roles {
			if err := svc.CreateRole(ctx, r); err != nil {
				rt.Fatalf("create role %s: %v", r, err)
			}
		}

		for range 2 {
			if err := svc.AddUsersToRoles(ctx, users, roles); err != nil {
				rt.Fatalf("add: %v", err)
			}
		}
		for _, u := range users {
			got, err := svc.RolesForUser(ctx, u)
			if err != nil {
				rt.Fatal(err)
			}
			if fmt.Sprint(got) != fmt.Sprint(uniqueSorted(roles)) {
				rt.Fatalf("roles for %s: got %v want %v", u, got, uniqueSorted(roles))
			}
		}

		if err := svc.RemoveUsersFromRoles(ctx, users, roles); err != nil {
			rt.Fatalf("remove: %v", err)
		}
		for _, u := range users {
			got, err := svc.RolesForUser(ctx, u)
			if err != nil {
				rt.Fatal(err)
			}
			if len(got) != 0 {
				rt.Fatalf("roles for %s not empty: %v", u, got)
			}
		}
	})
}
