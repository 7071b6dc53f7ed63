// Package mongomembership is an identity and access store for web applications backed by MongoDB.
//
// It keeps local accounts with salted password hashes, confirmation and password reset tokens,
// named roles, links from third-party OAuth identities to local users and OAuth request/access
// tokens. User and role ids are dense integers issued by a per-entity sequence.
//
// The module is split into small packages:
//
//   - pkg/membership: account and role engines, domain types, errors, password policy, metrics and
//     an in-memory storage for tests.
//   - pkg/mongostore: MongoDB storage for the engines, including the indexes they rely on.
//   - pkg/sequence: identifier allocators (MongoDB counter documents, Redis INCR, in-memory).
//   - pkg/provider: adapters that expose the engines with the conventions of framework
//     membership and role providers.
//   - pkg/mongo, pkg/redis: connection helpers with retries and health checks.
//   - pkg/config, pkg/logger: environment configuration and slog setup.
//   - cmd/membershipctl: operator CLI.
//
// Basic usage:
//
//	db, err := mongo.NewWithDatabase(ctx, mongoCfg, "")
//	if err != nil {
//		return err
//	}
//	cols := mongostore.DefaultConfig()
//	ids := sequence.NewMongoAllocator(db.Collection(cols.SequenceCollection))
//	store := mongostore.New(db, cols, ids)
//	if err := store.EnsureIndexes(ctx); err != nil {
//		return err
//	}
//
//	accounts := membership.NewAccountService(store, membership.WithAccountConfig(cfg))
//	roles := membership.NewRoleService(store)
//
//	token, err := accounts.CreateLocalAccount(ctx, "alice", "s3cret!", true, "")
//	...
//	ok, err := accounts.ConfirmByToken(ctx, token)
//	...
//	err = roles.AddUsersToRoles(ctx, []string{"alice"}, []string{"admin"})
package mongomembership
