// Package mongostore implements membership.Storage on MongoDB.
//
// Accounts, roles, OAuth links and OAuth tokens live in four collections whose names come
// from Config. Account and role ids are allocated per collection by a sequence.Allocator,
// by default one backed by the sequence collection in the same database.
//
// Call EnsureIndexes once at startup. The unique indexes it declares enforce user names,
// confirmation tokens, role names, provider identities and OAuth tokens; writes that would
// break one fail with membership.ErrDuplicateKey. Confirmation and reset tokens are indexed
// and queried with a case-insensitive collation.
//
//	db, err := mongo.NewWithDatabase(ctx, mongoCfg, "")
//	store := mongostore.New(db, mongostore.DefaultConfig(), nil)
//	if err := store.EnsureIndexes(ctx); err != nil { ... }
//	accounts := membership.NewAccountService(store)
package mongostore
