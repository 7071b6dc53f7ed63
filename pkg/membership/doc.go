// Package membership implements account and role management on top of a pluggable document store.
//
// AccountStore covers the account lifecycle: local password accounts, confirmation tokens,
// credential validation with failure counting, password changes, time-limited reset tokens,
// OAuth identity links and OAuth request/access token bookkeeping. RoleStore manages named
// roles and their membership. Both engines are stateless; every call goes to Storage.
//
// # Storage
//
// Storage is implemented by MemoryStorage in this package and by mongostore for MongoDB.
// Numeric account and role ids come from a sequence.Allocator. User names, confirmation tokens
// and reset tokens are matched case-insensitively; role names and OAuth tokens are not.
//
// # Passwords
//
// Each password gets a random salt. The salted password is reduced with SHA-256 and then
// hashed with bcrypt. PasswordPolicy is carried for callers to check; the engine does not
// enforce it.
//
// # Errors
//
// Every error matches one kind: ErrNotFound, ErrConflict, ErrInvalidInput,
// ErrPreconditionFailed, ErrStorageUnavailable, ErrNotSupported or ErrCorruptRecord.
// Operations returning a bool report unknown records and credential mismatches as false.
// Role changes spanning several accounts that fail midway return *PartialError.
//
// # Usage
//
//	store := membership.NewMemoryStorage(nil)
//	accounts := membership.NewAccountService(store)
//	roles := membership.NewRoleService(store)
//
//	token, err := accounts.CreateLocalAccount(ctx, "alice", "s3cret!", true, "")
//	ok, err := accounts.ConfirmByToken(ctx, token)
//	err = roles.CreateRole(ctx, "admin")
//	err = roles.AddUsersToRoles(ctx, []string{"alice"}, []string{"admin"})
package membership
