package membership

import (
	"context"
	"time"
)

// AccountStorage persists accounts. Lookups by user name, confirmation token and reset token are
// case-insensitive. Implementations return ErrAccountNotFound for unknown keys, ErrDuplicateKey when a
// write would break a unique index and errors matching ErrStorageUnavailable for transport failures.
type AccountStorage interface {
	AccountByID(ctx context.Context, id int64) (*Account, error)
	AccountByUserName(ctx context.Context, userName string) (*Account, error)
	AccountByConfirmationToken(ctx context.Context, token string) (*Account, error)
	AccountByResetToken(ctx context.Context, token string) (*Account, error)

	// ListAccounts returns accounts ordered by user id.
	ListAccounts(ctx context.Context, offset, limit int) ([]Account, error)
	CountAccounts(ctx context.Context) (int64, error)

	// AccountsInRole returns accounts listing role whose lower-cased user name matches pattern
	// case-insensitively. An empty pattern matches every name.
	AccountsInRole(ctx context.Context, role, pattern string) ([]Account, error)
	CountAccountsInRole(ctx context.Context, role string) (int64, error)

	// UpsertAccount inserts or replaces the account by UserID. A zero UserID is allocated from the
	// sequence allocator and written back to the account.
	UpsertAccount(ctx context.Context, account *Account) error
	DeleteAccount(ctx context.Context, id int64) (bool, error)

	// ConvertToLocalAccount writes creds to an account that has no local password yet. It fails with
	// ErrDuplicateUserName when the account is already local and ErrAccountNotFound when it is gone.
	ConvertToLocalAccount(ctx context.Context, id int64, creds LocalCredentials) error

	// Single-document atomic mutations. They touch only the fields they name.
	ConfirmAccount(ctx context.Context, id int64) error
	// SetPassword stores a new hash and salt, stamps the change time and drops any reset token.
	SetPassword(ctx context.Context, id int64, hash, salt string, at time.Time) error
	SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
	RecordPasswordFailure(ctx context.Context, id int64, at time.Time) error
	RecordLoginSuccess(ctx context.Context, id int64, at time.Time) error
	AddAccountRoles(ctx context.Context, id int64, roles []string) error
	RemoveAccountRoles(ctx context.Context, id int64, roles []string) error

	// RemoveRoleFromAccounts strips role from every account listing it and reports how many changed.
	RemoveRoleFromAccounts(ctx context.Context, role string) (int64, error)
}

// LocalCredentials are the fields set when an OAuth-only account gets a password.
type LocalCredentials struct {
	PasswordHash string
	PasswordSalt string
	ChangedAt    time.Time
	IsConfirmed  bool
	// Empty ConfirmationToken and ExtraData keep the stored values.
	ConfirmationToken string
	ExtraData         string
}

// RoleStorage persists roles. Role names are case-sensitive.
type RoleStorage interface {
	RoleByName(ctx context.Context, name string) (*Role, error)
	RolesByNames(ctx context.Context, names []string) ([]Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	UpsertRole(ctx context.Context, role *Role) error
	DeleteRole(ctx context.Context, id int64) (bool, error)
}

// OAuthStorage persists OAuth links and tokens. Link lookups are case-insensitive on both parts of the
// natural key; token lookups are case-sensitive. Empty ids are generated by the store on upsert.
type OAuthStorage interface {
	OAuthLinkByProvider(ctx context.Context, provider, providerUserID string) (*OAuthLink, error)
	OAuthLinksByUser(ctx context.Context, userID int64) ([]OAuthLink, error)
	UpsertOAuthLink(ctx context.Context, link *OAuthLink) error
	DeleteOAuthLink(ctx context.Context, id string) (bool, error)
	DeleteOAuthLinksByUser(ctx context.Context, userID int64) (int64, error)

	OAuthTokenByToken(ctx context.Context, token string) (*OAuthToken, error)
	UpsertOAuthToken(ctx context.Context, token *OAuthToken) error
	DeleteOAuthToken(ctx context.Context, id string) (bool, error)
}

// Storage is the full data access layer used by the services.
type Storage interface {
	AccountStorage
	RoleStorage
	OAuthStorage
}
