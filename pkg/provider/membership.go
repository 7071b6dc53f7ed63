package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dmitrymomot/mongomembership/pkg/logger"
	"github.com/dmitrymomot/mongomembership/pkg/membership"
)

// DefaultResetTokenMinutes is used when GeneratePasswordResetToken gets a non-positive lifetime.
const DefaultResetTokenMinutes = 24 * 60

// User is the framework view of an account.
type User struct {
	ProviderName          string
	UserName              string
	UserID                int64
	IsApproved            bool
	CreatedAt             time.Time
	LastLoginAt           time.Time
	LastPasswordChangedAt time.Time
}

// Membership is a membership provider backed by a membership.AccountStore.
type Membership struct {
	name     string
	appName  string
	accounts membership.AccountStore
	logger   *slog.Logger
}

// Option configures an adapter.
type Option func(*options)

type options struct {
	appName string
	logger  *slog.Logger
}

// WithApplicationName sets the application name reported by the provider.
func WithApplicationName(name string) Option {
	return func(o *options) { o.appName = name }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		appName: membership.DefaultConfig().ApplicationName,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewMembership creates the adapter. An empty name defaults to "MongoMembershipProvider".
func NewMembership(name string, accounts membership.AccountStore, opts ...Option) *Membership {
	if name == "" {
		name = "MongoMembershipProvider"
	}
	o := applyOptions(opts)
	return &Membership{name: name, appName: o.appName, accounts: accounts, logger: o.logger}
}

func (m *Membership) Name() string            { return m.name }
func (m *Membership) ApplicationName() string { return m.appName }

func (m *Membership) MinRequiredPasswordLength() int {
	return m.accounts.PasswordPolicy().MinLength
}

func (m *Membership) MinRequiredNonAlphanumericCharacters() int {
	return m.accounts.PasswordPolicy().MinNonAlphanumeric
}

func (m *Membership) PasswordStrengthRegularExpression() string {
	return m.accounts.PasswordPolicy().StrengthPattern
}

func (m *Membership) MaxInvalidPasswordAttempts() int { return math.MaxInt32 }
func (m *Membership) PasswordAttemptWindow() int      { return math.MaxInt32 }
func (m *Membership) EnablePasswordReset() bool       { return false }
func (m *Membership) EnablePasswordRetrieval() bool   { return false }
func (m *Membership) RequiresQuestionAndAnswer() bool { return false }
func (m *Membership) RequiresUniqueEmail() bool       { return false }

// CreateAccount creates a local account without extra profile values.
func (m *Membership) CreateAccount(ctx context.Context, userName, password string, requireConfirmation bool) (string, error) {
	return m.CreateUserAndAccount(ctx, userName, password, requireConfirmation, nil)
}

// CreateUserAndAccount creates a local account storing values as JSON extra data.
func (m *Membership) CreateUserAndAccount(ctx context.Context, userName, password string, requireConfirmation bool, values map[string]any) (string, error) {
	var extra string
	if values != nil {
		b, err := json.Marshal(values)
		if err != nil {
			return "", fmt.Errorf("%w: extra values: %v", membership.ErrInvalidInput, err)
		}
		extra = string(b)
	}
	return m.accounts.CreateLocalAccount(ctx, userName, password, requireConfirmation, extra)
}

func (m *Membership) ConfirmAccount(ctx context.Context, token string) (bool, error) {
	return m.accounts.ConfirmByToken(ctx, token)
}

func (m *Membership) ConfirmAccountForUser(ctx context.Context, userName, token string) (bool, error) {
	return m.accounts.ConfirmByUserNameAndToken(ctx, userName, token)
}

func (m *Membership) ValidateUser(ctx context.Context, userName, password string) (bool, error) {
	return m.accounts.ValidateCredentials(ctx, userName, password)
}

func (m *Membership) ChangePassword(ctx context.Context, userName, oldPassword, newPassword string) (bool, error) {
	return m.accounts.ChangePassword(ctx, userName, oldPassword, newPassword)
}

// DeleteAccount deletes the account and keeps its OAuth links.
func (m *Membership) DeleteAccount(ctx context.Context, userName string) (bool, error) {
	return m.accounts.DeleteAccount(ctx, userName, false)
}

// DeleteUser deletes the account; deleteAllRelatedData also removes its OAuth links.
func (m *Membership) DeleteUser(ctx context.Context, userName string, deleteAllRelatedData bool) (bool, error) {
	return m.accounts.DeleteAccount(ctx, userName, deleteAllRelatedData)
}

// GeneratePasswordResetToken issues a reset token valid for expirationMinutes.
func (m *Membership) GeneratePasswordResetToken(ctx context.Context, userName string, expirationMinutes int) (string, error) {
	if expirationMinutes <= 0 {
		expirationMinutes = DefaultResetTokenMinutes
	}
	return m.accounts.IssuePasswordResetToken(ctx, userName, time.Duration(expirationMinutes)*time.Minute)
}

func (m *Membership) ResetPasswordWithToken(ctx context.Context, token, newPassword string) (bool, error) {
	return m.accounts.RedeemResetToken(ctx, token, newPassword)
}

// account returns nil for unknown users.
func (m *Membership) account(ctx context.Context, userName string) (*membership.Account, error) {
	account, err := m.accounts.Account(ctx, userName)
	if errors.Is(err, membership.ErrNotFound) {
		return nil, nil
	}
	return account, err
}

// GetUserID returns -1 for unknown users.
func (m *Membership) GetUserID(ctx context.Context, userName string) (int64, error) {
	account, err := m.account(ctx, userName)
	if err != nil || account == nil {
		return -1, err
	}
	return account.UserID, nil
}

// GetUserNameFromID returns an empty name for unknown ids.
func (m *Membership) GetUserNameFromID(ctx context.Context, userID int64) (string, error) {
	account, err := m.accounts.AccountByID(ctx, userID)
	if errors.Is(err, membership.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return account.UserName, nil
}

func (m *Membership) HasLocalAccount(ctx context.Context, userID int64) (bool, error) {
	return m.accounts.HasLocalAccount(ctx, userID)
}

func (m *Membership) IsConfirmed(ctx context.Context, userName string) (bool, error) {
	return m.accounts.IsConfirmed(ctx, userName)
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (m *Membership) GetCreateDate(ctx context.Context, userName string) (time.Time, error) {
	account, err := m.account(ctx, userName)
	if err != nil || account == nil {
		return time.Time{}, err
	}
	return account.CreatedAt, nil
}

func (m *Membership) GetLastPasswordFailureDate(ctx context.Context, userName string) (time.Time, error) {
	account, err := m.account(ctx, userName)
	if err != nil || account == nil {
		return time.Time{}, err
	}
	return derefTime(account.LastPasswordFailureAt), nil
}

func (m *Membership) GetPasswordChangedDate(ctx context.Context, userName string) (time.Time, error) {
	account, err := m.account(ctx, userName)
	if err != nil || account == nil {
		return time.Time{}, err
	}
	return derefTime(account.PasswordChangedAt), nil
}

// GetPasswordFailuresSinceLastSuccess returns -1 for unknown users.
func (m *Membership) GetPasswordFailuresSinceLastSuccess(ctx context.Context, userName string) (int, error) {
	account, err := m.account(ctx, userName)
	if err != nil || account == nil {
		return -1, err
	}
	return account.PasswordFailureCount, nil
}

// GetUserIDFromPasswordResetToken returns -1 when no account holds token.
func (m *Membership) GetUserIDFromPasswordResetToken(ctx context.Context, token string) (int64, error) {
	id, err := m.accounts.UserIDFromResetToken(ctx, token)
	if errors.Is(err, membership.ErrNotFound) {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	return id, nil
}

func (m *Membership) toUser(a *membership.Account) *User {
	return &User{
		ProviderName:          m.name,
		UserName:              a.UserName,
		UserID:                a.UserID,
		IsApproved:            a.IsConfirmed,
		CreatedAt:             a.CreatedAt,
		LastLoginAt:           derefTime(a.LastLoginAt),
		LastPasswordChangedAt: derefTime(a.PasswordChangedAt),
	}
}

// GetUser returns nil for unknown users.
func (m *Membership) GetUser(ctx context.Context, userName string) (*User, error) {
	account, err := m.account(ctx, userName)
	if err != nil || account == nil {
		return nil, err
	}
	return m.toUser(account), nil
}

// GetUserByID returns nil for unknown ids.
func (m *Membership) GetUserByID(ctx context.Context, userID int64) (*User, error) {
	account, err := m.accounts.AccountByID(ctx, userID)
	if errors.Is(err, membership.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.toUser(account), nil
}

// GetAllUsers returns one zero-based page of users and the total count.
func (m *Membership) GetAllUsers(ctx context.Context, pageIndex, pageSize int) ([]User, int64, error) {
	accounts, total, err := m.accounts.ListAccounts(ctx, pageIndex, pageSize)
	if err != nil {
		return nil, 0, err
	}
	users := make([]User, 0, len(accounts))
	for i := range accounts {
		users = append(users, *m.toUser(&accounts[i]))
	}
	return users, total, nil
}

// GetExtraData decodes the values stored by CreateUserAndAccount. Unknown users and accounts
// without values yield a nil map.
func (m *Membership) GetExtraData(ctx context.Context, userName string) (map[string]any, error) {
	account, err := m.account(ctx, userName)
	if err != nil || account == nil || account.ExtraData == "" {
		return nil, err
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(account.ExtraData), &values); err != nil {
		return nil, fmt.Errorf("%w: extra data of %s: %v", membership.ErrCorruptRecord, userName, err)
	}
	return values, nil
}

func (m *Membership) CreateOrUpdateOAuthAccount(ctx context.Context, provider, providerUserID, userName string) error {
	return m.accounts.LinkOrCreateOAuthAccount(ctx, provider, providerUserID, userName)
}

func (m *Membership) DeleteOAuthAccount(ctx context.Context, provider, providerUserID string) error {
	_, err := m.accounts.DeleteOAuthAccount(ctx, provider, providerUserID)
	return err
}

// GetUserIDFromOAuth returns -1 for unlinked identities.
func (m *Membership) GetUserIDFromOAuth(ctx context.Context, provider, providerUserID string) (int64, error) {
	id, err := m.accounts.UserIDFromOAuth(ctx, provider, providerUserID)
	if errors.Is(err, membership.ErrNotFound) {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	return id, nil
}

// GetAccountsForUser returns an empty list for unknown users.
func (m *Membership) GetAccountsForUser(ctx context.Context, userName string) ([]membership.OAuthAccount, error) {
	accounts, err := m.accounts.OAuthAccounts(ctx, userName)
	if errors.Is(err, membership.ErrNotFound) {
		return []membership.OAuthAccount{}, nil
	}
	return accounts, err
}

// GetOAuthTokenSecret returns an empty secret for unknown tokens.
func (m *Membership) GetOAuthTokenSecret(ctx context.Context, token string) (string, error) {
	secret, err := m.accounts.OAuthTokenSecret(ctx, token)
	if errors.Is(err, membership.ErrNotFound) {
		return "", nil
	}
	return secret, err
}

func (m *Membership) StoreOAuthRequestToken(ctx context.Context, requestToken, requestTokenSecret string) error {
	return m.accounts.StoreOAuthRequestToken(ctx, requestToken, requestTokenSecret)
}

func (m *Membership) ReplaceOAuthRequestTokenWithAccessToken(ctx context.Context, requestToken, accessToken, accessTokenSecret string) error {
	return m.accounts.ReplaceOAuthRequestToken(ctx, requestToken, accessToken, accessTokenSecret)
}

func (m *Membership) DeleteOAuthToken(ctx context.Context, token string) error {
	_, err := m.accounts.DeleteOAuthToken(ctx, token)
	return err
}

func (m *Membership) notSupported(op string) error {
	m.logger.Warn("unsupported provider operation", logger.Component("provider"), slog.String("op", op))
	return ErrNotSupported
}

func (m *Membership) ChangePasswordQuestionAndAnswer(context.Context, string, string, string, string) (bool, error) {
	return false, m.notSupported("ChangePasswordQuestionAndAnswer")
}

func (m *Membership) GetPassword(context.Context, string, string) (string, error) {
	return "", m.notSupported("GetPassword")
}

func (m *Membership) ResetPasswordWithAnswer(context.Context, string, string) (string, error) {
	return "", m.notSupported("ResetPasswordWithAnswer")
}

func (m *Membership) UnlockUser(context.Context, string) (bool, error) {
	return false, m.notSupported("UnlockUser")
}

func (m *Membership) UpdateUser(context.Context, *User) error {
	return m.notSupported("UpdateUser")
}

func (m *Membership) FindUsersByEmail(context.Context, string, int, int) ([]User, int64, error) {
	return nil, 0, m.notSupported("FindUsersByEmail")
}

func (m *Membership) FindUsersByName(context.Context, string, int, int) ([]User, int64, error) {
	return nil, 0, m.notSupported("FindUsersByName")
}

func (m *Membership) GetUserNameByEmail(context.Context, string) (string, error) {
	return "", m.notSupported("GetUserNameByEmail")
}

func (m *Membership) NumberOfUsersOnline(context.Context) (int, error) {
	return 0, m.notSupported("NumberOfUsersOnline")
}
