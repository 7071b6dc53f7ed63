package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/mongomembership/pkg/logger"
)

// AccountStore is the account lifecycle engine: local and OAuth accounts, confirmation, credential
// validation, password changes and reset tokens. Boolean results report "no such record" or
// "credentials mismatch" as false with a nil error; errors are reserved for invalid input, broken
// preconditions and storage failures.
type AccountStore interface {
	CreateLocalAccount(ctx context.Context, userName, password string, requireConfirmation bool, extraData string) (string, error)
	ConfirmByToken(ctx context.Context, token string) (bool, error)
	ConfirmByUserNameAndToken(ctx context.Context, userName, token string) (bool, error)
	ValidateCredentials(ctx context.Context, userName, password string) (bool, error)
	ChangePassword(ctx context.Context, userName, oldPassword, newPassword string) (bool, error)
	IssuePasswordResetToken(ctx context.Context, userName string, ttl time.Duration) (string, error)
	RedeemResetToken(ctx context.Context, token, newPassword string) (bool, error)
	DeleteAccount(ctx context.Context, userName string, cascadeOAuth bool) (bool, error)

	Account(ctx context.Context, userName string) (*Account, error)
	AccountByID(ctx context.Context, userID int64) (*Account, error)
	ListAccounts(ctx context.Context, page, pageSize int) ([]Account, int64, error)
	HasLocalAccount(ctx context.Context, userID int64) (bool, error)
	IsConfirmed(ctx context.Context, userName string) (bool, error)
	UserIDFromResetToken(ctx context.Context, token string) (int64, error)

	LinkOrCreateOAuthAccount(ctx context.Context, provider, providerUserID, userName string) error
	DeleteOAuthAccount(ctx context.Context, provider, providerUserID string) (bool, error)
	UserIDFromOAuth(ctx context.Context, provider, providerUserID string) (int64, error)
	OAuthAccounts(ctx context.Context, userName string) ([]OAuthAccount, error)
	StoreOAuthRequestToken(ctx context.Context, token, secret string) error
	ReplaceOAuthRequestToken(ctx context.Context, requestToken, accessToken, accessSecret string) error
	OAuthTokenSecret(ctx context.Context, token string) (string, error)
	DeleteOAuthToken(ctx context.Context, token string) (bool, error)

	// PasswordPolicy returns the configured policy. The engine does not enforce it.
	PasswordPolicy() PasswordPolicy
}

// AccountServiceStorage is the storage the account engine works on.
type AccountServiceStorage interface {
	AccountStorage
	OAuthStorage
}

type accountService struct {
	storage AccountServiceStorage
	hasher  passwordHasher
	policy  PasswordPolicy
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *Metrics
}

// AccountOption configures the account service.
type AccountOption func(*accountService)

// WithAccountLogger sets the logger.
func WithAccountLogger(l *slog.Logger) AccountOption {
	return func(s *accountService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAccountConfig applies bcrypt cost, operation timeout and password policy from cfg.
func WithAccountConfig(cfg Config) AccountOption {
	return func(s *accountService) {
		s.hasher.cost = cfg.BcryptCost
		s.timeout = cfg.OperationTimeout
		s.policy = cfg.Policy
	}
}

// WithBcryptCost sets the bcrypt work factor.
func WithBcryptCost(cost int) AccountOption {
	return func(s *accountService) {
		s.hasher.cost = cost
	}
}

// WithOperationTimeout bounds every storage call made by a single operation. Zero disables the bound.
func WithOperationTimeout(d time.Duration) AccountOption {
	return func(s *accountService) {
		s.timeout = d
	}
}

// WithClock replaces time.Now, used for token expiry and timestamps.
func WithClock(now func() time.Time) AccountOption {
	return func(s *accountService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAccountMetrics records operation outcomes in m.
func WithAccountMetrics(m *Metrics) AccountOption {
	return func(s *accountService) {
		s.metrics = m
	}
}

// NewAccountService creates the account engine over storage.
func NewAccountService(storage AccountServiceStorage, opts ...AccountOption) AccountStore {
	cfg := DefaultConfig()
	s := &accountService{
		storage: storage,
		hasher:  passwordHasher{cost: cfg.BcryptCost},
		policy:  cfg.Policy,
		timeout: cfg.OperationTimeout,
		now:     time.Now,
		logger:  logger.Discard(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *accountService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// clock returns the current time truncated to milliseconds, the precision BSON dates keep.
func (s *accountService) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *accountService) PasswordPolicy() PasswordPolicy {
	return s.policy
}

// blank reports whether an input is empty or only whitespace.
func blank(v string) bool {
	return strings.TrimSpace(v) == ""
}

// lookup returns the account for userName, or nil when there is none.
func (s *accountService) lookup(ctx context.Context, userName string) (*Account, error) {
	account, err := s.storage.AccountByUserName(ctx, userName)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

// CreateLocalAccount creates a password account. An existing OAuth-only account with the same name
// is converted in place and keeps its id, roles and, unless new values are given, its confirmation
// token and extra data. Returns the confirmation token when confirmation is required, otherwise an
// empty string.
func (s *accountService) CreateLocalAccount(ctx context.Context, userName, password string, requireConfirmation bool, extraData string) (string, error) {
	if blank(userName) {
		return "", ErrEmptyUserName
	}
	if blank(password) {
		return "", ErrEmptyPassword
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.lookup(ctx, userName)
	if err != nil {
		return "", err
	}
	if account != nil && account.IsLocalAccount {
		return "", ErrDuplicateUserName
	}

	hash, salt, err := s.hasher.hash(password)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var token string
	if requireConfirmation {
		if account != nil && account.ConfirmationToken != "" {
			token = account.ConfirmationToken
		} else if token, err = GenerateToken(); err != nil {
			return "", err
		}
	}

	now := s.clock()
	if account == nil {
		account = &Account{
			UserName:          userName,
			UserNameLower:     NormalizeKey(userName),
			IsLocalAccount:    true,
			IsConfirmed:       !requireConfirmation,
			ConfirmationToken: token,
			PasswordHash:      hash,
			PasswordSalt:      salt,
			PasswordChangedAt: &now,
			CreatedAt:         now,
			Roles:             []string{},
			ExtraData:         extraData,
		}
		err = s.storage.UpsertAccount(ctx, account)
	} else {
		err = s.storage.ConvertToLocalAccount(ctx, account.UserID, LocalCredentials{
			PasswordHash:      hash,
			PasswordSalt:      salt,
			ChangedAt:         now,
			IsConfirmed:       !requireConfirmation,
			ConfirmationToken: token,
			ExtraData:         extraData,
		})
	}
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return "", ErrDuplicateUserName
		}
		return "", err
	}

	s.metrics.observe("create_local_account", resultOK)
	s.logger.InfoContext(ctx, "local account created",
		logger.Component("account"),
		logger.UserID(account.UserID),
		logger.UserName(userName),
		slog.Bool("require_confirmation", requireConfirmation),
	)

	return token, nil
}

// ConfirmByToken confirms the account holding token, compared case-insensitively.
// Confirming an already confirmed account succeeds again.
func (s *accountService) ConfirmByToken(ctx context.Context, token string) (bool, error) {
	if blank(token) {
		return false, ErrEmptyToken
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.storage.AccountByConfirmationToken(ctx, token)
	if errors.Is(err, ErrAccountNotFound) {
		s.metrics.observe("confirm", resultRejected)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return s.confirm(ctx, account)
}

// ConfirmByUserNameAndToken confirms userName if token equals its confirmation token exactly.
func (s *accountService) ConfirmByUserNameAndToken(ctx context.Context, userName, token string) (bool, error) {
	if blank(userName) {
		return false, ErrEmptyUserName
	}
	if blank(token) {
		return false, ErrEmptyToken
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.lookup(ctx, userName)
	if err != nil {
		return false, err
	}
	if account == nil || account.ConfirmationToken != token {
		s.metrics.observe("confirm", resultRejected)
		return false, nil
	}

	return s.confirm(ctx, account)
}

func (s *accountService) confirm(ctx context.Context, account *Account) (bool, error) {
	if account.IsConfirmed {
		return true, nil
	}

	if err := s.storage.ConfirmAccount(ctx, account.UserID); err != nil {
		return false, err
	}

	s.metrics.observe("confirm", resultOK)
	s.logger.InfoContext(ctx, "account confirmed",
		logger.Component("account"),
		logger.UserID(account.UserID),
	)
	return true, nil
}

// ValidateCredentials checks password against a confirmed local account. A match resets the failure
// counter and stamps the login time; a mismatch increments the counter. Unknown, unconfirmed and
// OAuth-only accounts report false without touching storage.
func (s *accountService) ValidateCredentials(ctx context.Context, userName, password string) (bool, error) {
	if blank(userName) {
		return false, ErrEmptyUserName
	}
	if blank(password) {
		return false, ErrEmptyPassword
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.lookup(ctx, userName)
	if err != nil {
		return false, err
	}
	if account == nil || !account.IsLocalAccount || !account.IsConfirmed {
		s.metrics.observe("validate_credentials", resultRejected)
		return false, nil
	}

	now := s.clock()
	if !s.hasher.verify(account.PasswordHash, account.PasswordSalt, password) {
		if err := s.storage.RecordPasswordFailure(ctx, account.UserID, now); err != nil {
			return false, err
		}
		s.metrics.observe("validate_credentials", resultRejected)
		s.logger.DebugContext(ctx, "password mismatch",
			logger.Component("account"),
			logger.UserID(account.UserID),
		)
		return false, nil
	}

	if err := s.storage.RecordLoginSuccess(ctx, account.UserID, now); err != nil {
		return false, err
	}
	s.metrics.observe("validate_credentials", resultOK)
	return true, nil
}

// ChangePassword replaces the password after verifying the old one. The new password gets a fresh
// salt and any pending reset token is dropped.
func (s *accountService) ChangePassword(ctx context.Context, userName, oldPassword, newPassword string) (bool, error) {
	if blank(userName) {
		return false, ErrEmptyUserName
	}
	if blank(oldPassword) || blank(newPassword) {
		return false, ErrEmptyPassword
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.lookup(ctx, userName)
	if err != nil {
		return false, err
	}
	if account == nil || !account.IsLocalAccount {
		s.metrics.observe("change_password", resultRejected)
		return false, nil
	}
	if !s.hasher.verify(account.PasswordHash, account.PasswordSalt, oldPassword) {
		if err := s.storage.RecordPasswordFailure(ctx, account.UserID, s.clock()); err != nil {
			return false, err
		}
		s.metrics.observe("change_password", resultRejected)
		return false, nil
	}

	if err := s.setPassword(ctx, account.UserID, newPassword); err != nil {
		return false, err
	}

	s.metrics.observe("change_password", resultOK)
	s.logger.InfoContext(ctx, "password changed",
		logger.Component("account"),
		logger.UserID(account.UserID),
	)
	return true, nil
}

func (s *accountService) setPassword(ctx context.Context, userID int64, password string) error {
	hash, salt, err := s.hasher.hash(password)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.storage.SetPassword(ctx, userID, hash, salt, s.clock())
}

// IssuePasswordResetToken returns a reset token for a confirmed account. An unexpired token is
// reused; otherwise a new one valid for ttl is stored.
func (s *accountService) IssuePasswordResetToken(ctx context.Context, userName string, ttl time.Duration) (string, error) {
	if blank(userName) {
		return "", ErrEmptyUserName
	}
	if ttl <= 0 {
		return "", ErrInvalidTTL
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.lookup(ctx, userName)
	if err != nil {
		return "", err
	}
	if account == nil || !account.IsConfirmed {
		return "", ErrAccountNotConfirmed
	}

	now := s.clock()
	if account.resetTokenValid(now) {
		return account.PasswordResetToken, nil
	}

	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	expires := now.Add(ttl)
	if err := s.storage.SetResetToken(ctx, account.UserID, token, expires); err != nil {
		return "", err
	}

	s.metrics.observe("issue_reset_token", resultOK)
	s.logger.InfoContext(ctx, "password reset token issued",
		logger.Component("account"),
		logger.UserID(account.UserID),
		slog.Time("expires_at", expires),
	)
	return token, nil
}

// RedeemResetToken sets newPassword on the account holding an unexpired token.
func (s *accountService) RedeemResetToken(ctx context.Context, token, newPassword string) (bool, error) {
	if blank(token) {
		return false, ErrEmptyToken
	}
	if blank(newPassword) {
		return false, ErrEmptyPassword
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.storage.AccountByResetToken(ctx, token)
	if errors.Is(err, ErrAccountNotFound) {
		s.metrics.observe("redeem_reset_token", resultRejected)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !account.resetTokenValid(s.clock()) {
		s.metrics.observe("redeem_reset_token", resultRejected)
		return false, nil
	}

	if err := s.setPassword(ctx, account.UserID, newPassword); err != nil {
		return false, err
	}

	s.metrics.observe("redeem_reset_token", resultOK)
	s.logger.InfoContext(ctx, "password reset",
		logger.Component("account"),
		logger.UserID(account.UserID),
	)
	return true, nil
}

// DeleteAccount removes the account and, when cascadeOAuth is set, its OAuth links.
func (s *accountService) DeleteAccount(ctx context.Context, userName string, cascadeOAuth bool) (bool, error) {
	if blank(userName) {
		return false, ErrEmptyUserName
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.lookup(ctx, userName)
	if err != nil {
		return false, err
	}
	if account == nil {
		return false, nil
	}

	deleted, err := s.storage.DeleteAccount(ctx, account.UserID)
	if err != nil || !deleted {
		return false, err
	}

	var links int64
	if cascadeOAuth {
		if links, err = s.storage.DeleteOAuthLinksByUser(ctx, account.UserID); err != nil {
			return true, err
		}
	}

	s.metrics.observe("delete_account", resultOK)
	s.logger.InfoContext(ctx, "account deleted",
		logger.Component("account"),
		logger.UserID(account.UserID),
		logger.UserName(account.UserName),
		logger.Count(links),
	)
	return true, nil
}

// Account returns the account for userName or ErrAccountNotFound.
func (s *accountService) Account(ctx context.Context, userName string) (*Account, error) {
	if blank(userName) {
		return nil, ErrEmptyUserName
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.storage.AccountByUserName(ctx, userName)
}

func (s *accountService) AccountByID(ctx context.Context, userID int64) (*Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.storage.AccountByID(ctx, userID)
}

// ListAccounts returns one zero-based page of accounts ordered by id and the total number of accounts.
func (s *accountService) ListAccounts(ctx context.Context, page, pageSize int) ([]Account, int64, error) {
	if page < 0 || pageSize <= 0 {
		return nil, 0, ErrInvalidPage
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	total, err := s.storage.CountAccounts(ctx)
	if err != nil {
		return nil, 0, err
	}
	accounts, err := s.storage.ListAccounts(ctx, page*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

func (s *accountService) HasLocalAccount(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.storage.AccountByID(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return account.IsLocalAccount, nil
}

func (s *accountService) IsConfirmed(ctx context.Context, userName string) (bool, error) {
	if blank(userName) {
		return false, ErrEmptyUserName
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.lookup(ctx, userName)
	if err != nil || account == nil {
		return false, err
	}
	return account.IsConfirmed, nil
}

// UserIDFromResetToken returns the id of the account holding token, expired or not.
func (s *accountService) UserIDFromResetToken(ctx context.Context, token string) (int64, error) {
	if blank(token) {
		return 0, ErrEmptyToken
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.storage.AccountByResetToken(ctx, token)
	if err != nil {
		return 0, err
	}
	return account.UserID, nil
}

var _ AccountStore = (*accountService)(nil)
