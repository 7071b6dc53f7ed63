package membership

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mongomembership/pkg/sequence"
)

// Entity names used for identifier allocation by the in-memory storage.
const (
	memoryAccountsEntity = "accounts"
	memoryRolesEntity    = "roles"
)

// MemoryStorage is a Storage kept in process memory. It enforces the same unique keys as the MongoDB
// store and copies records on the way in and out, so callers never share state with it.
// It is intended for tests and single-process embedding.
type MemoryStorage struct {
	mu       sync.RWMutex
	ids      sequence.Allocator
	accounts map[int64]Account
	roles    map[int64]Role
	links    map[string]OAuthLink
	tokens   map[string]OAuthToken
}

// NewMemoryStorage creates an empty storage. A nil allocator defaults to sequence.NewMemoryAllocator.
func NewMemoryStorage(ids sequence.Allocator) *MemoryStorage {
	if ids == nil {
		ids = sequence.NewMemoryAllocator()
	}
	return &MemoryStorage{
		ids:      ids,
		accounts: make(map[int64]Account),
		roles:    make(map[int64]Role),
		links:    make(map[string]OAuthLink),
		tokens:   make(map[string]OAuthToken),
	}
}

func cloneAccount(a Account) Account {
	a.Roles = slices.Clone(a.Roles)
	if a.Roles == nil {
		a.Roles = []string{}
	}
	return a
}

func (s *MemoryStorage) findAccount(match func(*Account) bool) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if match(&a) {
			c := cloneAccount(a)
			return &c, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (s *MemoryStorage) AccountByID(ctx context.Context, id int64) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	c := cloneAccount(a)
	return &c, nil
}

func (s *MemoryStorage) AccountByUserName(ctx context.Context, userName string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	lower := NormalizeKey(userName)
	return s.findAccount(func(a *Account) bool { return a.UserNameLower == lower })
}

func (s *MemoryStorage) AccountByConfirmationToken(ctx context.Context, token string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	return s.findAccount(func(a *Account) bool { return strings.EqualFold(a.ConfirmationToken, token) })
}

func (s *MemoryStorage) AccountByResetToken(ctx context.Context, token string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	return s.findAccount(func(a *Account) bool {
		return a.PasswordResetToken != "" && strings.EqualFold(a.PasswordResetToken, token)
	})
}

func (s *MemoryStorage) ListAccounts(ctx context.Context, offset, limit int) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	if offset >= len(ids) {
		return []Account{}, nil
	}
	ids = ids[offset:min(offset+limit, len(ids))]

	out := make([]Account, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneAccount(s.accounts[id]))
	}
	return out, nil
}

func (s *MemoryStorage) CountAccounts(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.accounts)), nil
}

func (s *MemoryStorage) AccountsInRole(ctx context.Context, role, pattern string) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	var re *regexp.Regexp
	if pattern != "" {
		var err error
		if re, err = regexp.Compile("(?i)" + pattern); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Account{}
	for _, a := range s.accounts {
		if !a.HasRole(role) {
			continue
		}
		if re != nil && !re.MatchString(a.UserNameLower) {
			continue
		}
		out = append(out, cloneAccount(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *MemoryStorage) CountAccountsInRole(ctx context.Context, role string) (int64, error) {
	accounts, err := s.AccountsInRole(ctx, role, "")
	if err != nil {
		return 0, err
	}
	return int64(len(accounts)), nil
}

func (s *MemoryStorage) UpsertAccount(ctx context.Context, account *Account) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	if account.UserID == 0 {
		id, err := s.ids.Next(ctx, memoryAccountsEntity)
		if err != nil {
			return unavailable(err)
		}
		account.UserID = id
	}
	if account.Roles == nil {
		account.Roles = []string{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, other := range s.accounts {
		if id == account.UserID {
			continue
		}
		if other.UserNameLower == account.UserNameLower ||
			(account.ConfirmationToken != "" && strings.EqualFold(other.ConfirmationToken, account.ConfirmationToken)) {
			return ErrDuplicateKey
		}
	}

	s.accounts[account.UserID] = cloneAccount(*account)
	return nil
}

func (s *MemoryStorage) DeleteAccount(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return false, nil
	}
	delete(s.accounts, id)
	return true, nil
}

// mutateAccount applies fn to the stored account under the write lock.
func (s *MemoryStorage) mutateAccount(ctx context.Context, id int64, fn func(*Account)) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a = cloneAccount(a)
	fn(&a)
	s.accounts[id] = a
	return nil
}

func (s *MemoryStorage) ConvertToLocalAccount(ctx context.Context, id int64, creds LocalCredentials) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	if a.IsLocalAccount {
		return ErrDuplicateUserName
	}
	if creds.ConfirmationToken != "" {
		for other, o := range s.accounts {
			if other != id && strings.EqualFold(o.ConfirmationToken, creds.ConfirmationToken) {
				return ErrDuplicateKey
			}
		}
		a.ConfirmationToken = creds.ConfirmationToken
	}
	if creds.ExtraData != "" {
		a.ExtraData = creds.ExtraData
	}

	changed := creds.ChangedAt
	a = cloneAccount(a)
	a.IsLocalAccount = true
	a.IsConfirmed = creds.IsConfirmed
	a.PasswordHash = creds.PasswordHash
	a.PasswordSalt = creds.PasswordSalt
	a.PasswordChangedAt = &changed
	a.PasswordFailureCount = 0
	a.LastPasswordFailureAt = nil
	s.accounts[id] = a
	return nil
}

func (s *MemoryStorage) ConfirmAccount(ctx context.Context, id int64) error {
	return s.mutateAccount(ctx, id, func(a *Account) {
		a.IsConfirmed = true
	})
}

func (s *MemoryStorage) SetPassword(ctx context.Context, id int64, hash, salt string, at time.Time) error {
	return s.mutateAccount(ctx, id, func(a *Account) {
		a.PasswordHash = hash
		a.PasswordSalt = salt
		a.PasswordChangedAt = &at
		a.PasswordResetToken = ""
		a.PasswordResetTokenExpiresAt = nil
	})
}

func (s *MemoryStorage) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	return s.mutateAccount(ctx, id, func(a *Account) {
		a.PasswordResetToken = token
		a.PasswordResetTokenExpiresAt = &expiresAt
	})
}

func (s *MemoryStorage) RecordPasswordFailure(ctx context.Context, id int64, at time.Time) error {
	return s.mutateAccount(ctx, id, func(a *Account) {
		a.PasswordFailureCount++
		a.LastPasswordFailureAt = &at
	})
}

func (s *MemoryStorage) RecordLoginSuccess(ctx context.Context, id int64, at time.Time) error {
	return s.mutateAccount(ctx, id, func(a *Account) {
		a.PasswordFailureCount = 0
		a.LastLoginAt = &at
	})
}

func (s *MemoryStorage) AddAccountRoles(ctx context.Context, id int64, roles []string) error {
	return s.mutateAccount(ctx, id, func(a *Account) {
		for _, r := range roles {
			if !a.HasRole(r) {
				a.Roles = append(a.Roles, r)
			}
		}
	})
}

func (s *MemoryStorage) RemoveAccountRoles(ctx context.Context, id int64, roles []string) error {
	return s.mutateAccount(ctx, id, func(a *Account) {
		a.Roles = slices.DeleteFunc(a.Roles, func(r string) bool { return slices.Contains(roles, r) })
	})
}

func (s *MemoryStorage) RemoveRoleFromAccounts(ctx context.Context, role string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for id, a := range s.accounts {
		if !a.HasRole(role) {
			continue
		}
		a = cloneAccount(a)
		a.Roles = slices.DeleteFunc(a.Roles, func(r string) bool { return r == role })
		s.accounts[id] = a
		changed++
	}
	return changed, nil
}

func (s *MemoryStorage) RoleByName(ctx context.Context, name string) (*Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.roles {
		if r.RoleName == name {
			return &r, nil
		}
	}
	return nil, ErrRoleNotFound
}

func (s *MemoryStorage) RolesByNames(ctx context.Context, names []string) ([]Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Role{}
	for _, r := range s.roles {
		if slices.Contains(names, r.RoleName) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStorage) ListRoles(ctx context.Context) ([]Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleName < out[j].RoleName })
	return out, nil
}

func (s *MemoryStorage) UpsertRole(ctx context.Context, role *Role) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	if role.RoleID == 0 {
		id, err := s.ids.Next(ctx, memoryRolesEntity)
		if err != nil {
			return unavailable(err)
		}
		role.RoleID = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, other := range s.roles {
		if id != role.RoleID && other.RoleName == role.RoleName {
			return ErrDuplicateKey
		}
	}
	s.roles[role.RoleID] = *role
	return nil
}

func (s *MemoryStorage) DeleteRole(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[id]; !ok {
		return false, nil
	}
	delete(s.roles, id)
	return true, nil
}

func (s *MemoryStorage) OAuthLinkByProvider(ctx context.Context, provider, providerUserID string) (*OAuthLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.links {
		if strings.EqualFold(l.Provider, provider) && strings.EqualFold(l.ProviderUserID, providerUserID) {
			return &l, nil
		}
	}
	return nil, ErrOAuthLinkNotFound
}

func (s *MemoryStorage) OAuthLinksByUser(ctx context.Context, userID int64) ([]OAuthLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []OAuthLink{}
	for _, l := range s.links {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *MemoryStorage) UpsertOAuthLink(ctx context.Context, link *OAuthLink) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	if link.ID == "" {
		link.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, other := range s.links {
		if id != link.ID &&
			strings.EqualFold(other.Provider, link.Provider) &&
			strings.EqualFold(other.ProviderUserID, link.ProviderUserID) {
			return ErrDuplicateKey
		}
	}
	s.links[link.ID] = *link
	return nil
}

func (s *MemoryStorage) DeleteOAuthLink(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[id]; !ok {
		return false, nil
	}
	delete(s.links, id)
	return true, nil
}

func (s *MemoryStorage) DeleteOAuthLinksByUser(ctx context.Context, userID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, l := range s.links {
		if l.UserID == userID {
			delete(s.links, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStorage) OAuthTokenByToken(ctx context.Context, token string) (*OAuthToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tokens {
		if t.Token == token {
			return &t, nil
		}
	}
	return nil, ErrOAuthTokenNotFound
}

func (s *MemoryStorage) UpsertOAuthToken(ctx context.Context, token *OAuthToken) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	if token.ID == "" {
		token.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, other := range s.tokens {
		if id != token.ID && other.Token == token.Token {
			return ErrDuplicateKey
		}
	}
	s.tokens[token.ID] = *token
	return nil
}

func (s *MemoryStorage) DeleteOAuthToken(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[id]; !ok {
		return false, nil
	}
	delete(s.tokens, id)
	return true, nil
}

// unavailable marks err as a storage failure while keeping it matchable.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

var _ Storage = (*MemoryStorage)(nil)
