package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"sort"
	"time"

	"github.com/dmitrymomot/mongomembership/pkg/logger"
)

// RoleStore is the role engine. Role names are case-sensitive; user names are not.
// Listings are sorted ascending.
type RoleStore interface {
	CreateRole(ctx context.Context, roleName string) error
	DeleteRole(ctx context.Context, roleName string, refuseIfPopulated bool) (bool, error)
	RoleExists(ctx context.Context, roleName string) (bool, error)
	AllRoles(ctx context.Context) ([]string, error)

	AddUsersToRoles(ctx context.Context, userNames, roleNames []string) error
	RemoveUsersFromRoles(ctx context.Context, userNames, roleNames []string) error

	UsersInRole(ctx context.Context, roleName string) ([]string, error)
	RolesForUser(ctx context.Context, userName string) ([]string, error)
	IsUserInRole(ctx context.Context, userName, roleName string) (bool, error)
	FindUsersInRoleMatching(ctx context.Context, roleName, pattern string) ([]string, error)
}

// RoleServiceStorage is the storage the role engine works on.
type RoleServiceStorage interface {
	AccountStorage
	RoleStorage
}

type roleService struct {
	storage RoleServiceStorage
	timeout time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

// RoleOption configures the role service.
type RoleOption func(*roleService)

// WithRoleLogger sets the logger.
func WithRoleLogger(l *slog.Logger) RoleOption {
	return func(s *roleService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRoleOperationTimeout bounds the storage calls of a single operation. Zero disables the bound.
func WithRoleOperationTimeout(d time.Duration) RoleOption {
	return func(s *roleService) {
		s.timeout = d
	}
}

// WithRoleMetrics records operation outcomes in m.
func WithRoleMetrics(m *Metrics) RoleOption {
	return func(s *roleService) {
		s.metrics = m
	}
}

// NewRoleService creates the role engine over storage.
func NewRoleService(storage RoleServiceStorage, opts ...RoleOption) RoleStore {
	s := &roleService{
		storage: storage,
		timeout: DefaultConfig().OperationTimeout,
		logger:  logger.Discard(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *roleService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *roleService) CreateRole(ctx context.Context, roleName string) error {
	if blank(roleName) {
		return ErrEmptyRoleName
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.storage.RoleByName(ctx, roleName)
	if err == nil {
		return ErrDuplicateRole
	}
	if !errors.Is(err, ErrRoleNotFound) {
		return err
	}

	if err := s.storage.UpsertRole(ctx, &Role{RoleName: roleName}); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return ErrDuplicateRole
		}
		return err
	}

	s.metrics.observe("create_role", resultOK)
	s.logger.InfoContext(ctx, "role created", logger.Component("role"), logger.Role(roleName))
	return nil
}

// DeleteRole deletes the role and strips it from every account. With refuseIfPopulated set, a role
// that is still assigned is kept and ErrRolePopulated returned. Reports false for an unknown role.
func (s *roleService) DeleteRole(ctx context.Context, roleName string, refuseIfPopulated bool) (bool, error) {
	if blank(roleName) {
		return false, ErrEmptyRoleName
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	role, err := s.storage.RoleByName(ctx, roleName)
	if errors.Is(err, ErrRoleNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if refuseIfPopulated {
		n, err := s.storage.CountAccountsInRole(ctx, roleName)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return false, ErrRolePopulated
		}
	}

	stripped, err := s.storage.RemoveRoleFromAccounts(ctx, roleName)
	if err != nil {
		return false, err
	}
	deleted, err := s.storage.DeleteRole(ctx, role.RoleID)
	if err != nil {
		return false, err
	}

	s.metrics.observe("delete_role", resultOK)
	s.logger.InfoContext(ctx, "role deleted",
		logger.Component("role"),
		logger.Role(roleName),
		logger.Count(stripped),
	)
	return deleted, nil
}

func (s *roleService) RoleExists(ctx context.Context, roleName string) (bool, error) {
	if blank(roleName) {
		return false, ErrEmptyRoleName
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.storage.RoleByName(ctx, roleName)
	if errors.Is(err, ErrRoleNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *roleService) AllRoles(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	roles, err := s.storage.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.RoleName)
	}
	sort.Strings(names)
	return names, nil
}

// AddUsersToRoles grants every role to every user. Roles a user already holds are left as they are.
func (s *roleService) AddUsersToRoles(ctx context.Context, userNames, roleNames []string) error {
	return s.applyRoles(ctx, "add_users_to_roles", userNames, roleNames, s.storage.AddAccountRoles)
}

// RemoveUsersFromRoles revokes every role from every user. Roles a user does not hold are ignored.
func (s *roleService) RemoveUsersFromRoles(ctx context.Context, userNames, roleNames []string) error {
	return s.applyRoles(ctx, "remove_users_from_roles", userNames, roleNames, s.storage.RemoveAccountRoles)
}

// applyRoles resolves every user and role before the first write, then mutates accounts one by one.
// A failure after some accounts were written is reported as *PartialError.
func (s *roleService) applyRoles(
	ctx context.Context,
	op string,
	userNames, roleNames []string,
	mutate func(context.Context, int64, []string) error,
) error {
	if len(userNames) == 0 || len(roleNames) == 0 {
		return ErrEmptyList
	}
	for _, u := range userNames {
		if blank(u) {
			return ErrEmptyUserName
		}
	}
	for _, r := range roleNames {
		if blank(r) {
			return ErrEmptyRoleName
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	roles := uniqueSorted(roleNames)
	found, err := s.storage.RolesByNames(ctx, roles)
	if err != nil {
		return err
	}
	if len(found) != len(roles) {
		known := make([]string, 0, len(found))
		for _, r := range found {
			known = append(known, r.RoleName)
		}
		for _, r := range roles {
			if !slices.Contains(known, r) {
				return fmt.Errorf("%w: %s", ErrRoleNotFound, r)
			}
		}
	}

	accounts := make([]*Account, 0, len(userNames))
	seen := make(map[int64]bool, len(userNames))
	for _, u := range userNames {
		account, err := s.storage.AccountByUserName(ctx, u)
		if errors.Is(err, ErrAccountNotFound) {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, u)
		}
		if err != nil {
			return err
		}
		if !seen[account.UserID] {
			seen[account.UserID] = true
			accounts = append(accounts, account)
		}
	}

	var applied []string
	for i, account := range accounts {
		if err := mutate(ctx, account.UserID, roles); err != nil {
			if len(applied) == 0 {
				return err
			}
			failed := make([]string, 0, len(accounts)-i)
			for _, a := range accounts[i:] {
				failed = append(failed, a.UserName)
			}
			s.metrics.observe(op, resultPartial)
			s.logger.ErrorContext(ctx, "role change partially applied",
				logger.Component("role"),
				logger.Roles(roles),
				slog.Any("applied", applied),
				slog.Any("failed", failed),
				logger.Error(err),
			)
			return &PartialError{Op: op, Applied: applied, Failed: failed, Err: err}
		}
		applied = append(applied, account.UserName)
	}

	s.metrics.observe(op, resultOK)
	s.logger.InfoContext(ctx, "roles updated",
		logger.Component("role"),
		slog.String("op", op),
		logger.Roles(roles),
		logger.Count(int64(len(applied))),
	)
	return nil
}

// UsersInRole lists user names holding roleName.
func (s *roleService) UsersInRole(ctx context.Context, roleName string) ([]string, error) {
	return s.FindUsersInRoleMatching(ctx, roleName, "")
}

// FindUsersInRoleMatching lists user names holding roleName whose lower-cased name matches pattern,
// compared case-insensitively. An empty pattern matches every user.
func (s *roleService) FindUsersInRoleMatching(ctx context.Context, roleName, pattern string) ([]string, error) {
	if blank(roleName) {
		return nil, ErrEmptyRoleName
	}
	if pattern != "" {
		if _, err := regexp.Compile("(?i)" + pattern); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.storage.RoleByName(ctx, roleName); err != nil {
		return nil, err
	}

	accounts, err := s.storage.AccountsInRole(ctx, roleName, pattern)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(accounts))
	for _, a := range accounts {
		names = append(names, a.UserName)
	}
	sort.Strings(names)
	return names, nil
}

// RolesForUser lists the roles held by userName.
func (s *roleService) RolesForUser(ctx context.Context, userName string) ([]string, error) {
	if blank(userName) {
		return nil, ErrEmptyUserName
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.storage.AccountByUserName(ctx, userName)
	if err != nil {
		return nil, err
	}
	return uniqueSorted(account.Roles), nil
}

// IsUserInRole reports false for unknown users.
func (s *roleService) IsUserInRole(ctx context.Context, userName, roleName string) (bool, error) {
	if blank(userName) {
		return false, ErrEmptyUserName
	}
	if blank(roleName) {
		return false, ErrEmptyRoleName
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.storage.AccountByUserName(ctx, userName)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return account.HasRole(roleName), nil
}

func uniqueSorted(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	out = slices.Compact(out)
	if out == nil {
		out = []string{}
	}
	return out
}

var _ RoleStore = (*roleService)(nil)
