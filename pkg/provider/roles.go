package provider

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/mongomembership/pkg/membership"
)

// Roles is a role provider backed by a membership.RoleStore.
type Roles struct {
	name    string
	appName string
	roles   membership.RoleStore
	logger  *slog.Logger
}

// NewRoles creates the adapter. An empty name defaults to "MongoRoleProvider".
func NewRoles(name string, roles membership.RoleStore, opts ...Option) *Roles {
	if name == "" {
		name = "MongoRoleProvider"
	}
	o := applyOptions(opts)
	return &Roles{name: name, appName: o.appName, roles: roles, logger: o.logger}
}

func (r *Roles) Name() string            { return r.name }
func (r *Roles) ApplicationName() string { return r.appName }

func (r *Roles) CreateRole(ctx context.Context, roleName string) error {
	return r.roles.CreateRole(ctx, roleName)
}

// DeleteRole deletes the role. throwOnPopulatedRole refuses roles that are still assigned.
func (r *Roles) DeleteRole(ctx context.Context, roleName string, throwOnPopulatedRole bool) (bool, error) {
	return r.roles.DeleteRole(ctx, roleName, throwOnPopulatedRole)
}

func (r *Roles) RoleExists(ctx context.Context, roleName string) (bool, error) {
	return r.roles.RoleExists(ctx, roleName)
}

func (r *Roles) GetAllRoles(ctx context.Context) ([]string, error) {
	return r.roles.AllRoles(ctx)
}

func (r *Roles) AddUsersToRoles(ctx context.Context, userNames, roleNames []string) error {
	return r.roles.AddUsersToRoles(ctx, userNames, roleNames)
}

func (r *Roles) RemoveUsersFromRoles(ctx context.Context, userNames, roleNames []string) error {
	return r.roles.RemoveUsersFromRoles(ctx, userNames, roleNames)
}

func (r *Roles) GetUsersInRole(ctx context.Context, roleName string) ([]string, error) {
	return r.roles.UsersInRole(ctx, roleName)
}

// GetRolesForUser returns an empty list for unknown users.
func (r *Roles) GetRolesForUser(ctx context.Context, userName string) ([]string, error) {
	roles, err := r.roles.RolesForUser(ctx, userName)
	if errors.Is(err, membership.ErrAccountNotFound) {
		return []string{}, nil
	}
	return roles, err
}

func (r *Roles) IsUserInRole(ctx context.Context, userName, roleName string) (bool, error) {
	return r.roles.IsUserInRole(ctx, userName, roleName)
}

func (r *Roles) FindUsersInRole(ctx context.Context, roleName, userNameToMatch string) ([]string, error) {
	return r.roles.FindUsersInRoleMatching(ctx, roleName, userNameToMatch)
}
