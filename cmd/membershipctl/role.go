package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mongomembership/pkg/membership"
)

func newRoleCmd(rt *runtime) *cobra.Command {
	role := &cobra.Command{
		Use:   "role",
		Short: "Manage roles and role assignments",
	}
	role.AddCommand(
		&cobra.Command{
			Use:   "create <role>",
			Short: "Create a role",
			Args:  cobra.ExactArgs(1),
			RunE: rt.run(func(cmd *cobra.Command, a *app, args []string) error {
				if err := a.roles.CreateRole(cmd.Context(), args[0]); err != nil {
					return err
				}
				printf(cmd, "created role %s\n", args[0])
				return nil
			}),
		},
		newRoleDeleteCmd(rt),
		&cobra.Command{
			Use:   "list",
			Short: "List roles",
			Args:  cobra.NoArgs,
			RunE: rt.run(func(cmd *cobra.Command, a *app, _ []string) error {
				roles, err := a.roles.AllRoles(cmd.Context())
				if err != nil {
					return err
				}
				for _, r := range roles {
					printf(cmd, "%s\n", r)
				}
				return nil
			}),
		},
		newRoleAssignCmd(rt, "add", "Add users to roles", func(a *app) assignFunc { return a.roles.AddUsersToRoles }),
		newRoleAssignCmd(rt, "remove", "Remove users from roles", func(a *app) assignFunc { return a.roles.RemoveUsersFromRoles }),
		newRoleUsersCmd(rt),
	)
	return role
}

func newRoleDeleteCmd(rt *runtime) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <role>",
		Short: "Delete a role",
		Long:  "Delete a role. Roles still assigned to accounts are refused unless --force strips them first.",
		Args:  cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, a *app, args []string) error {
			deleted, err := a.roles.DeleteRole(cmd.Context(), args[0], !force)
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("%w: %s", membership.ErrRoleNotFound, args[0])
			}
			printf(cmd, "deleted role %s\n", args[0])
			return nil
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "remove the role from every account before deleting it")
	return cmd
}

type assignFunc func(ctx context.Context, users, roles []string) error

func newRoleAssignCmd(rt *runtime, use, short string, pick func(*app) assignFunc) *cobra.Command {
	var users, roles []string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: rt.run(func(cmd *cobra.Command, a *app, _ []string) error {
			err := pick(a)(cmd.Context(), users, roles)
			var partial *membership.PartialError
			if errors.As(err, &partial) {
				printf(cmd, "applied: %v\nfailed: %v\n", partial.Applied, partial.Failed)
			}
			if err != nil {
				return err
			}
			printf(cmd, "ok\n")
			return nil
		}),
	}
	cmd.Flags().StringSliceVarP(&users, "user", "u", nil, "user names (repeatable or comma-separated)")
	cmd.Flags().StringSliceVarP(&roles, "role", "r", nil, "role names (repeatable or comma-separated)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newRoleUsersCmd(rt *runtime) *cobra.Command {
	var match string
	cmd := &cobra.Command{
		Use:   "users <role>",
		Short: "List users holding a role",
		Args:  cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, a *app, args []string) error {
			users, err := a.roles.FindUsersInRoleMatching(cmd.Context(), args[0], match)
			if err != nil {
				return err
			}
			for _, u := range users {
				printf(cmd, "%s\n", u)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&match, "match", "", "case-insensitive regular expression on the user name")
	return cmd
}
