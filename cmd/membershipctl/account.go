package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mongomembership/pkg/membership"
)

func newAccountCmd(rt *runtime) *cobra.Command {
	account := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}
	account.AddCommand(
		newAccountCreateCmd(rt),
		newAccountConfirmCmd(rt),
		newAccountDeleteCmd(rt),
		newAccountShowCmd(rt),
		newAccountListCmd(rt),
		newAccountResetTokenCmd(rt),
	)
	return account
}

func newAccountCreateCmd(rt *runtime) *cobra.Command {
	var (
		password            string
		requireConfirmation bool
		extra               string
		checkPolicy         bool
	)
	cmd := &cobra.Command{
		Use:   "create <user>",
		Short: "Create a local account",
		Args:  cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, a *app, args []string) error {
			if checkPolicy {
				if err := a.cfg.Policy.Check(password); err != nil {
					return err
				}
			}
			token, err := a.accounts.CreateLocalAccount(cmd.Context(), args[0], password, requireConfirmation, extra)
			if err != nil {
				return err
			}
			printf(cmd, "created %s\n", args[0])
			if token != "" {
				printf(cmd, "confirmation token: %s\n", token)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "initial password")
	cmd.Flags().BoolVar(&requireConfirmation, "require-confirmation", false, "create the account unconfirmed and print a confirmation token")
	cmd.Flags().StringVar(&extra, "extra", "", "opaque extra data stored with the account")
	cmd.Flags().BoolVar(&checkPolicy, "check-policy", true, "reject passwords that violate the configured policy")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newAccountConfirmCmd(rt *runtime) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "confirm <token>",
		Short: "Confirm an account by its confirmation token",
		Args:  cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, a *app, args []string) error {
			var (
				ok  bool
				err error
			)
			if user != "" {
				ok, err = a.accounts.ConfirmByUserNameAndToken(cmd.Context(), user, args[0])
			} else {
				ok, err = a.accounts.ConfirmByToken(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: confirmation token did not match", membership.ErrNotFound)
			}
			printf(cmd, "confirmed\n")
			return nil
		}),
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "only confirm if the token belongs to this user")
	return cmd
}

func newAccountDeleteCmd(rt *runtime) *cobra.Command {
	var cascade bool
	cmd := &cobra.Command{
		Use:   "delete <user>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, a *app, args []string) error {
			deleted, err := a.accounts.DeleteAccount(cmd.Context(), args[0], cascade)
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("%w: %s", membership.ErrAccountNotFound, args[0])
			}
			printf(cmd, "deleted %s\n", args[0])
			return nil
		}),
	}
	cmd.Flags().BoolVar(&cascade, "oauth", false, "also delete the account's OAuth links")
	return cmd
}

func newAccountShowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user>",
		Short: "Show an account with its roles and OAuth links",
		Args:  cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			account, err := a.accounts.Account(ctx, args[0])
			if err != nil {
				return err
			}
			roles, err := a.roles.RolesForUser(ctx, account.UserName)
			if err != nil {
				return err
			}
			links, err := a.accounts.OAuthAccounts(ctx, account.UserName)
			if err != nil {
				return err
			}
			oauth := make([]string, 0, len(links))
			for _, l := range links {
				oauth = append(oauth, l.Provider+":"+l.ProviderUserID)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "id\t%d\n", account.UserID)
			fmt.Fprintf(tw, "user name\t%s\n", account.UserName)
			fmt.Fprintf(tw, "local\t%t\n", account.IsLocalAccount)
			fmt.Fprintf(tw, "confirmed\t%t\n", account.IsConfirmed)
			fmt.Fprintf(tw, "created\t%s\n", formatTime(&account.CreatedAt))
			fmt.Fprintf(tw, "last login\t%s\n", formatTime(account.LastLoginAt))
			fmt.Fprintf(tw, "password changed\t%s\n", formatTime(account.PasswordChangedAt))
			fmt.Fprintf(tw, "password failures\t%d\n", account.PasswordFailureCount)
			fmt.Fprintf(tw, "last failure\t%s\n", formatTime(account.LastPasswordFailureAt))
			fmt.Fprintf(tw, "roles\t%s\n", strings.Join(roles, ", "))
			fmt.Fprintf(tw, "oauth\t%s\n", strings.Join(oauth, ", "))
			return tw.Flush()
		}),
	}
}

func newAccountListCmd(rt *runtime) *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts ordered by id",
		Args:  cobra.NoArgs,
		RunE: rt.run(func(cmd *cobra.Command, a *app, _ []string) error {
			accounts, total, err := a.accounts.ListAccounts(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tUSER\tLOCAL\tCONFIRMED\tCREATED")
			for _, acc := range accounts {
				fmt.Fprintf(tw, "%d\t%s\t%t\t%t\t%s\n",
					acc.UserID, acc.UserName, acc.IsLocalAccount, acc.IsConfirmed, formatTime(&acc.CreatedAt))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			printf(cmd, "total: %d\n", total)
			return nil
		}),
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page index")
	cmd.Flags().IntVar(&size, "size", 50, "page size")
	return cmd
}

func newAccountResetTokenCmd(rt *runtime) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "reset-token <user>",
		Short: "Issue a password reset token",
		Long: `Issue a password reset token for a confirmed account. An unexpired token is returned as-is
instead of being replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, a *app, args []string) error {
			if ttl == 0 {
				ttl = a.cfg.ResetTokenTTL
			}
			token, err := a.accounts.IssuePasswordResetToken(cmd.Context(), args[0], ttl)
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", token)
			return nil
		}),
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default MEMBERSHIP_RESET_TOKEN_TTL)")
	return cmd
}
