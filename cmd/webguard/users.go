package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/webguard/auth"
	"github.com/jonwraymond/webguard/config"
	"github.com/jonwraymond/webguard/credstore"
)

type storeFlags struct {
	dsn        string
	configPath string
}

// open connects to --dsn, or to the credstore of --config, and makes sure
// the users table exists.
func (f *storeFlags) open(ctx context.Context) (*credstore.Store, error) {
	dsn := f.dsn
	if dsn == "" && f.configPath != "" {
		cfg, err := config.Load(ctx, f.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.CredStore == nil {
			return nil, errors.New("configuration has no credstore section")
		}
		dsn = cfg.CredStore.DSN
	}
	if dsn == "" {
		return nil, errors.New("--dsn or --config is required")
	}

	store, err := credstore.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, errors.Join(err, store.Close())
	}
	return store, nil
}

func newUsersCmd() *cobra.Command {
	flags := &storeFlags{}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts in the credential store",
	}
	cmd.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "Credential store DSN (postgres://... or a SQLite path)")
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Read the DSN from this configuration file")

	cmd.AddCommand(
		newUsersAddCmd(flags),
		newUsersListCmd(flags),
		newUsersDeleteCmd(flags),
	)
	return cmd
}

func newUsersAddCmd(flags *storeFlags) *cobra.Command {
	var (
		password string
		stdin    bool
		roles    []string
		tenant   string
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if stdin {
				var err error
				if password, err = readLine(cmd); err != nil {
					return err
				}
			}
			if password == "" {
				return errors.New("password is required (use --password or --stdin)")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			store, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.CreateUser(cmd.Context(), &auth.UserDetails{
				Username:     args[0],
				PasswordHash: hash,
				TenantID:     tenant,
				Roles:        roles,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password (use --stdin to keep it out of shell history)")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "Read the password from stdin")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role to grant; repeatable")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant ID")
	return cmd
}

func newUsersListCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			users, err := store.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USERNAME\tTENANT\tROLES\tSTATUS")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Username, u.TenantID, strings.Join(u.Roles, ","), accountStatus(u))
			}
			return tw.Flush()
		},
	}
}

func accountStatus(u *auth.UserDetails) string {
	switch {
	case u.Disabled:
		return "disabled"
	case u.Locked:
		return "locked"
	default:
		return "active"
	}
}

func newUsersDeleteCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", args[0])
			return nil
		},
	}
}
