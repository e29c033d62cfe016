package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/webguard/auth"
)

func newHashPasswordCmd() *cobra.Command {
	var escape bool

	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password",
		Long: `Print the bcrypt hash of a password for a password_hash entry.
Without an argument the password is read from the first line of stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				var err error
				if password, err = readLine(cmd); err != nil {
					return err
				}
			}
			if password == "" {
				return errors.New("password is required")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			if escape {
				hash = strings.ReplaceAll(hash, "$", "$$")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}

	cmd.Flags().BoolVar(&escape, "escape", false, `Double every "$" so the hash survives config expansion`)
	return cmd
}

func readLine(cmd *cobra.Command) (string, error) {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r"), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return "", nil
}
