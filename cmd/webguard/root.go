package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "webguard",
		Short: "Authentication and authorization proxy",
		Long: `webguard puts a chain of security filters in front of an HTTP backend.
Requests are authenticated (Basic or Bearer), authorized and either passed
on or answered with 401, 403 or 429.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newHashPasswordCmd(),
		newUsersCmd(),
	)
	return root
}
