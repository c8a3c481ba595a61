// Package main provides the entry point for the relayfetch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for relayfetch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relayfetch",
		Short: "Fetch URLs through HTTP, HTTPS, or SOCKS proxies",
		Long: `relayfetch fetches URLs through configured proxies with automatic
fallback to direct connections when a proxy fails.

Proxy accounts are kept as named profiles in a .relayfetch YAML file.
Select one with --profile; without a profile every request goes out
directly.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
