package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/relayfetch/internal/config"
)

//go:embed templates/relayfetch.yaml
var profileTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new relayfetch profile file",
		Long: `Init creates a new .relayfetch profile file in the current directory.

The generated file includes:
- Commented examples for HTTP, HTTPS, and SOCKS proxy profiles
- Documentation for all descriptor fields

Examples:
  # Create .relayfetch in current directory
  relayfetch init

  # Create the profile file at a specific path
  relayfetch init -o myproxies.yaml

  # Force overwrite existing file
  relayfetch init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultProfileFile,
		"Output file path for the profile file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing profile file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("profile file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	content, err := profileTemplate.ReadFile("templates/relayfetch.yaml")
	if err != nil {
		return fmt.Errorf("failed to read profile template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Profile files hold proxy credentials; owner-only permissions
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created profile file: %s\n", outputPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nEdit this file to configure your proxy profiles:")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Proxy server, port, and protocol")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Authentication credentials")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Which profiles are enabled")

	return nil
}
