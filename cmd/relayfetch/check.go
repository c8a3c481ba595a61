package main

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/relayfetch/internal/config"
	"github.com/nao1215/relayfetch/internal/log"
	"github.com/nao1215/relayfetch/internal/proxyagent"
)

// checkDialTimeout bounds the reachability probe. A proxy that takes
// longer than this to accept a TCP connection is unusable in practice.
const checkDialTimeout = 10 * time.Second

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [profile]",
		Short: "Validate a proxy profile and probe its reachability",
		Long: `Check resolves a proxy profile and verifies the proxy endpoint accepts
TCP connections.

Without a profile argument, all profiles in the file are checked.

Examples:
  # Check the "work" profile
  relayfetch check work

  # Check every profile in an explicit file
  relayfetch check -c ./staging.relayfetch`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCheckCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Profile file path (default: .relayfetch in current or home directory)")
	cmd.Flags().Bool("no-dial", false,
		"Only resolve the profile, skip the TCP reachability probe")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	profilePath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	noDial, err := cmd.Flags().GetBool("no-dial")
	if err != nil {
		return err
	}

	path := config.FindProfileFile(profilePath)
	if path == "" {
		if profilePath != "" {
			return fmt.Errorf("profile file not found: %s", profilePath)
		}
		return fmt.Errorf("no %s file found in current or home directory", config.DefaultProfileFile)
	}

	profiles, err := config.LoadProfileFile(path)
	if err != nil {
		return fmt.Errorf("failed to load profile file %s: %w", path, err)
	}

	names := profiles.Names()
	if len(args) == 1 {
		names = args
	}
	sort.Strings(names)

	if len(names) == 0 {
		return fmt.Errorf("profile file %s contains no profiles", path)
	}

	failed := 0
	for _, name := range names {
		if err := checkProfile(cmd, profiles, name, noDial); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: FAIL (%v)\n", name, err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d profile(s) failed the check", failed, len(names))
	}
	return nil
}

// checkProfile resolves one profile and optionally probes the endpoint.
func checkProfile(cmd *cobra.Command, profiles *config.ProfileFile, name string, noDial bool) error {
	d, err := profiles.Get(name)
	if err != nil {
		return err
	}

	if !d.Enabled {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: disabled (skipped)\n", name)
		return nil
	}

	pair, err := proxyagent.Resolve(*d)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, log.MaskURLCredentials(pair.ProxyURL()))
	fmt.Fprintf(cmd.OutOrStdout(), "  http  agent: %s\n", pair.Forward.Kind())
	fmt.Fprintf(cmd.OutOrStdout(), "  https agent: %s\n", pair.Tunnel.Kind())

	if noDial {
		return nil
	}

	addr, err := proxyDialAddr(pair.ProxyURL())
	if err != nil {
		return err
	}

	start := time.Now()
	conn, err := net.DialTimeout("tcp", addr, checkDialTimeout)
	if err != nil {
		return fmt.Errorf("proxy endpoint unreachable: %w", err)
	}
	defer conn.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "  reachable:   yes (%s)\n", time.Since(start).Round(time.Millisecond))
	return nil
}

// proxyDialAddr extracts the host:port to probe from a canonical proxy URL,
// filling in the scheme's default port when the URL carries none.
func proxyDialAddr(proxyURL string) (string, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return "", fmt.Errorf("invalid proxy URL: %w", err)
	}

	if u.Port() != "" {
		return u.Host, nil
	}

	port := "80"
	switch {
	case u.Scheme == "https":
		port = "443"
	case len(u.Scheme) >= 5 && u.Scheme[:5] == "socks":
		port = "1080"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
