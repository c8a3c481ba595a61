package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/relayfetch/internal/batch"
	"github.com/nao1215/relayfetch/internal/client"
	"github.com/nao1215/relayfetch/internal/config"
	"github.com/nao1215/relayfetch/internal/history"
	"github.com/nao1215/relayfetch/internal/log"
	"github.com/nao1215/relayfetch/internal/model"
	"github.com/nao1215/relayfetch/internal/proxyagent"
	"github.com/nao1215/relayfetch/internal/report"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <url>...",
		Short: "Fetch one or more URLs, through a proxy profile if selected",
		Long: `Fetch retrieves URLs and reports status, size, and routing for each.

With --profile, requests go through the named proxy from the .relayfetch
profile file. When the proxied attempt fails for a network or proxy
reason, the request is retried once on a direct connection unless
--no-fallback is set.

Examples:
  # Fetch directly, no proxy
  relayfetch fetch https://example.com

  # Fetch through the "work" proxy profile
  relayfetch fetch --profile work https://example.com https://example.org

  # Strict proxy-only fetching (no direct fallback)
  relayfetch fetch --profile work --no-fallback https://example.com

  # Skip the proxy for this run even though a profile is selected
  relayfetch fetch --profile work --bypass https://example.com

  # JSON report written to a file, outcomes saved to history
  relayfetch fetch --profile work --json -o report.json --save https://example.com

Profile file (.relayfetch) example:
  profiles:
    work:
      server: proxy.corp.example.com
      port: 8080
      username: alice
      password: hunter2
      enabled: true
    home:
      server: socks5://127.0.0.1
      port: 1080
      enabled: true`,
		Args: cobra.ArbitraryArgs,
		RunE: runFetchCmd,
	}

	// Proxy selection flags
	cmd.Flags().StringP("profile", "p", "",
		"Proxy profile name from the profile file")
	cmd.Flags().StringP("config", "c", "",
		"Profile file path (default: .relayfetch in current or home directory)")
	cmd.Flags().Bool("bypass", false,
		"Skip the configured proxy and fetch directly")
	cmd.Flags().Bool("no-fallback", false,
		"Do not retry directly when the proxied request fails")

	// Fetch behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request timeout")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent fetches")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent header to send")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body bytes to read per URL")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().BoolP("save", "s", false,
		"Save fetch outcomes to the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runFetchCmd executes the fetch command.
func runFetchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up credential-masking structured logging
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runFetch(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.ProfileName, err = cmd.Flags().GetString("profile")
	if err != nil {
		return nil, err
	}

	cfg.ProfileFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.Bypass, err = cmd.Flags().GetBool("bypass")
	if err != nil {
		return nil, err
	}

	cfg.NoFallback, err = cmd.Flags().GetBool("no-fallback")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.SaveToDB, err = cmd.Flags().GetBool("save")
	if err != nil {
		return nil, err
	}

	cfg.DBDir, err = cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Load proxy profiles from the profile file.
	// If the user explicitly specified a path, error if not found.
	// If no path was specified, silently use an empty profile set.
	if err := loadProfiles(cfg); err != nil {
		return nil, err
	}

	// Positional arguments are the target URLs
	cfg.URLs = args

	return cfg, nil
}

// loadProfiles populates cfg.Profiles from the profile file.
func loadProfiles(cfg *config.Config) error {
	explicitPath := cfg.ProfileFilePath != ""
	path := config.FindProfileFile(cfg.ProfileFilePath)

	if path != "" {
		profiles, err := config.LoadProfileFile(path)
		if err != nil {
			return fmt.Errorf("failed to load profile file %s: %w", path, err)
		}
		cfg.Profiles = profiles
		return nil
	}

	if explicitPath {
		return fmt.Errorf("profile file not found: %s", cfg.ProfileFilePath)
	}

	cfg.Profiles = &config.ProfileFile{
		Profiles: make(map[string]proxyagent.Descriptor),
	}
	return nil
}

// runFetch executes the fetch.
func runFetch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Resolve the selected profile into a proxy descriptor, if any
	var descriptor *proxyagent.Descriptor
	if cfg.ProfileName != "" {
		d, err := cfg.Profiles.Get(cfg.ProfileName)
		if err != nil {
			return err
		}
		descriptor = d
	}

	logger.Info("starting fetch",
		"urls", len(cfg.URLs),
		"profile", cfg.ProfileName,
		"bypass", cfg.Bypass,
		"batchSize", cfg.BatchSize,
	)

	clientOpts := []client.Option{
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(logger),
	}
	if cfg.NoFallback {
		clientOpts = append(clientOpts, client.WithoutFallback())
	}

	c, err := client.New(descriptor, clientOpts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	fetcherOpts := []batch.Option{
		batch.WithConcurrency(cfg.BatchSize),
		batch.WithUserAgent(cfg.UserAgent),
		batch.WithMaxBodySize(cfg.MaxBodySize),
		batch.WithLogger(logger),
	}
	if cfg.Bypass {
		fetcherOpts = append(fetcherOpts, batch.WithBypass())
	}

	fetcher := batch.NewFetcher(c, fetcherOpts...)

	results, err := fetcher.Fetch(ctx, cfg.URLs)
	if err != nil {
		return fmt.Errorf("fetch aborted: %w", err)
	}

	// Save outcomes before reporting so a broken report path cannot lose
	// the history.
	if cfg.SaveToDB {
		if err := saveResults(ctx, cfg, results, logger); err != nil {
			logger.Error("failed to save fetch history", "error", err)
		}
	}

	return outputReport(cfg, results)
}

// saveResults stores the batch outcomes in the history database.
func saveResults(ctx context.Context, cfg *config.Config, results []*model.FetchResult, logger *slog.Logger) error {
	db, err := history.Open(cfg.DBDir, history.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	if err := db.SaveAll(ctx, cfg.ProfileName, results); err != nil {
		return err
	}

	logger.Info("fetch history saved",
		"records", len(results),
		"db", db.Path(),
	)
	return nil
}

// outputReport renders the fetch results in the requested format.
func outputReport(cfg *config.Config, results []*model.FetchResult) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may embed response headers; owner-only permissions
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if _, err := writer.Write(results); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
