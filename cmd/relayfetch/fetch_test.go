package main

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/relayfetch/internal/config"
	"github.com/nao1215/relayfetch/internal/proxyagent"
)

// TestNewFetchCmd tests the fetch command creation.
func TestNewFetchCmd(t *testing.T) {
	t.Parallel()

	cmd := NewFetchCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "fetch <url>..." {
			t.Errorf("expected use 'fetch <url>...', got %q", cmd.Use)
		}
	})

	t.Run("has expected flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{
			"profile", "config", "bypass", "no-fallback",
			"timeout", "batch", "user-agent", "max-body-size",
			"json", "markdown", "output",
			"save", "db-dir",
		} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected flag %q", name)
			}
		}
	})

	t.Run("timeout default matches config", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("timeout")
		if flag == nil {
			t.Fatal("expected timeout flag")
		}
		if flag.DefValue != config.DefaultTimeout.String() {
			t.Errorf("expected default %q, got %q", config.DefaultTimeout, flag.DefValue)
		}
	})
}

// TestBuildConfig tests flag-to-config translation.
func TestBuildConfig(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		cmd := NewFetchCmd()
		if err := cmd.ParseFlags([]string{}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}

		if cfg.Timeout != config.DefaultTimeout {
			t.Errorf("Timeout = %v, want %v", cfg.Timeout, config.DefaultTimeout)
		}
		if cfg.BatchSize != config.DefaultBatchSize {
			t.Errorf("BatchSize = %d, want %d", cfg.BatchSize, config.DefaultBatchSize)
		}
		if cfg.UserAgent != config.DefaultUserAgent {
			t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, config.DefaultUserAgent)
		}
		if cfg.DBDir == "" {
			t.Error("DBDir should default to the XDG data directory")
		}
		if cfg.Profiles == nil {
			t.Error("Profiles should never be nil")
		}
		if len(cfg.URLs) != 1 || cfg.URLs[0] != "https://example.com" {
			t.Errorf("URLs = %v", cfg.URLs)
		}
	})

	t.Run("reads flag overrides", func(t *testing.T) {
		cmd := NewFetchCmd()
		err := cmd.ParseFlags([]string{
			"--profile", "work",
			"--timeout", "5s",
			"--batch", "2",
			"--bypass",
			"--no-fallback",
			"--json",
			"--save",
		})
		if err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		// Point at an existing profile file so profile loading succeeds
		tmpDir := t.TempDir()
		profilePath := filepath.Join(tmpDir, ".relayfetch")
		profileYAML := `profiles:
  work:
    server: proxy.example.com
    port: 8080
    enabled: true
`
		if err := os.WriteFile(profilePath, []byte(profileYAML), 0600); err != nil {
			t.Fatalf("failed to write profile file: %v", err)
		}
		if err := cmd.Flags().Set("config", profilePath); err != nil {
			t.Fatalf("failed to set config flag: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}

		if cfg.ProfileName != "work" {
			t.Errorf("ProfileName = %q, want %q", cfg.ProfileName, "work")
		}
		if cfg.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
		}
		if cfg.BatchSize != 2 {
			t.Errorf("BatchSize = %d, want 2", cfg.BatchSize)
		}
		if !cfg.Bypass || !cfg.NoFallback || !cfg.JSONReport || !cfg.SaveToDB {
			t.Errorf("boolean flags not applied: %+v", cfg)
		}

		d, err := cfg.Profiles.Get("work")
		if err != nil {
			t.Fatalf("expected work profile to be loaded: %v", err)
		}
		if d.Server != "proxy.example.com" || d.Port != 8080 {
			t.Errorf("unexpected descriptor: %+v", d)
		}
	})

	t.Run("explicit missing profile file fails", func(t *testing.T) {
		cmd := NewFetchCmd()
		if err := cmd.ParseFlags([]string{"--config", "/nonexistent/.relayfetch"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		if _, err := buildConfig(cmd, []string{"https://example.com"}); err == nil {
			t.Error("expected error for missing explicit profile file")
		}
	})
}

// TestRunFetch tests the end-to-end fetch flow against a local server.
func TestRunFetch(t *testing.T) {
	t.Run("fetches directly and writes a report file", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			if _, err := w.Write([]byte("hello")); err != nil {
				t.Errorf("failed to write response: %v", err)
			}
		}))
		defer ts.Close()

		tmpDir := t.TempDir()
		reportPath := filepath.Join(tmpDir, "out", "report.txt")

		cfg := config.NewConfig()
		cfg.URLs = []string{ts.URL}
		cfg.ReportFile = reportPath
		cfg.Profiles = &config.ProfileFile{}

		if err := runFetch(t.Context(), cfg, discardLogger()); err != nil {
			t.Fatalf("runFetch() error = %v", err)
		}

		content, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		out := string(content)
		if !strings.Contains(out, "1 succeeded") {
			t.Errorf("report missing success count:\n%s", out)
		}
		if !strings.Contains(out, ts.URL) {
			t.Errorf("report missing target URL:\n%s", out)
		}
	})

	t.Run("unknown profile fails", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.URLs = []string{"https://example.com"}
		cfg.ProfileName = "nope"
		cfg.Profiles = &config.ProfileFile{}

		err := runFetch(t.Context(), cfg, discardLogger())
		if !errors.Is(err, config.ErrProfileNotFound) {
			t.Errorf("runFetch() error = %v, want ErrProfileNotFound", err)
		}
	})

	t.Run("invalid proxy descriptor fails at client construction", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.URLs = []string{"https://example.com"}
		cfg.ProfileName = "bad"
		cfg.Profiles = &config.ProfileFile{
			Profiles: map[string]proxyagent.Descriptor{
				"bad": {Server: "ftp://proxy.example.com", Enabled: true},
			},
		}

		err := runFetch(t.Context(), cfg, discardLogger())
		if !errors.Is(err, proxyagent.ErrUnsupportedProxyProtocol) {
			t.Errorf("runFetch() error = %v, want ErrUnsupportedProxyProtocol", err)
		}
	})
}

// discardLogger returns a logger that drops everything, keeping test
// output readable.
func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
