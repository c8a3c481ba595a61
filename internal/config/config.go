package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen for proxied traffic, which adds an intermediary
// hop to every connection and is slower than direct fetching.
const (
	// DefaultTimeout is set to 60 seconds because proxied connections
	// (especially SOCKS chains and authenticated HTTP proxies) routinely
	// take several seconds to establish. A short timeout would misreport
	// slow-but-working proxies as dead.
	DefaultTimeout = 60 * time.Second

	// DefaultBatchSize of 5 concurrent fetches balances throughput with
	// the connection limits most commercial proxies enforce per account.
	DefaultBatchSize = 5

	// DefaultUserAgent identifies relayfetch in HTTP requests.
	// Using a descriptive User-Agent is good practice and allows operators
	// to identify tool traffic in their logs.
	DefaultUserAgent = "relayfetch/1.0 (+https://github.com/nao1215/relayfetch)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for most pages while preventing memory exhaustion
	// from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// AppName is the application name used for XDG directory paths.
	AppName = "relayfetch"
)

// Config holds all runtime options for relayfetch.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The number of options is manageable, and nesting would
// add complexity without significant benefit.
type Config struct {
	// URLs is the list of target URLs to fetch.
	// Must contain at least one URL.
	URLs []string

	// ProfileName selects the proxy profile from the profile file.
	// Empty means no proxy: all requests go out directly.
	ProfileName string

	// ProfileFilePath is the path to the profile file.
	// If empty, the tool searches for .relayfetch in the current directory
	// and then in the user's home directory.
	ProfileFilePath string

	// Profiles holds the proxy profiles loaded from the profile file.
	// Populated by LoadProfileFile before fetching starts.
	Profiles *ProfileFile

	// Timeout is the per-request timeout, covering connection setup
	// through reading the response.
	Timeout time.Duration

	// BatchSize is the number of concurrent fetches when processing
	// multiple URLs. Proxies may enforce per-account connection limits,
	// so this should stay modest.
	BatchSize int

	// Bypass forces every request onto a fresh proxy-disabled client,
	// skipping the configured agents entirely.
	Bypass bool

	// NoFallback disables the automatic direct retry on proxy failure,
	// giving strict must-go-through-proxy semantics.
	NoFallback bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable
	// format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory path for storing the SQLite history database.
	// When set, fetch outcomes are saved for later inspection.
	// Defaults to the XDG data directory when history saving is enabled.
	DBDir string

	// SaveToDB indicates whether to save fetch outcomes to the database.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated. Zero means the default.
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases; callers override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (timeout, batch size).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		BatchSize:   DefaultBatchSize,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for relayfetch.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/relayfetch
// On macOS: ~/Library/Application Support/relayfetch
// On Windows: %LOCALAPPDATA%\relayfetch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for relayfetch.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/relayfetch
// On macOS: ~/Library/Application Support/relayfetch
// On Windows: %APPDATA%\relayfetch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any fetching begins.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.URLs) == 0 {
		return ErrNoURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
