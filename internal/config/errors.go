package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and the profile lookup
// helpers, and provide specific information about what is wrong.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances at each call site. This allows callers to
// use errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoURL is returned when no target URL is given to fetch.
	ErrNoURL = errors.New("no URL specified: provide at least one URL to fetch")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no concurrent fetches at all.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to fall back to the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrProfileNotFound is returned when the requested profile name does
	// not exist in the profile file.
	ErrProfileNotFound = errors.New("proxy profile not found")

	// ErrProfileFileNotFound is returned when the profile file does not
	// exist at any of the searched locations.
	ErrProfileFileNotFound = errors.New("profile file not found")
)
