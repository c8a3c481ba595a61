// Package history provides SQLite-based persistence for fetch outcomes.
// Each saved record ties a fetch result to the profile it was fetched
// under, so past behavior of a given proxy account can be inspected with
// the history command.
package history
