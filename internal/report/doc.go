// Package report renders batches of fetch results in multiple output
// formats: human-readable text for terminals, JSON for tool integration,
// and GitHub Flavored Markdown for sharing.
package report
