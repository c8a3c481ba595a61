// Package main provides the entry point for the relayfetch CLI.
//
// relayfetch fetches URLs through configured HTTP, HTTPS, or SOCKS
// proxies, with automatic fallback to direct connections when a proxy
// fails.
//
// Usage:
//
//	relayfetch fetch <url>...
//	relayfetch fetch --profile work <url>...
//
// See --help for all available options.
package main

// main is the entry point for relayfetch.
func main() {
	Execute()
}
