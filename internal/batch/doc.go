// Package batch fetches multiple URLs concurrently through one proxied
// client. It bounds concurrency with errgroup, preserves input order in
// the results, and records per-URL failures in the results rather than
// aborting the whole batch.
package batch
