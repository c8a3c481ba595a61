// Package client executes HTTP requests through an account's proxy with
// automatic fallback to a direct connection when the proxied attempt fails
// for a network- or proxy-related reason.
//
// A Client resolves its proxy agents once at construction and reuses them
// for every request. On a failed proxied request the error is classified:
// known low-level network failures (connection refused, reset, timed out,
// host not found) and errors whose message looks proxy-related trigger
// exactly one retry of the same request on a fresh, proxy-disabled client.
// Anything else, and any error from the retry itself, propagates unchanged.
//
// The fallback trades strict proxying guarantees for availability: it
// papers over flaky or dead proxies on a best-effort basis. Callers that
// must never go direct should construct the client with WithoutFallback.
//
// Clients are safe for concurrent use. The agent pair and configuration
// are immutable after construction, and bypass clients are created fresh
// per call and discarded.
package client
