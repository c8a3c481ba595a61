package model

import (
	"net/http"
	"time"
)

// FetchResult is the outcome of a single fetch attempt, successful or not.
// It is the uniform currency between the fetcher, report writers, and the
// history database.
//
// Design decision: We record failures inside the result (Error field)
// rather than returning them out-of-band because a batch fetch must keep
// going past individual failures, and the report needs the failed entries
// alongside the successful ones.
type FetchResult struct {
	// URL is the target URL as requested.
	URL string `json:"url"`

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int `json:"status_code"`

	// Proto is the negotiated protocol version (e.g., "HTTP/1.1").
	Proto string `json:"proto,omitempty"`

	// ContentType is the response Content-Type header, if any.
	ContentType string `json:"content_type,omitempty"`

	// BodySize is the number of body bytes read, after truncation.
	BodySize int64 `json:"body_size"`

	// Truncated indicates the body exceeded the configured size limit.
	Truncated bool `json:"truncated,omitempty"`

	// Headers holds the response headers for successful fetches.
	Headers http.Header `json:"headers,omitempty"`

	// ViaProxy indicates the response was obtained through the configured
	// proxy. False for direct clients, explicit bypasses, and fallbacks.
	ViaProxy bool `json:"via_proxy"`

	// FellBack indicates the proxied attempt failed and the outcome came
	// from the automatic direct retry.
	FellBack bool `json:"fell_back"`

	// Duration is the total wall-clock time for the fetch, including a
	// fallback retry when one happened.
	Duration time.Duration `json:"duration"`

	// FetchedAt is when the fetch started.
	FetchedAt time.Time `json:"fetched_at"`

	// Error holds the failure message when the fetch produced no response.
	Error string `json:"error,omitempty"`
}

// Succeeded reports whether the fetch produced a response.
func (r *FetchResult) Succeeded() bool {
	return r.Error == "" && r.StatusCode != 0
}

// Summary aggregates a batch of fetch results for reporting.
type Summary struct {
	// Total is the number of fetches attempted.
	Total int `json:"total"`

	// Succeeded is the number of fetches that produced a response.
	Succeeded int `json:"succeeded"`

	// Failed is the number of fetches that produced no response.
	Failed int `json:"failed"`

	// FellBack is the number of fetches answered via direct fallback.
	FellBack int `json:"fell_back"`

	// ViaProxy is the number of fetches answered through the proxy.
	ViaProxy int `json:"via_proxy"`
}

// Summarize computes a Summary over a slice of results.
// Nil entries are tolerated and counted as failures, so a partially
// filled batch slice still summarizes.
func Summarize(results []*FetchResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r == nil {
			s.Failed++
			continue
		}
		if r.Succeeded() {
			s.Succeeded++
		} else {
			s.Failed++
		}
		if r.FellBack {
			s.FellBack++
		}
		if r.ViaProxy {
			s.ViaProxy++
		}
	}
	return s
}
