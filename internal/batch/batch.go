package batch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/relayfetch/internal/client"
	"github.com/nao1215/relayfetch/internal/config"
	"github.com/nao1215/relayfetch/internal/model"
)

// Fetcher fetches batches of URLs through a single proxied client.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: One shared client rather than a client per URL because
// the agent pair is resolved once at client construction and connection
// pooling only pays off when requests share transports. Concurrent use is
// safe; the client's configuration is immutable.
type Fetcher struct {
	// client executes the requests, proxied or direct.
	client *client.Client

	// concurrency is the maximum number of in-flight fetches.
	concurrency int

	// bypass forces every request onto the explicit direct path.
	bypass bool

	// userAgent is sent with every request.
	userAgent string

	// maxBodySize caps how many body bytes are read per response.
	maxBodySize int64

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithConcurrency sets the maximum number of concurrent fetches.
// Non-positive values are ignored.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithBypass routes every request through the client's explicit
// proxy-disabled path instead of the configured agents.
func WithBypass() Option {
	return func(f *Fetcher) {
		f.bypass = true
	}
}

// WithUserAgent sets the User-Agent header for all requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize caps the number of body bytes read per response.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithLogger sets a custom logger for batch processing.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher creates a Fetcher over the given client.
func NewFetcher(c *client.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      c,
		concurrency: config.DefaultBatchSize,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}

	return f
}

// Fetch retrieves all URLs concurrently and returns one result per URL in
// input order. Individual failures are recorded in their result entry; the
// returned error is non-nil only when the context is cancelled.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it is simpler and handles the concurrency bound correctly. Each
// URL gets its own goroutine, but only 'concurrency' run simultaneously.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) ([]*model.FetchResult, error) {
	f.logger.Info("starting batch fetch",
		"total_urls", len(urls),
		"concurrency", f.concurrency,
		"proxied", f.client.Proxied(),
	)

	results := make([]*model.FetchResult, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, target := range urls {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			results[i] = f.fetchOne(ctx, target)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	f.logger.Info("batch fetch finished",
		"total_urls", len(urls),
	)
	return results, nil
}

// fetchOne retrieves a single URL and packages the outcome. All failures
// end up in the result's Error field.
func (f *Fetcher) fetchOne(ctx context.Context, target string) *model.FetchResult {
	result := &model.FetchResult{
		URL:       target,
		FetchedAt: time.Now(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	var resp *http.Response
	if f.bypass {
		resp, err = f.client.DoDirect(req)
	} else {
		var outcome client.Outcome
		resp, outcome, err = f.client.DoWithOutcome(req)
		result.ViaProxy = outcome.ViaProxy
		result.FellBack = outcome.FellBack
	}
	result.Duration = time.Since(start)

	if err != nil {
		result.Error = err.Error()
		// No response was obtained, through the proxy or otherwise.
		result.ViaProxy = false
		f.logger.Warn("fetch failed",
			"url", target,
			"error", err,
		)
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.Proto = resp.Proto
	result.ContentType = resp.Header.Get("Content-Type")
	result.Headers = resp.Header.Clone()

	// Read one byte past the limit to distinguish "exactly at the limit"
	// from "truncated".
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if int64(len(body)) > f.maxBodySize {
		body = body[:f.maxBodySize]
		result.Truncated = true
	}
	result.BodySize = int64(len(body))

	return result
}
