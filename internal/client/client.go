package client

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/relayfetch/internal/proxyagent"
)

// DefaultTimeout bounds each request when the caller does not supply one.
// Proxied connections add an intermediary hop, so this is more generous
// than a typical direct-client default.
const DefaultTimeout = 60 * time.Second

// errBodyNotReplayable marks a failed request whose body cannot be re-read
// for the fallback retry. The original request error takes precedence; this
// error never leaves the package.
var errBodyNotReplayable = errors.New("request body cannot be replayed")

// Client executes HTTP requests through a configured proxy and falls back
// to a direct connection when the proxied attempt fails for a recoverable
// reason.
//
// Design decision: The client owns one http.Client configured at
// construction rather than building transports per request because:
//  1. Agent resolution is pure and needs to happen only once
//  2. Connection pooling works across requests on the shared transports
//  3. Construction is the single place configuration errors can surface
type Client struct {
	// httpClient is the owned client, proxied when agents are bound.
	httpClient *http.Client

	// agents is the resolved pair, or nil when proxying is disabled.
	// Immutable after construction; concurrent requests share it read-only.
	agents *proxyagent.AgentPair

	// fallback enables the classified direct retry. Defaults to true.
	fallback bool

	// timeout applies to the owned client and every bypass client.
	timeout time.Duration

	// logger records fallback decisions at debug level.
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout for both the proxied client and
// any bypass client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithoutFallback disables the classified direct retry, giving the caller
// strict proxy-only semantics: a proxied failure propagates instead of
// silently going direct.
func WithoutFallback() Option {
	return func(c *Client) {
		c.fallback = false
	}
}

// WithLogger sets a custom logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client for the given proxy descriptor.
//
// When the descriptor is nil, disabled, or has no server, the client sends
// requests directly. Otherwise the descriptor is resolved once into an
// agent pair; resolution failure (unsupported protocol, malformed URL) is
// fatal here rather than silently degrading to a direct client, because it
// indicates a configuration bug the caller must fix.
//
// The owned client never consults proxy environment variables: transports
// are built with an explicit Proxy policy so HTTP_PROXY and friends cannot
// compete with the resolved agents.
func New(d *proxyagent.Descriptor, opts ...Option) (*Client, error) {
	c := &Client{
		fallback: true,
		timeout:  DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	var transport http.RoundTripper = newDirectTransport()
	if d != nil && d.Enabled && d.Server != "" {
		pair, err := proxyagent.Resolve(*d)
		if err != nil {
			return nil, err
		}
		c.agents = pair
		transport = &schemeRouter{pair: pair}
	}

	c.httpClient = &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
	}

	return c, nil
}

// Proxied reports whether the client has agents bound.
func (c *Client) Proxied() bool {
	return c.agents != nil
}

// Agents returns the resolved agent pair, or nil for a direct client.
// The pair is read-only; callers must not rebind its agents.
func (c *Client) Agents() *proxyagent.AgentPair {
	return c.agents
}

// Outcome describes how a request was ultimately served, for callers that
// record or report the routing decision.
type Outcome struct {
	// ViaProxy is true when the returned response came through the
	// configured agents.
	ViaProxy bool

	// FellBack is true when the proxied attempt failed and the returned
	// outcome, success or failure, came from the direct retry.
	FellBack bool
}

// Do executes the request on the owned (possibly proxied) client.
//
// On failure the error is classified. A network- or proxy-classified error
// triggers exactly one retry of the same request on a fresh direct client,
// and that retry's outcome is returned as-is, success or failure. Errors
// classified as unrelated to the proxy propagate unchanged, as does the
// original error when the request body cannot be replayed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, _, err := c.DoWithOutcome(req)
	return resp, err
}

// DoWithOutcome is Do plus a report of how the request was served.
func (c *Client) DoWithOutcome(req *http.Request) (*http.Response, Outcome, error) {
	outcome := Outcome{ViaProxy: c.agents != nil}

	resp, err := c.httpClient.Do(req)
	if err == nil {
		return resp, outcome, nil
	}

	// A direct client has nothing to fall back to, and a caller that
	// disabled fallback gets strict propagation.
	if !c.fallback || c.agents == nil {
		return nil, outcome, err
	}

	kind := classify(err)
	if !kind.recoverable() {
		return nil, outcome, err
	}

	retry, rerr := replayableClone(req)
	if rerr != nil {
		// The original failure is the more useful error.
		c.logger.Debug("skipping direct fallback",
			"url", req.URL.Redacted(),
			"reason", rerr,
		)
		return nil, outcome, err
	}

	c.logger.Debug("proxied request failed, retrying direct",
		"url", req.URL.Redacted(),
		"classification", kind.String(),
		"error", err,
	)

	outcome = Outcome{ViaProxy: false, FellBack: true}
	resp, err = c.newBypassClient().Do(retry)
	return resp, outcome, err
}

// DoDirect executes the request immediately on a fresh, proxy-disabled
// client. The configured agents are never consulted and no classification
// is applied. This is the explicit escape hatch for callers that know the
// proxy is unusable for a particular request.
func (c *Client) DoDirect(req *http.Request) (*http.Response, error) {
	return c.newBypassClient().Do(req)
}

// newBypassClient builds a short-lived direct client. One instance per
// call; it holds no state worth pooling and is discarded with the request.
func (c *Client) newBypassClient() *http.Client {
	return &http.Client{
		Transport: newDirectTransport(),
		Timeout:   c.timeout,
	}
}

// newDirectTransport builds a transport that goes straight to the target.
// Proxy is explicitly nil rather than http.ProxyFromEnvironment: built-in
// proxy detection must not reinterpret requests this package already
// decided to send directly.
func newDirectTransport() *http.Transport {
	return &http.Transport{
		Proxy:               nil,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}
}

// replayableClone clones req for the fallback retry, rewinding the body
// via GetBody. Requests without a body always clone; a body without
// GetBody cannot be re-read and makes the request non-replayable.
func replayableClone(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errBodyNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

// schemeRouter dispatches each request to the agent matching its target
// scheme: Forward for plain HTTP, Tunnel for HTTPS. The pair is resolved
// once and never mutated, so routing needs no synchronization.
type schemeRouter struct {
	pair *proxyagent.AgentPair
}

// RoundTrip implements http.RoundTripper.
func (r *schemeRouter) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "https" {
		return r.pair.Tunnel.RoundTrip(req)
	}
	return r.pair.Forward.RoundTrip(req)
}
