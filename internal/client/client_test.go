package client

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/nao1215/relayfetch/internal/proxyagent"
)

// deadProxyAddr reserves a port, closes the listener, and returns the
// address. Connections to it are refused, simulating a dead proxy.
func deadProxyAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatalf("failed to close listener: %v", err)
	}
	return addr
}

// failingTransport always fails with a fixed error, standing in for a
// proxied transport whose failure we want to control exactly.
type failingTransport struct {
	err   error
	calls atomic.Int32
}

func (f *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls.Add(1)
	return nil, f.err
}

// TestNewDirectClient verifies construction without proxying.
func TestNewDirectClient(t *testing.T) {
	t.Parallel()

	t.Run("nil descriptor builds a direct client", func(t *testing.T) {
		t.Parallel()

		c, err := New(nil)
		if err != nil {
			t.Fatalf("New() returned unexpected error: %v", err)
		}
		if c.Proxied() {
			t.Error("expected direct client, got proxied")
		}
		if c.Agents() != nil {
			t.Error("expected nil agent pair for direct client")
		}
	})

	t.Run("disabled descriptor builds a direct client", func(t *testing.T) {
		t.Parallel()

		c, err := New(&proxyagent.Descriptor{Server: "proxy.test", Enabled: false})
		if err != nil {
			t.Fatalf("New() returned unexpected error: %v", err)
		}
		if c.Proxied() {
			t.Error("expected direct client when proxying is disabled")
		}
	})

	t.Run("enabled descriptor without server builds a direct client", func(t *testing.T) {
		t.Parallel()

		c, err := New(&proxyagent.Descriptor{Enabled: true})
		if err != nil {
			t.Fatalf("New() returned unexpected error: %v", err)
		}
		if c.Proxied() {
			t.Error("expected direct client when no server is configured")
		}
	})
}

// TestNewConstructionErrors verifies that resolution failures are fatal at
// construction rather than degrading to a direct client.
func TestNewConstructionErrors(t *testing.T) {
	t.Parallel()

	t.Run("unsupported protocol fails construction", func(t *testing.T) {
		t.Parallel()

		c, err := New(&proxyagent.Descriptor{Server: "ftp://proxy.test", Enabled: true})
		if c != nil {
			t.Error("expected nil client on unsupported protocol")
		}
		if !errors.Is(err, proxyagent.ErrUnsupportedProxyProtocol) {
			t.Fatalf("error = %v, want ErrUnsupportedProxyProtocol", err)
		}
	})

	t.Run("empty-host URL fails construction", func(t *testing.T) {
		t.Parallel()

		c, err := New(&proxyagent.Descriptor{Server: "https://", Enabled: true})
		if c != nil {
			t.Error("expected nil client on malformed URL")
		}
		if !errors.Is(err, proxyagent.ErrMalformedProxyURL) {
			t.Fatalf("error = %v, want ErrMalformedProxyURL", err)
		}
	})
}

// TestNewProxiedClient verifies that an enabled descriptor binds agents.
func TestNewProxiedClient(t *testing.T) {
	t.Parallel()

	c, err := New(&proxyagent.Descriptor{Server: "http://proxy.test:3128", Enabled: true})
	if err != nil {
		t.Fatalf("New() returned unexpected error: %v", err)
	}
	if !c.Proxied() {
		t.Fatal("expected proxied client")
	}
	pair := c.Agents()
	if pair == nil || pair.Forward == nil || pair.Tunnel == nil {
		t.Fatal("expected fully populated agent pair")
	}
}

// TestDoFallsBackOnDeadProxy verifies the core fallback path: the proxied
// attempt is refused at the proxy, the error classifies as network, and the
// same request succeeds on a fresh direct client.
func TestDoFallsBackOnDeadProxy(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "direct ok")
	}))
	defer target.Close()

	c, err := New(
		&proxyagent.Descriptor{Server: "http://" + deadProxyAddr(t), Enabled: true},
		WithTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("New() returned unexpected error: %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, target.URL, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}

	resp, outcome, err := c.DoWithOutcome(req)
	if err != nil {
		t.Fatalf("DoWithOutcome() should have fallen back to a direct request, got error: %v", err)
	}
	defer resp.Body.Close()

	if !outcome.FellBack {
		t.Error("outcome.FellBack = false, want true")
	}
	if outcome.ViaProxy {
		t.Error("outcome.ViaProxy = true, want false after fallback")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	if string(body) != "direct ok" {
		t.Errorf("body = %q, want %q", string(body), "direct ok")
	}
	if hits.Load() != 1 {
		t.Errorf("target hit %d times, want exactly 1", hits.Load())
	}
}

// TestDoWithoutFallback verifies strict proxy-only semantics: the proxied
// failure propagates and the target is never contacted directly.
func TestDoWithoutFallback(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	c, err := New(
		&proxyagent.Descriptor{Server: "http://" + deadProxyAddr(t), Enabled: true},
		WithTimeout(5*time.Second),
		WithoutFallback(),
	)
	if err != nil {
		t.Fatalf("New() returned unexpected error: %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, target.URL, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}

	resp, err := c.Do(req)
	if err == nil {
		resp.Body.Close()
		t.Fatal("Do() should have propagated the proxied failure")
	}
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Errorf("error = %v, want wrapped ECONNREFUSED", err)
	}
	if hits.Load() != 0 {
		t.Errorf("target hit %d times, want 0 (no direct fallback)", hits.Load())
	}
}

// TestDoDirect verifies the explicit bypass: agents are never consulted
// even though proxying was enabled at construction.
func TestDoDirect(t *testing.T) {
	t.Parallel()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer target.Close()

	// The proxy address is dead; only a bypassed request can succeed.
	c, err := New(
		&proxyagent.Descriptor{Server: "http://" + deadProxyAddr(t), Enabled: true},
		WithTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("New() returned unexpected error: %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, target.URL, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}

	resp, err := c.DoDirect(req)
	if err != nil {
		t.Fatalf("DoDirect() returned unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

// TestDoPropagatesUnclassifiedErrors verifies that a failure matching no
// network code and no proxy pattern propagates without any retry.
func TestDoPropagatesUnclassifiedErrors(t *testing.T) {
	t.Parallel()

	appErr := errors.New("certificate rotation in progress")
	ft := &failingTransport{err: appErr}

	pair, err := proxyagent.Resolve(proxyagent.Descriptor{Server: "http://unused.test:3128"})
	if err != nil {
		t.Fatalf("Resolve() returned unexpected error: %v", err)
	}

	c := &Client{
		httpClient: &http.Client{Transport: ft, Timeout: time.Second},
		agents:     pair,
		fallback:   true,
		timeout:    time.Second,
		logger:     slog.New(slog.DiscardHandler),
	}

	req, err := http.NewRequest(http.MethodGet, "http://198.51.100.7/resource", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}

	resp, doErr := c.Do(req)
	if doErr == nil {
		resp.Body.Close()
		t.Fatal("Do() should have propagated the unclassified error")
	}
	if !errors.Is(doErr, appErr) {
		t.Errorf("error = %v, want the original %v", doErr, appErr)
	}
	if got := ft.calls.Load(); got != 1 {
		t.Errorf("proxied transport called %d times, want exactly 1 (no retry)", got)
	}
}

// TestDoSkipsFallbackForNonReplayableBody verifies that a recoverable
// failure still propagates when the request body cannot be re-read.
func TestDoSkipsFallbackForNonReplayableBody(t *testing.T) {
	t.Parallel()

	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	ft := &failingTransport{err: refused}

	pair, err := proxyagent.Resolve(proxyagent.Descriptor{Server: "http://unused.test:3128"})
	if err != nil {
		t.Fatalf("Resolve() returned unexpected error: %v", err)
	}

	c := &Client{
		httpClient: &http.Client{Transport: ft, Timeout: time.Second},
		agents:     pair,
		fallback:   true,
		timeout:    time.Second,
		logger:     slog.New(slog.DiscardHandler),
	}

	req, err := http.NewRequest(http.MethodPost, "http://198.51.100.7/upload", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	// A streaming body with no GetBody cannot be replayed for the retry.
	req.Body = io.NopCloser(strings.NewReader("one-shot payload"))
	req.GetBody = nil
	req.ContentLength = -1

	resp, doErr := c.Do(req)
	if doErr == nil {
		resp.Body.Close()
		t.Fatal("Do() should have propagated the original failure")
	}
	if !errors.Is(doErr, syscall.ECONNREFUSED) {
		t.Errorf("error = %v, want the original wrapped ECONNREFUSED", doErr)
	}
}

// TestDoFallbackOutcomeReturnedAsIs verifies that a failing direct retry is
// surfaced unchanged with no further fallback chain.
func TestDoFallbackOutcomeReturnedAsIs(t *testing.T) {
	t.Parallel()

	// Both the proxy and the target are dead: the proxied attempt triggers
	// fallback, and the direct retry fails too. That second failure must be
	// returned as-is.
	c, err := New(
		&proxyagent.Descriptor{Server: "http://" + deadProxyAddr(t), Enabled: true},
		WithTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("New() returned unexpected error: %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, "http://"+deadProxyAddr(t)+"/", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}

	resp, doErr := c.Do(req)
	if doErr == nil {
		resp.Body.Close()
		t.Fatal("Do() should have returned the failing retry's error")
	}
	if !errors.Is(doErr, syscall.ECONNREFUSED) {
		t.Errorf("error = %v, want wrapped ECONNREFUSED from the direct retry", doErr)
	}
}
