package client

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// errorKind is the classification of a failed request, used to decide
// whether a direct retry is worth attempting.
type errorKind int

const (
	// errorOther covers everything that is not network- or proxy-related.
	// These errors propagate immediately; retrying direct would not help.
	errorOther errorKind = iota

	// errorNetwork is a known low-level connection failure.
	errorNetwork

	// errorProxy is a failure whose message suggests proxy, tunnel, or
	// SOCKS trouble.
	errorProxy
)

// String returns a short label for log output.
func (k errorKind) String() string {
	switch k {
	case errorNetwork:
		return "network"
	case errorProxy:
		return "proxy"
	default:
		return "other"
	}
}

// recoverable reports whether the classification warrants a direct retry.
func (k errorKind) recoverable() bool {
	return k == errorNetwork || k == errorProxy
}

// proxyIndicators are case-insensitive substrings that mark an error
// message as proxy-related: tunnel establishment, SOCKS handshakes, agent
// wiring, or a gateway-style HTTP status surfaced in the message.
//
// This is a heuristic and a known precision tradeoff: an application error
// that happens to mention "proxy" is misclassified as proxy trouble and
// retried once. The substring contract is kept deliberately simple rather
// than growing a taxonomy of transport errors.
var proxyIndicators = []string{
	"proxy",
	"tunnel",
	"socks",
	"agent",
	"502",
	"504",
}

// classify maps a request error to its errorKind. Network classification
// is structural (wrapped errno and DNS errors); proxy classification falls
// back to message matching.
func classify(err error) errorKind {
	if err == nil {
		return errorOther
	}

	if isNetworkError(err) {
		return errorNetwork
	}

	msg := strings.ToLower(err.Error())
	for _, indicator := range proxyIndicators {
		if strings.Contains(msg, indicator) {
			return errorProxy
		}
	}

	return errorOther
}

// isNetworkError reports whether err carries one of the recognized
// low-level connection failures. We unwrap with errors.Is/As rather than
// matching messages because net/http wraps syscall errors in url.Error
// and net.OpError layers.
func isNetworkError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	// Host-not-found surfaces as a DNS error, not an errno.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return true
	}

	// Dial and round-trip timeouts implement net.Error even when no
	// ETIMEDOUT errno is involved.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
