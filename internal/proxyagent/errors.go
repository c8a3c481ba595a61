package proxyagent

import "errors"

// Proxy resolution errors.
// Both surface at client construction time and indicate a configuration
// problem the caller must fix; neither is recovered automatically.
//
// Design decision: We use package-level sentinel errors wrapped with
// fmt.Errorf("%w: ...") at the point of failure. Callers match the class
// of failure with errors.Is() while the wrapped message carries the
// offending scheme or parse detail for humans.
var (
	// ErrUnsupportedProxyProtocol is returned when the proxy URL scheme is
	// outside the supported set (http, https, and the socks* family).
	ErrUnsupportedProxyProtocol = errors.New("unsupported proxy protocol")

	// ErrMalformedProxyURL is returned when the normalized proxy server
	// value cannot be parsed as a URL, or parses without a host.
	ErrMalformedProxyURL = errors.New("malformed proxy URL")
)
