// Package proxyagent turns a loosely-specified proxy descriptor into the
// transport agents needed to route HTTP traffic through that proxy.
//
// A Descriptor may carry a bare host, a full URL, a separate port, and
// optional credentials. Resolve normalizes it into a canonical proxy URL
// and builds an AgentPair: one agent for plain-HTTP targets and one for
// HTTPS targets. Which agents are built depends on the proxy protocol:
//   - http://  proxies forward plain requests and tunnel HTTPS via CONNECT
//   - https:// proxies (TLS to the proxy itself) serve both roles
//   - socks*   proxies are transport-agnostic, one agent serves both roles
//
// Design decision: agents are plain http.RoundTripper values rather than a
// custom transport abstraction because:
//  1. net/http already treats a RoundTripper as the pluggable transport unit
//  2. The resolved agents bind directly to an http.Client without adapters
//  3. Callers can compose them with their own middleware if needed
//
// The package is a leaf: it depends only on URL parsing, net/http transport
// construction, and the golang.org/x/net/proxy SOCKS dialer.
package proxyagent
