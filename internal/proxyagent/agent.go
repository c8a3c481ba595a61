package proxyagent

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// defaultSOCKSPort is used when a socks* proxy URL carries no explicit port.
// 1080 is the IANA-assigned SOCKS port.
const defaultSOCKSPort = "1080"

// Kind identifies the role a resolved agent plays.
type Kind int

const (
	// KindHTTPForward forwards plain-HTTP requests through an HTTP proxy
	// using absolute-URI request lines.
	KindHTTPForward Kind = iota

	// KindHTTPTunnel carries HTTPS traffic through an HTTP proxy via a
	// CONNECT tunnel.
	KindHTTPTunnel

	// KindTLSProxy talks TLS to the proxy itself. Rare but valid; the same
	// agent serves both plain and HTTPS targets.
	KindTLSProxy

	// KindSOCKS dials through a SOCKS proxy. SOCKS operates below the
	// application layer, so one agent serves both target schemes.
	KindSOCKS
)

// String returns a human-readable name for the agent kind.
func (k Kind) String() string {
	switch k {
	case KindHTTPForward:
		return "http forward"
	case KindHTTPTunnel:
		return "http connect tunnel"
	case KindTLSProxy:
		return "https proxy"
	case KindSOCKS:
		return "socks"
	default:
		return "unknown"
	}
}

// Agent is an opaque transport handle that routes requests through a proxy.
// It is a http.RoundTripper plus enough metadata for diagnostics; callers
// must not depend on the concrete type behind it.
type Agent interface {
	http.RoundTripper

	// Kind reports the agent's role.
	Kind() Kind

	// ProxyURL returns the canonical proxy URL the agent routes through.
	// The URL may embed credentials; mask it before logging or display.
	ProxyURL() string
}

// AgentPair holds the two agents a client binds at construction: Forward
// for plain-HTTP targets and Tunnel for HTTPS targets. A pair is either
// fully populated or not constructed at all; for https and socks proxies
// both fields reference the same agent instance.
type AgentPair struct {
	// Forward handles requests to http:// targets.
	Forward Agent

	// Tunnel handles requests to https:// targets.
	Tunnel Agent
}

// ProxyURL returns the canonical proxy URL shared by both agents.
func (p *AgentPair) ProxyURL() string {
	return p.Forward.ProxyURL()
}

// transportAgent is the single concrete Agent implementation. The kind and
// canonical URL vary; the routing behavior lives in the wrapped transport.
type transportAgent struct {
	kind     Kind
	proxyURL string
	rt       http.RoundTripper
}

// RoundTrip implements http.RoundTripper by delegating to the wrapped
// transport.
func (a *transportAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	return a.rt.RoundTrip(req)
}

// Kind reports the agent's role.
func (a *transportAgent) Kind() Kind { return a.kind }

// ProxyURL returns the canonical proxy URL.
func (a *transportAgent) ProxyURL() string { return a.proxyURL }

// newProxyTransport builds an http.Transport routed through the given proxy
// URL. Connection pool limits are kept small: every connection here crosses
// an intermediary, and idle proxied connections are less reusable than
// direct ones.
func newProxyTransport(u *url.URL) *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyURL(u),
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}
}

// newHTTPForwardAgent builds the agent for plain-HTTP targets behind an
// http:// proxy.
func newHTTPForwardAgent(u *url.URL) Agent {
	return &transportAgent{
		kind:     KindHTTPForward,
		proxyURL: u.String(),
		rt:       newProxyTransport(u),
	}
}

// newHTTPTunnelAgent builds the agent for HTTPS targets behind an http://
// proxy. net/http issues the CONNECT for https targets on its own; the
// distinct instance keeps plain and tunneled connection pools separate,
// matching how the two traffic classes behave at the proxy.
func newHTTPTunnelAgent(u *url.URL) Agent {
	return &transportAgent{
		kind:     KindHTTPTunnel,
		proxyURL: u.String(),
		rt:       newProxyTransport(u),
	}
}

// newTLSProxyAgent builds the single agent for a proxy that itself requires
// TLS. One instance serves both target schemes.
func newTLSProxyAgent(u *url.URL) Agent {
	return &transportAgent{
		kind:     KindTLSProxy,
		proxyURL: u.String(),
		rt:       newProxyTransport(u),
	}
}

// newSOCKSAgent builds the single agent for a socks* proxy. Credentials
// embedded in the URL become SOCKS authentication; a missing port defaults
// to 1080.
//
// Design decision: We construct the dialer with proxy.SOCKS5 rather than
// proxy.FromURL so the socks4/socks4a/socks5/socks5h scheme variants all
// resolve against the same endpoint instead of failing on unregistered
// scheme names. Hostname resolution happens proxy-side, which is what the
// socks5h variant asks for and a safe default for the rest.
func newSOCKSAgent(u *url.URL) (Agent, error) {
	var auth *proxy.Auth
	if u.User != nil {
		password, _ := u.User.Password()
		auth = &proxy.Auth{
			User:     u.User.Username(),
			Password: password,
		}
	}

	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), defaultSOCKSPort)
	}

	dialer, err := proxy.SOCKS5("tcp", host, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProxyURL, err)
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			// x/net's SOCKS5 dialer implements ContextDialer; the type
			// assertion keeps us honest if that ever changes.
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}

	return &transportAgent{
		kind:     KindSOCKS,
		proxyURL: u.String(),
		rt:       transport,
	}, nil
}
