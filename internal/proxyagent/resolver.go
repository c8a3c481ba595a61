package proxyagent

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Descriptor is a single account's proxy configuration as supplied by the
// caller. It is treated as immutable input; Resolve never mutates it.
type Descriptor struct {
	// Server is a bare host, an IP, or a full proxy URL. A value without a
	// scheme:// prefix is assumed to be a TLS-capable proxy endpoint.
	Server string `yaml:"server"`

	// Port, when non-zero, overrides any port embedded in Server.
	Port int `yaml:"port,omitempty"`

	// Username enables proxy authentication when non-empty.
	Username string `yaml:"username,omitempty"`

	// Password accompanies Username. It may be empty; an empty password
	// with a non-empty username is a valid configuration.
	Password string `yaml:"password,omitempty"`

	// Enabled indicates whether proxying should be applied at all.
	Enabled bool `yaml:"enabled"`
}

// Resolve turns a Descriptor into an AgentPair for its proxy protocol.
//
// The descriptor's Server value is normalized first: a missing scheme
// defaults to https://, an explicit Port overrides the URL's port, and
// credentials are injected through url.URL fields so special characters
// in usernames and passwords survive serialization. The normalized URL's
// scheme then selects the agents:
//
//	http    distinct forward and CONNECT-tunnel agents
//	https   one TLS-proxy agent serving both roles
//	socks*  one SOCKS agent serving both roles
//
// Any other scheme fails with ErrUnsupportedProxyProtocol naming the
// scheme. Normalization failures fail with ErrMalformedProxyURL.
func Resolve(d Descriptor) (*AgentPair, error) {
	u, err := normalizeURL(d)
	if err != nil {
		return nil, err
	}

	switch {
	case u.Scheme == "http":
		// An HTTP proxy forwards plain requests directly but can still
		// carry HTTPS targets through a CONNECT tunnel.
		return &AgentPair{
			Forward: newHTTPForwardAgent(u),
			Tunnel:  newHTTPTunnelAgent(u),
		}, nil
	case u.Scheme == "https":
		agent := newTLSProxyAgent(u)
		return &AgentPair{Forward: agent, Tunnel: agent}, nil
	case strings.HasPrefix(u.Scheme, "socks"):
		agent, err := newSOCKSAgent(u)
		if err != nil {
			return nil, err
		}
		return &AgentPair{Forward: agent, Tunnel: agent}, nil
	default:
		return nil, fmt.Errorf("%w: %s:", ErrUnsupportedProxyProtocol, u.Scheme)
	}
}

// normalizeURL produces the canonical proxy URL for a descriptor.
// The result is built fresh per call and never cached.
func normalizeURL(d Descriptor) (*url.URL, error) {
	raw := strings.TrimSpace(d.Server)

	// A bare host or IP is assumed to be a TLS-capable proxy endpoint.
	// Defaulting to https rather than http favors secure tunneling when
	// the scheme is unspecified.
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProxyURL, err)
	}

	// url.Parse accepts "https://" (an empty Server) without complaint;
	// a proxy URL without a host is unusable, so reject it here.
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrMalformedProxyURL, raw)
	}

	// An explicitly supplied port always wins over one embedded in the URL.
	if d.Port > 0 {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(d.Port))
	}

	// Credentials go through url.URL's structured fields, never string
	// concatenation, so characters like '@' and ':' are escaped correctly.
	if d.Username != "" {
		u.User = url.UserPassword(d.Username, d.Password)
	}

	return u, nil
}
