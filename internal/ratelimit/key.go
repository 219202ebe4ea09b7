package ratelimit

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// KeyFunc extracts a rate limit key from an HTTP request.
type KeyFunc func(r *http.Request) string

// ClientIPExtractor resolves the address a request came from. Forwarding
// headers are honored only when the direct peer is a trusted proxy, so a
// client cannot pick its own rate limit identity.
type ClientIPExtractor struct {
	trusted []netip.Prefix
}

// NewClientIPExtractor creates an extractor trusting the given proxies,
// each a CIDR or a single address. With none, only RemoteAddr is used.
func NewClientIPExtractor(trustedProxies []string) (*ClientIPExtractor, error) {
	prefixes, err := ParseTrustedProxies(trustedProxies)
	if err != nil {
		return nil, err
	}
	return &ClientIPExtractor{trusted: prefixes}, nil
}

// ParseTrustedProxies parses CIDRs and single addresses into prefixes.
func ParseTrustedProxies(proxies []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(proxies))
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(p); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(p)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// Extract returns the client IP. When the peer is trusted it walks
// X-Forwarded-For right to left and returns the first untrusted hop.
func (e *ClientIPExtractor) Extract(r *http.Request) string {
	remote := stripPort(r.RemoteAddr)
	if e == nil || len(e.trusted) == 0 || !e.isTrusted(remote) {
		return remote
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if _, err := netip.ParseAddr(hop); err != nil {
			// A malformed hop was written by something untrusted.
			return remote
		}
		if !e.isTrusted(hop) {
			return hop
		}
	}
	return remote
}

// KeyFunc returns a KeyFunc keying requests by client IP.
func (e *ClientIPExtractor) KeyFunc() KeyFunc {
	return func(r *http.Request) string {
		return "ip:" + e.Extract(r)
	}
}

func (e *ClientIPExtractor) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range e.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.Trim(addr, "[]")
	}
	return host
}
