// Package realip resolves the client address of a request. X-Forwarded-For
// is only read when the direct peer is a configured trusted proxy.
package realip

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const headerForwardedFor = "X-Forwarded-For"

// Resolver picks the client address from the peer and forwarding headers.
// A nil or empty Resolver always returns the peer.
type Resolver struct {
	trusted []netip.Prefix
}

// New parses proxies, each an IP or CIDR. On error the returned Resolver
// trusts no proxy.
func New(proxies []string) (*Resolver, error) {
	r := &Resolver{}
	for _, p := range proxies {
		prefix, err := parse(p)
		if err != nil {
			return &Resolver{}, fmt.Errorf("trusted proxy %q: %w", p, err)
		}
		r.trusted = append(r.trusted, prefix)
	}
	return r, nil
}

func parse(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func (r *Resolver) trusts(addr netip.Addr) bool {
	if r == nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range r.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the peer host of remoteAddr unless the peer is trusted.
// Behind a trusted peer the forwarded hops are walked right to left and the
// first untrusted hop wins.
func (r *Resolver) ClientIP(remoteAddr string, forwarded []string) string {
	peer := host(remoteAddr)
	last, err := netip.ParseAddr(peer)
	if err != nil || !r.trusts(last) {
		return peer
	}

	var hops []string
	for _, h := range forwarded {
		hops = append(hops, strings.Split(h, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		if !r.trusts(hop) {
			return hop.Unmap().String()
		}
		last = hop
	}
	return last.Unmap().String()
}

// FromRequest resolves the client address of req.
func (r *Resolver) FromRequest(req *http.Request) string {
	return r.ClientIP(req.RemoteAddr, req.Header.Values(headerForwardedFor))
}

func host(remoteAddr string) string {
	h, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return h
}
