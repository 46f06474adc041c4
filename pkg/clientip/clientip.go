package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// proxyHeaders are consulted in priority order. CDN-injected headers win
// over generic proxy headers because the CDN sits closest to the client.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Real-IP",
}

// FromRequest resolves the originating client address of r. It walks the
// known proxy headers first, then X-Forwarded-For left to right, and falls
// back to the TCP peer address. The result is a normalized IP string, or
// "" when nothing on the request parses as an address.
func FromRequest(r *http.Request) string {
	for _, h := range proxyHeaders {
		if ip := normalize(r.Header.Get(h)); ip != "" {
			return ip
		}
	}

	// X-Forwarded-For accumulates one entry per hop; the leftmost valid
	// entry is the original client.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for part := range strings.SplitSeq(fwd, ",") {
			if ip := normalize(part); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return normalize(r.RemoteAddr)
	}
	return normalize(host)
}

// normalize parses and canonicalizes an address candidate, stripping any
// IPv6 zone and brackets. Returns "" for anything that is not an IP.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "[]")
	if s == "" {
		return ""
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return ""
	}
	return addr.WithZone("").String()
}
