// Package clientip resolves the originating client address of a request
// behind reverse proxies and CDNs.
//
// The audit trail records the client IP of every resolution attempt and
// enforcement decision, so the address has to be resolved once, early,
// and consistently. Middleware does that and parks the result in the
// request context; audit extractors and the logger read it from there.
//
// Header priority: CF-Connecting-IP, True-Client-IP, X-Real-IP, then the
// leftmost valid entry of X-Forwarded-For, then the TCP peer address.
// All candidates are parsed with net/netip; anything that does not parse
// is skipped rather than trusted.
package clientip
