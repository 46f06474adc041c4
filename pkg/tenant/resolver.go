package tenant

import (
	"fmt"
	"net/http"
	"strings"
)

// Strategy extracts one kind of resolution key from an HTTP request.
//
// A strategy either applies or it doesn't: it returns a zero Key when the
// request carries no signal of its kind, and ErrMalformedSignal when the
// signal is present but fails validation. A malformed signal aborts the
// whole resolution; strategies never repair input and never fall through
// past bad input to a lower-priority signal.
type Strategy interface {
	Extract(r *http.Request) (Key, error)
}

// Hasher turns a raw API credential into the stored hash form. Implemented
// by directory.KeyHasher; raw credentials never leave the strategy unhashed.
type Hasher interface {
	Hash(raw string) string
}

// APIKeyStrategy resolves machine-to-machine calls from a bearer credential.
// It is the highest-priority strategy.
type APIKeyStrategy struct {
	hasher Hasher
}

// NewAPIKeyStrategy creates a strategy that hashes Authorization bearer
// tokens with the given hasher and looks them up as api_key_hash keys.
func NewAPIKeyStrategy(h Hasher) *APIKeyStrategy {
	if h == nil {
		panic("tenant: api key strategy requires a hasher")
	}
	return &APIKeyStrategy{hasher: h}
}

func (s *APIKeyStrategy) Extract(r *http.Request) (Key, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return Key{}, nil
	}

	// Other authorization schemes belong to the surrounding application.
	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return Key{}, nil
	}

	if err := ValidateAPIKey(raw); err != nil {
		return Key{}, err
	}

	return Key{Type: KeyTypeAPIKeyHash, Value: s.hasher.Hash(raw)}, nil
}

// TrustFunc reports whether the tenant-identity header on a request may be
// believed. The surrounding application supplies it, typically by checking
// that the request carries an authenticated session bound to the claimed
// tenant. Without one the header strategy is inert.
type TrustFunc func(r *http.Request) bool

// DefaultTenantHeader is the header consulted by HeaderStrategy.
const DefaultTenantHeader = "X-Tenant-ID"

// HeaderStrategy resolves an explicit tenant-identity header. The header is
// only honored for callers the trust hook vouches for; an anonymous caller's
// header is ignored entirely rather than validated.
type HeaderStrategy struct {
	name  string
	trust TrustFunc
}

// NewHeaderStrategy creates a header strategy. An empty name defaults to
// DefaultTenantHeader. A nil trust hook disables the strategy.
func NewHeaderStrategy(name string, trust TrustFunc) *HeaderStrategy {
	if name == "" {
		name = DefaultTenantHeader
	}
	return &HeaderStrategy{name: name, trust: trust}
}

func (s *HeaderStrategy) Extract(r *http.Request) (Key, error) {
	if s.trust == nil || !s.trust(r) {
		return Key{}, nil
	}

	values := r.Header.Values(s.name)
	if len(values) == 0 {
		return Key{}, nil
	}
	// Repeated headers are parameter pollution, not a list to pick from.
	if len(values) > 1 {
		return Key{}, fmt.Errorf("%w: repeated %s header", ErrMalformedSignal, s.name)
	}

	id, err := ValidateTenantID(values[0])
	if err != nil {
		return Key{}, err
	}

	return Key{Type: KeyTypeID, Value: id.String()}, nil
}

// SubdomainStrategy resolves <subdomain>.<base-domain> hostnames.
type SubdomainStrategy struct {
	baseDomain string
}

// NewSubdomainStrategy creates a subdomain strategy for the given base
// domain ("example.com"). The base domain itself and its www alias carry no
// tenant signal.
func NewSubdomainStrategy(baseDomain string) *SubdomainStrategy {
	return &SubdomainStrategy{baseDomain: strings.ToLower(strings.TrimPrefix(baseDomain, "."))}
}

func (s *SubdomainStrategy) Extract(r *http.Request) (Key, error) {
	host, err := CanonicalHost(r.Host)
	if err != nil {
		return Key{}, err
	}
	if err := ValidateHostname(host); err != nil {
		return Key{}, err
	}

	if host == s.baseDomain || host == "www."+s.baseDomain {
		return Key{}, nil
	}

	label, ok := strings.CutSuffix(host, "."+s.baseDomain)
	if !ok {
		// Not under the base domain; the custom-domain strategy may apply.
		return Key{}, nil
	}
	if label == "www" {
		return Key{}, nil
	}
	// Nested labels under the base domain are not a registered shape.
	if strings.Contains(label, ".") {
		return Key{}, fmt.Errorf("%w: nested subdomain %q", ErrMalformedSignal, label)
	}
	if err := ValidateSubdomain(label); err != nil {
		return Key{}, err
	}

	return Key{Type: KeyTypeSubdomain, Value: label}, nil
}

// CustomDomainStrategy resolves hostnames registered as custom domains.
// Hostnames under the base domain are left to the subdomain strategy.
type CustomDomainStrategy struct {
	baseDomain string
}

// NewCustomDomainStrategy creates a custom-domain strategy. baseDomain marks
// the hostnames this strategy must not claim.
func NewCustomDomainStrategy(baseDomain string) *CustomDomainStrategy {
	return &CustomDomainStrategy{baseDomain: strings.ToLower(strings.TrimPrefix(baseDomain, "."))}
}

func (s *CustomDomainStrategy) Extract(r *http.Request) (Key, error) {
	host, err := CanonicalHost(r.Host)
	if err != nil {
		return Key{}, err
	}
	if err := ValidateHostname(host); err != nil {
		return Key{}, err
	}

	if host == s.baseDomain || strings.HasSuffix(host, "."+s.baseDomain) {
		return Key{}, nil
	}

	return Key{Type: KeyTypeCustomDomain, Value: host}, nil
}

// DefaultStrategies returns the fixed-priority strategy chain: API key,
// authenticated header, subdomain, custom domain. First match wins.
func DefaultStrategies(baseDomain string, hasher Hasher, trust TrustFunc) []Strategy {
	return []Strategy{
		NewAPIKeyStrategy(hasher),
		NewHeaderStrategy(DefaultTenantHeader, trust),
		NewSubdomainStrategy(baseDomain),
		NewCustomDomainStrategy(baseDomain),
	}
}
