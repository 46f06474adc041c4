package tenant

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxLabelLength caps subdomain labels at the DNS limit. Longer input is
	// rejected outright to keep lookups bounded.
	MaxLabelLength = 63

	// MaxHostnameLength caps full hostnames at the DNS limit.
	MaxHostnameLength = 253

	// MinAPIKeyLength and MaxAPIKeyLength bound credential signals. Anything
	// outside is rejected before hashing.
	MinAPIKeyLength = 20
	MaxAPIKeyLength = 128
)

var (
	// labelPattern matches a single DNS label in canonical lowercase form:
	// alphanumeric edges, hyphens inside. Delimiters, wildcards, traversal
	// sequences, NUL bytes, and non-ASCII input all fail the pattern.
	labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

	// apiKeyPattern matches the bearer token charset of RFC 6750.
	apiKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~+/-]+=*$`)

	// canonicalUUIDPattern matches only the 8-4-4-4-12 form. uuid.Parse is
	// more forgiving (braces, URN prefixes); signals get no such slack.
	canonicalUUIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// ValidateSubdomain checks a single already-lowercased subdomain label.
// Returns ErrMalformedSignal for anything that is not a clean DNS label.
func ValidateSubdomain(label string) error {
	if label == "" || len(label) > MaxLabelLength {
		return fmt.Errorf("%w: subdomain length %d", ErrMalformedSignal, len(label))
	}
	if !labelPattern.MatchString(label) {
		return fmt.Errorf("%w: subdomain %q", ErrMalformedSignal, label)
	}
	return nil
}

// ValidateHostname checks a full already-lowercased hostname without port.
// Every label must be a clean DNS label and the host must have at least two
// of them. Trailing dots are rejected rather than stripped; signals are
// matched in canonical form only.
func ValidateHostname(host string) error {
	if host == "" || len(host) > MaxHostnameLength {
		return fmt.Errorf("%w: hostname length %d", ErrMalformedSignal, len(host))
	}

	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return fmt.Errorf("%w: hostname %q", ErrMalformedSignal, host)
	}
	for _, label := range labels {
		if label == "" || len(label) > MaxLabelLength || !labelPattern.MatchString(label) {
			return fmt.Errorf("%w: hostname %q", ErrMalformedSignal, host)
		}
	}
	return nil
}

// ValidateTenantID parses a tenant ID signal. Only the canonical UUID string
// form is accepted; the forgiving forms uuid.Parse knows about are treated
// as malformed.
func ValidateTenantID(s string) (uuid.UUID, error) {
	if !canonicalUUIDPattern.MatchString(s) {
		return uuid.Nil, fmt.Errorf("%w: tenant id %q", ErrMalformedSignal, s)
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: tenant id %q", ErrMalformedSignal, s)
	}
	return id, nil
}

// ValidateAPIKey checks the syntactic shape of a raw API credential before
// it is hashed. The value itself is never logged or stored.
func ValidateAPIKey(raw string) error {
	if len(raw) < MinAPIKeyLength || len(raw) > MaxAPIKeyLength {
		return fmt.Errorf("%w: api key length %d", ErrMalformedSignal, len(raw))
	}
	if !apiKeyPattern.MatchString(raw) {
		return fmt.Errorf("%w: api key", ErrMalformedSignal)
	}
	return nil
}

// CanonicalHost strips an optional port from a Host header value,
// NFKC-normalizes it, and lowercases the rest. Hostnames are
// case-insensitive, so lowering is canonicalization, not repair. Input that
// is still non-ASCII after normalization (homoglyph hostnames, punycode is
// expected to arrive pre-encoded) is malformed.
func CanonicalHost(host string) (string, error) {
	if idx := strings.LastIndex(host, ":"); idx != -1 && !strings.Contains(host[idx:], "]") {
		host = host[:idx]
	}
	host = strings.TrimSpace(host)
	host = norm.NFKC.String(host)
	for i := 0; i < len(host); i++ {
		if host[i] > 127 {
			return "", fmt.Errorf("%w: non-ascii hostname", ErrMalformedSignal)
		}
	}
	return strings.ToLower(host), nil
}
