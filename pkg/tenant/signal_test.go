package tenant_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

func TestValidateSubdomain(t *testing.T) {
	t.Parallel()

	t.Run("accepts clean labels", func(t *testing.T) {
		t.Parallel()

		for _, label := range []string{"acme", "a", "acme-corp", "t3nant", "0start"} {
			assert.NoError(t, tenant.ValidateSubdomain(label), label)
		}
	})

	t.Run("rejects malformed labels", func(t *testing.T) {
		t.Parallel()

		cases := map[string]string{
			"empty":             "",
			"wildcard":          "*",
			"embedded wildcard": "ac*me",
			"comma list":        "acme,beta",
			"semicolon list":    "acme;beta",
			"whitespace":        "acme corp",
			"traversal":         "..",
			"slash":             "acme/..",
			"dot":               "acme.beta",
			"leading hyphen":    "-acme",
			"trailing hyphen":   "acme-",
			"uppercase":         "Acme",
			"nul byte":          "acme\x00",
			"non-ascii":         "acmé",
			"overlong":          strings.Repeat("a", 64),
		}
		for name, label := range cases {
			err := tenant.ValidateSubdomain(label)
			require.Error(t, err, name)
			assert.ErrorIs(t, err, tenant.ErrMalformedSignal, name)
		}
	})
}

func TestValidateHostname(t *testing.T) {
	t.Parallel()

	t.Run("accepts canonical hostnames", func(t *testing.T) {
		t.Parallel()

		for _, host := range []string{"acme.example.com", "example.com", "a.b.c.example.io"} {
			assert.NoError(t, tenant.ValidateHostname(host), host)
		}
	})

	t.Run("rejects malformed hostnames", func(t *testing.T) {
		t.Parallel()

		cases := []string{
			"",
			"localhost",
			"*.example.com",
			"example..com",
			".example.com",
			"example.com.",
			"exa mple.com",
			"example.com/path",
			strings.Repeat("a", 254),
		}
		for _, host := range cases {
			err := tenant.ValidateHostname(host)
			require.Error(t, err, host)
			assert.ErrorIs(t, err, tenant.ErrMalformedSignal, host)
		}
	})
}

func TestValidateTenantID(t *testing.T) {
	t.Parallel()

	t.Run("accepts canonical uuid", func(t *testing.T) {
		t.Parallel()

		id, err := tenant.ValidateTenantID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
		require.NoError(t, err)
		assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", id.String())
	})

	t.Run("rejects forgiving uuid forms", func(t *testing.T) {
		t.Parallel()

		// uuid.Parse accepts these; signals must not.
		cases := []string{
			"{6ba7b810-9dad-11d1-80b4-00c04fd430c8}",
			"urn:uuid:6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			"6ba7b8109dad11d180b400c04fd430c8",
			"",
			"not-a-uuid",
			"00000000-0000-0000-0000-000000000000",
			"6ba7b810-9dad-11d1-80b4-00c04fd430c8,6ba7b810-9dad-11d1-80b4-00c04fd430c9",
		}
		for _, s := range cases {
			_, err := tenant.ValidateTenantID(s)
			require.Error(t, err, s)
			assert.ErrorIs(t, err, tenant.ErrMalformedSignal, s)
		}
	})
}

func TestValidateAPIKey(t *testing.T) {
	t.Parallel()

	t.Run("accepts bearer charset", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, tenant.ValidateAPIKey("tk_live_0123456789abcdefghij"))
		assert.NoError(t, tenant.ValidateAPIKey(strings.Repeat("A", 128)))
	})

	t.Run("rejects out-of-shape credentials", func(t *testing.T) {
		t.Parallel()

		cases := []string{
			"",
			"short",
			strings.Repeat("A", 129),
			"tk live 0123456789abcdefghij",
			"tk,live,0123456789abcdefghij",
			"tk\x000123456789abcdefghijkl",
		}
		for _, raw := range cases {
			err := tenant.ValidateAPIKey(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, tenant.ErrMalformedSignal)
		}
	})
}

func TestCanonicalHost(t *testing.T) {
	t.Parallel()

	t.Run("strips port and lowercases", func(t *testing.T) {
		t.Parallel()

		host, err := tenant.CanonicalHost("Acme.Example.COM:8443")
		require.NoError(t, err)
		assert.Equal(t, "acme.example.com", host)
	})

	t.Run("rejects non-ascii after normalization", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.CanonicalHost("acmé.example.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, tenant.ErrMalformedSignal)
	})

	t.Run("normalizes compatibility forms", func(t *testing.T) {
		t.Parallel()

		// Fullwidth characters fold to ASCII under NFKC.
		host, err := tenant.CanonicalHost("ａcme.example.com")
		require.NoError(t, err)
		assert.Equal(t, "acme.example.com", host)
	})
}
