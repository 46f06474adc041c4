package directory_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/directory"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

func newService(t *testing.T, opts ...directory.ServiceOption) (*directory.Service, tenant.Cache) {
	t.Helper()

	cache := tenant.NewMemoryCache()
	t.Cleanup(func() { _ = cache.Close() })

	hasher := directory.MustNewKeyHasher([]byte("test-app-secret"))
	svc := directory.NewService(directory.NewMemoryStore(), cache, hasher, opts...)
	return svc, cache
}

func TestServiceProvision(t *testing.T) {
	t.Parallel()

	t.Run("creates active tenant with all resolution keys", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)

		rec, rawKey, err := svc.Provision(context.Background(), directory.ProvisionInput{
			Name:         "Acme Corp",
			Subdomain:    "acme",
			CustomDomain: "signage.acme-corp.com",
		})
		require.NoError(t, err)
		assert.Equal(t, tenant.StateActive, rec.State)
		assert.True(t, strings.HasPrefix(rawKey, "tk_"))
		assert.NotContains(t, rec.APIKeyHash, rawKey, "raw credential must not be stored")

		// Every advertised key resolves to the record.
		for _, key := range rec.Keys() {
			got, err := svc.LookupByKey(context.Background(), key)
			require.NoError(t, err, key.Type)
			assert.Equal(t, rec.ID, got.ID)
		}

		// The raw credential resolves through its hash.
		hashed := tenant.Key{Type: tenant.KeyTypeAPIKeyHash, Value: svc.Hasher().Hash(rawKey)}
		got, err := svc.LookupByKey(context.Background(), hashed)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
	})

	t.Run("rejects malformed provisioning input", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)

		cases := []directory.ProvisionInput{
			{Name: "", Subdomain: "acme"},
			{Name: "Acme", Subdomain: "acme corp"},
			{Name: "Acme", Subdomain: "*"},
			{Name: "Acme", Subdomain: "acme", CustomDomain: "*.acme.com"},
		}
		for _, in := range cases {
			_, _, err := svc.Provision(context.Background(), in)
			assert.ErrorIs(t, err, directory.ErrInvalidRecord)
		}
	})

	t.Run("rejects duplicate subdomain", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)

		_, _, err := svc.Provision(context.Background(), directory.ProvisionInput{Name: "Acme", Subdomain: "acme"})
		require.NoError(t, err)

		_, _, err = svc.Provision(context.Background(), directory.ProvisionInput{Name: "Impostor", Subdomain: "acme"})
		assert.ErrorIs(t, err, directory.ErrKeyTaken)
	})
}

func TestServiceLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("suspend invalidates cache synchronously", func(t *testing.T) {
		t.Parallel()

		svc, cache := newService(t)
		resolver := tenant.NewResolver(svc,
			tenant.WithCache(cache),
			tenant.WithStateTTL(time.Hour), // only active invalidation can save us
		)

		rec, _, err := svc.Provision(context.Background(), directory.ProvisionInput{Name: "Acme", Subdomain: "acme"})
		require.NoError(t, err)

		key := tenant.Key{Type: tenant.KeyTypeSubdomain, Value: "acme"}
		res, err := resolver.ResolveKey(context.Background(), key)
		require.NoError(t, err)
		require.False(t, res.CacheHit)

		require.NoError(t, svc.Suspend(context.Background(), rec.ID))

		// Immediate re-request: rejected, not served stale from cache.
		_, err = resolver.ResolveKey(context.Background(), key)
		assert.ErrorIs(t, err, tenant.ErrInactive)
	})

	t.Run("resume restores resolution", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)
		rec, _, err := svc.Provision(context.Background(), directory.ProvisionInput{Name: "Acme", Subdomain: "acme"})
		require.NoError(t, err)

		require.NoError(t, svc.Suspend(context.Background(), rec.ID))
		require.NoError(t, svc.Resume(context.Background(), rec.ID))

		got, err := svc.LookupByKey(context.Background(), tenant.Key{Type: tenant.KeyTypeSubdomain, Value: "acme"})
		require.NoError(t, err)
		assert.Equal(t, tenant.StateActive, got.State)
	})

	t.Run("delete is soft and terminal", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)
		rec, _, err := svc.Provision(context.Background(), directory.ProvisionInput{Name: "Acme", Subdomain: "acme"})
		require.NoError(t, err)

		require.NoError(t, svc.Delete(context.Background(), rec.ID))

		// Record survives for the audit trail.
		got, err := svc.Get(context.Background(), rec.ID)
		require.NoError(t, err)
		assert.Equal(t, tenant.StateDeleted, got.State)
		assert.NotNil(t, got.DeletedAt)

		assert.ErrorIs(t, svc.Resume(context.Background(), rec.ID), directory.ErrInvalidTransition)
	})
}

func TestServiceRotateAPIKey(t *testing.T) {
	t.Parallel()

	t.Run("old key drains through grace window", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t, directory.WithRotationGrace(time.Hour))
		rec, oldRaw, err := svc.Provision(context.Background(), directory.ProvisionInput{Name: "Acme", Subdomain: "acme"})
		require.NoError(t, err)

		newRaw, err := svc.RotateAPIKey(context.Background(), rec.ID)
		require.NoError(t, err)
		require.NotEqual(t, oldRaw, newRaw)

		hash := func(raw string) tenant.Key {
			return tenant.Key{Type: tenant.KeyTypeAPIKeyHash, Value: svc.Hasher().Hash(raw)}
		}

		// Within grace both resolve; after grace only the new key would.
		_, err = svc.LookupByKey(context.Background(), hash(oldRaw))
		assert.NoError(t, err, "old key must drain, not die mid-flight")
		_, err = svc.LookupByKey(context.Background(), hash(newRaw))
		assert.NoError(t, err)
	})

	t.Run("zero grace kills the old key immediately", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t, directory.WithRotationGrace(0))
		rec, oldRaw, err := svc.Provision(context.Background(), directory.ProvisionInput{Name: "Acme", Subdomain: "acme"})
		require.NoError(t, err)

		_, err = svc.RotateAPIKey(context.Background(), rec.ID)
		require.NoError(t, err)

		old := tenant.Key{Type: tenant.KeyTypeAPIKeyHash, Value: svc.Hasher().Hash(oldRaw)}
		_, err = svc.LookupByKey(context.Background(), old)
		assert.ErrorIs(t, err, tenant.ErrNotFound)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)
		_, err := svc.RotateAPIKey(context.Background(), uuid.New())
		assert.ErrorIs(t, err, tenant.ErrNotFound)
	})
}

func TestKeyHasher(t *testing.T) {
	t.Parallel()

	t.Run("deterministic per secret", func(t *testing.T) {
		t.Parallel()

		a := directory.MustNewKeyHasher([]byte("secret-a"))
		b := directory.MustNewKeyHasher([]byte("secret-b"))

		assert.Equal(t, a.Hash("credential"), a.Hash("credential"))
		assert.NotEqual(t, a.Hash("credential"), b.Hash("credential"),
			"hashes must be bound to the application secret")
	})

	t.Run("rejects empty secret", func(t *testing.T) {
		t.Parallel()

		_, err := directory.NewKeyHasher(nil)
		assert.ErrorIs(t, err, directory.ErrKeyDerivation)
	})

	t.Run("generated keys pass signal validation", func(t *testing.T) {
		t.Parallel()

		raw, err := directory.GenerateAPIKey()
		require.NoError(t, err)
		assert.NoError(t, tenant.ValidateAPIKey(raw))
	})
}
