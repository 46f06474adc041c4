package scope_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/scope"
)

func TestBind(t *testing.T) {
	t.Parallel()

	t.Run("binds scope to context", func(t *testing.T) {
		t.Parallel()

		s := scope.New(uuid.New(), scope.MethodAPIKey)
		ctx, err := scope.Bind(context.Background(), s)
		require.NoError(t, err)

		got, ok := scope.FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, s.TenantID, got.TenantID)
		assert.Equal(t, scope.MethodAPIKey, got.Method)
	})

	t.Run("rejects scope without tenant", func(t *testing.T) {
		t.Parallel()

		_, err := scope.Bind(context.Background(), scope.Scope{})
		require.ErrorIs(t, err, scope.ErrInvalidScope)
	})

	t.Run("rebinding same tenant is a no-op", func(t *testing.T) {
		t.Parallel()

		tenantID := uuid.New()
		ctx, err := scope.Bind(context.Background(), scope.New(tenantID, scope.MethodSubdomain))
		require.NoError(t, err)

		again, err := scope.Bind(ctx, scope.New(tenantID, scope.MethodHeader))
		require.NoError(t, err)

		// The original scope survives, including its method.
		got, ok := scope.FromContext(again)
		require.True(t, ok)
		assert.Equal(t, tenantID, got.TenantID)
		assert.Equal(t, scope.MethodSubdomain, got.Method)
	})

	t.Run("rejects rebinding to another tenant", func(t *testing.T) {
		t.Parallel()

		ctx, err := scope.Bind(context.Background(), scope.New(uuid.New(), scope.MethodSubdomain))
		require.NoError(t, err)

		_, err = scope.Bind(ctx, scope.New(uuid.New(), scope.MethodHeader))
		require.ErrorIs(t, err, scope.ErrScopeConflict)

		// The original scope is untouched.
		_, ok := scope.FromContext(ctx)
		assert.True(t, ok)
	})
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("returns false on unscoped context", func(t *testing.T) {
		t.Parallel()

		_, ok := scope.FromContext(context.Background())
		assert.False(t, ok)
	})

	t.Run("tenant id helper", func(t *testing.T) {
		t.Parallel()

		tenantID := uuid.New()
		ctx, err := scope.Bind(context.Background(), scope.New(tenantID, scope.MethodAPIKey))
		require.NoError(t, err)

		got, ok := scope.TenantID(ctx)
		require.True(t, ok)
		assert.Equal(t, tenantID, got)

		_, ok = scope.TenantID(context.Background())
		assert.False(t, ok)
	})

	t.Run("must panics on unscoped context", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			scope.MustFromContext(context.Background())
		})
	})

	t.Run("must returns bound scope", func(t *testing.T) {
		t.Parallel()

		tenantID := uuid.New()
		ctx, err := scope.Bind(context.Background(), scope.New(tenantID, scope.MethodSystem))
		require.NoError(t, err)

		assert.Equal(t, tenantID, scope.MustFromContext(ctx).TenantID)
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	t.Run("extracts tenant id", func(t *testing.T) {
		t.Parallel()

		tenantID := uuid.New()
		ctx, err := scope.Bind(context.Background(), scope.New(tenantID, scope.MethodAPIKey))
		require.NoError(t, err)

		attr, ok := scope.LoggerExtractor()(ctx)
		require.True(t, ok)
		assert.Equal(t, "tenant_id", attr.Key)
		assert.Equal(t, tenantID.String(), attr.Value.String())
	})

	t.Run("skips unscoped context", func(t *testing.T) {
		t.Parallel()

		_, ok := scope.LoggerExtractor()(context.Background())
		assert.False(t, ok)
	})
}
