package scope_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/scope"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("stamps resolution time", func(t *testing.T) {
		t.Parallel()

		before := time.Now()
		s := scope.New(uuid.New(), scope.MethodSubdomain)
		after := time.Now()

		assert.Equal(t, scope.MethodSubdomain, s.Method)
		assert.False(t, s.ResolvedAt.Before(before))
		assert.False(t, s.ResolvedAt.After(after))
	})

	t.Run("valid requires a tenant", func(t *testing.T) {
		t.Parallel()

		require.True(t, scope.New(uuid.New(), scope.MethodAPIKey).Valid())
		assert.False(t, scope.Scope{}.Valid())
		assert.False(t, scope.New(uuid.Nil, scope.MethodAPIKey).Valid())
	})
}
