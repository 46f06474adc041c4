package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/config"
)

type resolverConfig struct {
	BaseDomain string        `env:"TEST_BASE_DOMAIN"`
	CacheTTL   time.Duration `env:"TEST_CACHE_TTL" envDefault:"5m"`
	SkipPaths  []string      `env:"TEST_SKIP_PATHS" envSeparator:","`
}

type requiredConfig struct {
	Secret string `env:"TEST_MISSING_SECRET,required"`
}

type cachedConfig struct {
	Value string `env:"TEST_CACHED_VALUE"`
}

type firstConfig struct {
	Value string `env:"TEST_TYPE_ONE"`
}

type secondConfig struct {
	Value string `env:"TEST_TYPE_TWO"`
}

func TestLoad(t *testing.T) {
	t.Run("parses tags and applies defaults", func(t *testing.T) {
		t.Setenv("TEST_BASE_DOMAIN", "example.com")
		t.Setenv("TEST_SKIP_PATHS", "/health,/metrics")
		os.Unsetenv("TEST_CACHE_TTL")

		var cfg resolverConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "example.com", cfg.BaseDomain)
		assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
		assert.Equal(t, []string{"/health", "/metrics"}, cfg.SkipPaths)
	})

	t.Run("missing required variable fails", func(t *testing.T) {
		os.Unsetenv("TEST_MISSING_SECRET")

		var cfg requiredConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer is rejected", func(t *testing.T) {
		var cfg *resolverConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})

	t.Run("same type is parsed once and cached", func(t *testing.T) {
		t.Setenv("TEST_CACHED_VALUE", "first")

		var a cachedConfig
		require.NoError(t, config.Load(&a))

		// The environment changed, but the cached copy is served.
		t.Setenv("TEST_CACHED_VALUE", "second")

		var b cachedConfig
		require.NoError(t, config.Load(&b))
		assert.Equal(t, "first", b.Value)
	})

	t.Run("distinct types load independently", func(t *testing.T) {
		t.Setenv("TEST_TYPE_ONE", "one")
		t.Setenv("TEST_TYPE_TWO", "two")

		var a firstConfig
		var b secondConfig
		require.NoError(t, config.Load(&a))
		require.NoError(t, config.Load(&b))
		assert.Equal(t, "one", a.Value)
		assert.Equal(t, "two", b.Value)
	})
}
