// Package config loads typed configuration structs from the environment.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: the
// default .env file is loaded once per process, then struct fields are
// populated from `env` tags. Every configuration type is parsed at most
// once and cached, so the resolver, the quota gate and the admin surface
// all see the same values no matter which one loads first.
//
//	type Config struct {
//		BaseDomain string        `env:"TENANT_BASE_DOMAIN,required"`
//		CacheTTL   time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// MustLoad panics instead of returning an error, for configuration the
// process cannot run without.
package config
