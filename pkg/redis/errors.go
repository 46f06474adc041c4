package redis

import "errors"

var (
	// ErrEmptyConnectionURL means REDIS_URL was not provided at all.
	ErrEmptyConnectionURL = errors.New("empty redis connection URL")

	// ErrInvalidConnectionURL means REDIS_URL did not parse as a redis DSN.
	ErrInvalidConnectionURL = errors.New("invalid redis connection URL")

	// ErrNotReady is returned when the server never answered a ping within
	// the retry window. Connect refuses to hand back an unverified client;
	// a dead one would surface later as resolution cache misses and a quota
	// gate stuck failing open.
	ErrNotReady = errors.New("redis did not become ready in time")

	ErrHealthcheckFailed = errors.New("redis healthcheck failed")
)
