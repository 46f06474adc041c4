package mongo

import "errors"

var (
	// ErrNotReady is returned when no connection could be verified within
	// the retry window.
	ErrNotReady = errors.New("mongo did not become ready in time")

	ErrHealthcheckFailed = errors.New("mongo healthcheck failed")
)
