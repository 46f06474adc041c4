package quota

import "errors"

// Domain errors for quota operations.
var (
	ErrQuotaExceeded    = errors.New("quota: limit exceeded")
	ErrUnknownPlan      = errors.New("quota: plan not found")
	ErrUnknownDimension = errors.New("quota: dimension not configured for plan")
	ErrNoCounter        = errors.New("quota: no counter registered for dimension")
	ErrInvalidPlan      = errors.New("quota: invalid plan configuration")
	ErrSourceFailed     = errors.New("quota: failed to load plans")
	ErrLimiterDown      = errors.New("quota: rate limiter backend unavailable")
)
