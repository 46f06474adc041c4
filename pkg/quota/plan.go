package quota

import (
	"fmt"
	"maps"
)

// Dimension is a countable tenant quota dimension.
type Dimension string

// Quota dimensions.
const (
	// DimensionRequests is the per-hour request ceiling, enforced by the
	// rate limiter rather than a usage counter.
	DimensionRequests Dimension = "requests"

	DimensionStorageBytes Dimension = "storage_bytes"
	DimensionActiveUsers  Dimension = "active_users"
)

// Unlimited marks a dimension with no ceiling.
const Unlimited int64 = -1

// Plan describes the quota ceilings attached to a subscription tier.
type Plan struct {
	ID     string              `yaml:"id"`
	Name   string              `yaml:"name"`
	Limits map[Dimension]int64 `yaml:"limits"`

	// RequestBurst is the short-term burst allowance on top of the hourly
	// request rate. Zero means no burst beyond the steady rate.
	RequestBurst int `yaml:"request_burst"`
}

// Limit returns the ceiling for a dimension and whether the plan defines it.
func (p Plan) Limit(dim Dimension) (int64, bool) {
	v, ok := p.Limits[dim]
	return v, ok
}

// clone returns an independent copy so callers cannot mutate shared state.
func (p Plan) clone() Plan {
	p.Limits = maps.Clone(p.Limits)
	return p
}

func validatePlans(plans map[string]Plan) error {
	for id, plan := range plans {
		if id == "" || plan.ID == "" {
			return fmt.Errorf("%w: plan with empty id", ErrInvalidPlan)
		}
		if plan.ID != id {
			return fmt.Errorf("%w: plan %q keyed as %q", ErrInvalidPlan, plan.ID, id)
		}
		for dim, limit := range plan.Limits {
			if limit < Unlimited {
				return fmt.Errorf("%w: plan %q dimension %q has negative limit %d", ErrInvalidPlan, id, dim, limit)
			}
		}
		if plan.RequestBurst < 0 {
			return fmt.Errorf("%w: plan %q has negative burst", ErrInvalidPlan, id)
		}
	}
	return nil
}
