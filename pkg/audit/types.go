package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of an audited decision.
type Result string

const (
	ResultAllowed Result = "allowed"
	ResultDenied  Result = "denied"
	ResultFault   Result = "fault"
)

// Severity grades how urgently an event needs operator attention.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Actions recorded by the isolation layer.
const (
	ActionResolve   = "tenant.resolve"
	ActionScopeBind = "scope.bind"
	ActionActivate  = "enforcer.activate"
	ActionFault     = "enforcer.fault"
	ActionQuota     = "quota.check"
	ActionProvision = "directory.provision"
	ActionSuspend   = "directory.suspend"
	ActionResume    = "directory.resume"
	ActionRotateKey = "directory.rotate_key"
	ActionDelete    = "directory.delete"
)

// Event is a single append-only audit record. Events are never updated or
// deleted through this package; retention is governed by the storage
// backend's own policy.
type Event struct {
	ID         uuid.UUID      `json:"id" bson:"_id"`
	TenantID   uuid.UUID      `json:"tenant_id" bson:"tenant_id"`
	Action     string         `json:"action" bson:"action"`
	Method     string         `json:"method,omitempty" bson:"method,omitempty"`
	Resource   string         `json:"resource,omitempty" bson:"resource,omitempty"`
	ResourceID string         `json:"resource_id,omitempty" bson:"resource_id,omitempty"`
	Result     Result         `json:"result" bson:"result"`
	Severity   Severity       `json:"severity" bson:"severity"`
	Reason     string         `json:"reason,omitempty" bson:"reason,omitempty"`
	RequestID  string         `json:"request_id,omitempty" bson:"request_id,omitempty"`
	IP         string         `json:"ip,omitempty" bson:"ip,omitempty"`
	Error      string         `json:"error,omitempty" bson:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
}

// Validate checks the fields every record must carry.
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidEvent)
	}
	if e.Result == "" {
		return fmt.Errorf("%w: result is required", ErrInvalidEvent)
	}
	return nil
}
