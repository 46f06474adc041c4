package audit

import "github.com/google/uuid"

// EventOption applies configuration to an Event during creation.
type EventOption func(*Event)

// WithTenant sets the tenant the event concerns, overriding whatever the
// context extractor found.
func WithTenant(id uuid.UUID) EventOption {
	return func(e *Event) {
		e.TenantID = id
	}
}

// WithResource sets the resource type and ID.
func WithResource(resource, id string) EventOption {
	return func(e *Event) {
		e.Resource = resource
		e.ResourceID = id
	}
}

// WithMethod records the resolution method behind the decision.
func WithMethod(method string) EventOption {
	return func(e *Event) {
		e.Method = method
	}
}

// WithResult sets the decision outcome.
func WithResult(result Result) EventOption {
	return func(e *Event) {
		e.Result = result
	}
}

// WithSeverity overrides the default severity.
func WithSeverity(sev Severity) EventOption {
	return func(e *Event) {
		e.Severity = sev
	}
}

// WithReason records why a request was denied or a fault raised.
func WithReason(reason string) EventOption {
	return func(e *Event) {
		e.Reason = reason
	}
}

// WithMetadata adds one metadata entry to the event.
func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}
