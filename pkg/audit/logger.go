package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/scope"
)

// Writer accepts a single audit record. The AsyncWriter is the production
// implementation; storages satisfy it directly for synchronous use in
// tests and small deployments.
type Writer interface {
	Store(ctx context.Context, event Event) error
}

// Logger records decisions made by the isolation layer.
type Logger interface {
	// Log records a decision. Defaults to Result allowed, Severity info;
	// override with event options.
	Log(ctx context.Context, action string, opts ...EventOption) error

	// LogError records a failed or denied operation with its error.
	// Defaults to Result denied, Severity warning.
	LogError(ctx context.Context, action string, err error, opts ...EventOption) error
}

// contextExtractor pulls a string field out of the request context.
type contextExtractor func(context.Context) (string, bool)

type logger struct {
	writer             Writer
	tenantIDExtractor  func(context.Context) (uuid.UUID, bool)
	requestIDExtractor contextExtractor
	ipExtractor        contextExtractor
}

// Option configures logger construction.
type Option func(*logger)

// WithTenantIDExtractor overrides the default scope-based tenant lookup.
func WithTenantIDExtractor(fn func(context.Context) (uuid.UUID, bool)) Option {
	return func(l *logger) {
		l.tenantIDExtractor = fn
	}
}

// WithRequestIDExtractor wires the request ID into every event.
func WithRequestIDExtractor(fn contextExtractor) Option {
	return func(l *logger) {
		l.requestIDExtractor = fn
	}
}

// WithIPExtractor wires the client IP into every event.
func WithIPExtractor(fn contextExtractor) Option {
	return func(l *logger) {
		l.ipExtractor = fn
	}
}

// NewLogger creates a logger over the given writer. The tenant ID defaults
// to the bound request scope; events outside a request (administrative
// operations, background jobs) name their tenant via WithTenant.
func NewLogger(w Writer, opts ...Option) Logger {
	if w == nil {
		panic("audit: writer cannot be nil")
	}

	l := &logger{
		writer:            w,
		tenantIDExtractor: scope.TenantID,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *logger) Log(ctx context.Context, action string, opts ...EventOption) error {
	event := l.eventFromContext(ctx)
	event.ID = uuid.New()
	event.CreatedAt = time.Now()
	event.Action = action
	event.Result = ResultAllowed
	event.Severity = SeverityInfo

	for _, opt := range opts {
		opt(&event)
	}

	if err := event.Validate(); err != nil {
		return err
	}
	return l.writer.Store(ctx, event)
}

func (l *logger) LogError(ctx context.Context, action string, err error, opts ...EventOption) error {
	event := l.eventFromContext(ctx)
	event.ID = uuid.New()
	event.CreatedAt = time.Now()
	event.Action = action
	event.Result = ResultDenied
	event.Severity = SeverityWarning
	if err != nil {
		event.Error = err.Error()
	}

	for _, opt := range opts {
		opt(&event)
	}

	if verr := event.Validate(); verr != nil {
		return verr
	}
	return l.writer.Store(ctx, event)
}

func (l *logger) eventFromContext(ctx context.Context) Event {
	event := Event{}

	if l.tenantIDExtractor != nil {
		if id, ok := l.tenantIDExtractor(ctx); ok {
			event.TenantID = id
		}
	}
	if l.requestIDExtractor != nil {
		if reqID, ok := l.requestIDExtractor(ctx); ok {
			event.RequestID = reqID
		}
	}
	if l.ipExtractor != nil {
		if ip, ok := l.ipExtractor(ctx); ok {
			event.IP = ip
		}
	}
	return event
}

// NoopLogger discards everything. Useful where audit wiring is optional.
type NoopLogger struct{}

func (NoopLogger) Log(context.Context, string, ...EventOption) error { return nil }
func (NoopLogger) LogError(context.Context, string, error, ...EventOption) error {
	return nil
}
