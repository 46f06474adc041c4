package alert

import (
	"context"
	"log/slog"
)

// Notifier delivers operational escalations: enforcement faults, audit
// outages, anything an operator must see. Notifications are best-effort
// and must never block or fail the request that triggered them.
type Notifier interface {
	Critical(ctx context.Context, subject string, kv ...any)
}

// SlogNotifier writes escalations to the structured log at error level.
// The baseline notifier: every deployment has at least this one.
type SlogNotifier struct {
	log *slog.Logger
}

// NewSlogNotifier creates a notifier over the given logger.
func NewSlogNotifier(log *slog.Logger) *SlogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &SlogNotifier{log: log}
}

func (n *SlogNotifier) Critical(ctx context.Context, subject string, kv ...any) {
	args := append([]any{slog.String("alert", subject)}, kv...)
	n.log.ErrorContext(ctx, "critical alert", args...)
}

// Multi fans one escalation out to several notifiers.
type Multi []Notifier

func (m Multi) Critical(ctx context.Context, subject string, kv ...any) {
	for _, n := range m {
		n.Critical(ctx, subject, kv...)
	}
}
