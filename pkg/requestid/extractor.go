package requestid

import (
	"context"
	"log/slog"
)

// LoggerExtractor stamps request_id on every log line written under a
// context that passed through the middleware, matching the RequestID field
// audit events carry.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if requestID := FromContext(ctx); requestID != "" {
			return slog.String("request_id", requestID), true
		}
		return slog.Attr{}, false
	}
}
