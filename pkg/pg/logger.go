package pg

import "context"

// logger is the slice of slog the migration runner needs, so goose output
// for the directory and audit schemas lands in the application log stream
// instead of stdout.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}
