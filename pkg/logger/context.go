package logger

import (
	"context"
	"log/slog"
)

type operationKey struct{}

// WithOperation returns a context carrying the name of the operation being executed.
// Loggers created by New add it to every record logged with that context.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFromContext returns the operation name stored by WithOperation.
func OperationFromContext(ctx context.Context) (string, bool) {
	op, ok := ctx.Value(operationKey{}).(string)
	return op, ok && op != ""
}

func operationExtractor(ctx context.Context) (slog.Attr, bool) {
	if op, ok := OperationFromContext(ctx); ok {
		return slog.String("operation", op), true
	}
	return slog.Attr{}, false
}
