package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// LineKey is the context key for the input line number.
	LineKey contextKey = "line"

	// NamespaceKey is the context key for the metric namespace.
	NamespaceKey contextKey = "namespace"

	// ResourceIDKey is the context key for the resource identifier.
	ResourceIDKey contextKey = "resource_id"

	// WorkerKey is the context key for the enrichment worker number.
	WorkerKey contextKey = "worker"
)

// WithLine adds an input line number to the context.
func WithLine(ctx context.Context, line int) context.Context {
	return context.WithValue(ctx, LineKey, line)
}

// GetLine retrieves the input line number from the context, or 0.
func GetLine(ctx context.Context) int {
	if line, ok := ctx.Value(LineKey).(int); ok {
		return line
	}
	return 0
}

// WithNamespace adds a metric namespace to the context.
func WithNamespace(ctx context.Context, namespace string) context.Context {
	return context.WithValue(ctx, NamespaceKey, namespace)
}

// GetNamespace retrieves the metric namespace from the context.
func GetNamespace(ctx context.Context) string {
	if ns, ok := ctx.Value(NamespaceKey).(string); ok {
		return ns
	}
	return ""
}

// WithResourceID adds a resource identifier to the context.
func WithResourceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ResourceIDKey, id)
}

// GetResourceID retrieves the resource identifier from the context.
func GetResourceID(ctx context.Context) string {
	if id, ok := ctx.Value(ResourceIDKey).(string); ok {
		return id
	}
	return ""
}

// WithWorker adds a worker number to the context.
func WithWorker(ctx context.Context, worker int) context.Context {
	return context.WithValue(ctx, WorkerKey, worker)
}

// GetWorker retrieves the worker number from the context, or -1.
func GetWorker(ctx context.Context) int {
	if w, ok := ctx.Value(WorkerKey).(int); ok {
		return w
	}
	return -1
}

// contextAttrs extracts the log fields carried by ctx, including the ids of
// an active trace span.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr

	if line := GetLine(ctx); line > 0 {
		attrs = append(attrs, slog.Int("line", line))
	}
	if ns := GetNamespace(ctx); ns != "" {
		attrs = append(attrs, slog.String("namespace", ns))
	}
	if id := GetResourceID(ctx); id != "" {
		attrs = append(attrs, slog.String("resource_id", id))
	}
	if w := GetWorker(ctx); w >= 0 {
		attrs = append(attrs, slog.Int("worker", w))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return attrs
}
