package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on lookup spans. Custom keys use the "tagstream.*"
// namespace.
const (
	AttrNamespace  = "tagstream.namespace"
	AttrResourceID = "tagstream.resource_id"

	AttrLookupOutcome = "tagstream.lookup.outcome"
	AttrTagCount      = "tagstream.lookup.tag_count"

	AttrErrorMessage = "error.message"
)

// SetLookupAttributes records which resource a lookup span is for. An empty
// resource ID is omitted.
func SetLookupAttributes(span trace.Span, namespace, resourceID string) {
	attrs := []attribute.KeyValue{attribute.String(AttrNamespace, namespace)}
	if resourceID != "" {
		attrs = append(attrs, attribute.String(AttrResourceID, resourceID))
	}
	span.SetAttributes(attrs...)
}

// SetLookupOutcome records how a lookup ended and how many tags it produced.
func SetLookupOutcome(span trace.Span, outcome string, tagCount int) {
	span.SetAttributes(
		attribute.String(AttrLookupOutcome, outcome),
		attribute.Int(AttrTagCount, tagCount),
	)
}

// AddEvent adds a named event to the span.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
