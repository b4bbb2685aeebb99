package tracing

import (
	"context"

	"github.com/kroma-labs/sqlevent/event"
)

// Link identifies a span within a trace.
//
// Empty strings mean "absent": a span started outside any trace has no
// TraceID and a root span has no ParentID.
type Link struct {
	TraceID  string
	SpanID   string
	ParentID string
}

// Tracer allocates spans for instrumented operations.
//
// Start returns a context in which the new span is active. Work performed
// with that context is parented to the new span; the caller's context is
// left untouched, so the prior span becomes active again on return.
type Tracer interface {
	Start(ctx context.Context, name string) (context.Context, Span)
}

// Span is a single traced operation.
type Span interface {
	// Link returns the identifiers of the span.
	Link() Link

	// End finishes the span. fields are the final event fields and err the
	// error returned by the operation, if any.
	End(fields event.Fields, err error)
}
