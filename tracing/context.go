package tracing

import (
	"context"

	"github.com/google/uuid"

	"github.com/kroma-labs/sqlevent/event"
)

type ctxKey int

const (
	traceIDKey ctxKey = iota
	spanIDKey
)

var _ Tracer = (*ContextTracer)(nil)

// ContextTracer keeps trace and span ids in context.Context.
//
// It needs no backend: ids travel with the context and end up only in the
// emitted events. Span ids are random UUIDs.
//
// Example:
//
//	tracer := tracing.NewContextTracer()
//	ctx := tracing.StartTrace(r.Context())
//	rows, err := db.QueryContext(ctx, "SELECT 1")
type ContextTracer struct {
	newID func() string
}

// NewContextTracer creates a ContextTracer.
func NewContextTracer() *ContextTracer {
	return &ContextTracer{newID: uuid.NewString}
}

// Start implements Tracer.
func (t *ContextTracer) Start(ctx context.Context, _ string) (context.Context, Span) {
	link := Link{
		TraceID:  TraceID(ctx),
		SpanID:   t.newID(),
		ParentID: SpanID(ctx),
	}
	return context.WithValue(ctx, spanIDKey, link.SpanID), contextSpan{link: link}
}

// StartTrace returns a context carrying a new random trace id.
func StartTrace(ctx context.Context) context.Context {
	return WithTraceID(ctx, uuid.NewString())
}

// WithTraceID returns a context carrying the given trace id, e.g. one
// received from an upstream service.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithSpanID returns a context in which spanID is the active span.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, spanIDKey, spanID)
}

// TraceID returns the trace id carried by ctx, or "".
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// SpanID returns the active span id carried by ctx, or "".
func SpanID(ctx context.Context) string {
	id, _ := ctx.Value(spanIDKey).(string)
	return id
}

type contextSpan struct {
	link Link
}

func (s contextSpan) Link() Link { return s.link }

func (contextSpan) End(event.Fields, error) {}
