package tracing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kroma-labs/sqlevent/event"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/sqlevent"

	// traceFieldPrefix marks link fields, which the span already carries natively.
	traceFieldPrefix = "trace."
)

var _ Tracer = (*OTelTracer)(nil)

// OTelTracer adapts an OpenTelemetry TracerProvider.
//
// Each operation becomes a client-kind span. When the end of the operation
// is reached, the event fields are copied onto the span as attributes and
// errors are recorded with an Error status.
//
// Example:
//
//	tracer := tracing.NewOTelTracer(otel.GetTracerProvider())
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer creates an OTelTracer. A nil provider means the global one.
func NewOTelTracer(tp trace.TracerProvider) *OTelTracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &OTelTracer{tracer: tp.Tracer(scope)}
}

// Start implements Tracer.
func (t *OTelTracer) Start(ctx context.Context, name string) (context.Context, Span) {
	parent := trace.SpanContextFromContext(ctx)

	ctx, span := t.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))

	var link Link
	if sc := span.SpanContext(); sc.IsValid() {
		link.TraceID = sc.TraceID().String()
		link.SpanID = sc.SpanID().String()
		if parent.HasSpanID() {
			link.ParentID = parent.SpanID().String()
		}
	}

	return ctx, &otelSpan{span: span, link: link}
}

type otelSpan struct {
	span trace.Span
	link Link
}

func (s *otelSpan) Link() Link { return s.link }

func (s *otelSpan) End(fields event.Fields, err error) {
	s.span.SetAttributes(attributes(fields)...)
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

// attributes converts event fields to span attributes.
func attributes(fields event.Fields) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(fields))
	for k, v := range fields {
		if strings.HasPrefix(k, traceFieldPrefix) || v == nil {
			continue
		}
		attrs = append(attrs, attributeOf(k, v))
	}
	return attrs
}

func attributeOf(key string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(key, val)
	case bool:
		return attribute.Bool(key, val)
	case int:
		return attribute.Int(key, val)
	case int32:
		return attribute.Int(key, int(val))
	case int64:
		return attribute.Int64(key, val)
	case float32:
		return attribute.Float64(key, float64(val))
	case float64:
		return attribute.Float64(key, val)
	case []byte:
		return attribute.String(key, string(val))
	case time.Time:
		return attribute.String(key, val.Format(time.RFC3339Nano))
	case fmt.Stringer:
		return attribute.String(key, val.String())
	default:
		return attribute.String(key, fmt.Sprint(val))
	}
}
