package instrument

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kroma-labs/sqlevent/event"
)

// Outcomes of one instrumented call as counted by sqlevent.events.
const (
	OutcomeSent       = "sent"
	OutcomeSendFailed = "send_failed"
	OutcomeDiscarded  = "discarded"
)

// Metric attribute keys.
const (
	attrOperation = attribute.Key("db.operation.name")
	attrErrorType = attribute.Key("error.type")
	attrOutcome   = attribute.Key("sqlevent.outcome")
)

// metrics mirrors the event stream as instruments: one duration sample for
// every finished event and one count per call outcome.
type metrics struct {
	duration metric.Float64Histogram
	events   metric.Int64Counter
	attrs    []attribute.KeyValue
}

func newMetrics(meter metric.Meter, attrs []attribute.KeyValue) (*metrics, error) {
	m := &metrics{attrs: attrs}
	var err error

	m.duration, err = meter.Float64Histogram(
		"db.client.operation.duration",
		metric.WithDescription("Duration of the logical queries reported as events"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.001, 0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 10,
		),
	)
	if err != nil {
		return nil, err
	}

	m.events, err = meter.Int64Counter(
		"sqlevent.events",
		metric.WithDescription("Instrumented calls by outcome: sent, send_failed or discarded"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// eventAttributes derives the measurement attributes from a finished event:
// db.name becomes the operation and db.error the error type.
func (m *metrics) eventAttributes(ev *event.Event) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(m.attrs)+2)
	out = append(out, m.attrs...)

	if name, ok := ev.Field(FieldName); ok {
		if s, _ := name.(string); s != "" {
			out = append(out, attrOperation.String(s))
		}
	}
	if typ, ok := ev.Field(FieldError); ok {
		if s, _ := typ.(string); s != "" {
			out = append(out, attrErrorType.String(s))
		}
	}
	return out
}

// recordEvent records the duration of a finished event and counts outcome.
func (m *metrics) recordEvent(ctx context.Context, ev *event.Event, duration time.Duration, outcome string) {
	if m == nil {
		return
	}

	attrs := m.eventAttributes(ev)
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.events.Add(ctx, 1, metric.WithAttributes(append(attrs, attrOutcome.String(outcome))...))
}

// recordDiscarded counts an event dropped because the driver answered
// ErrSkip; database/sql reports the retry as its own event.
func (m *metrics) recordDiscarded(ctx context.Context, ev *event.Event) {
	if m == nil {
		return
	}

	attrs := m.eventAttributes(ev)
	m.events.Add(ctx, 1, metric.WithAttributes(append(attrs, attrOutcome.String(OutcomeDiscarded))...))
}
