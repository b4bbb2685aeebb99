package instrument

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kroma-labs/sqlevent/event"
	"github.com/kroma-labs/sqlevent/tracing"
)

type eventKey struct{}

// EventFromContext returns the in-flight event of the enclosing call, so
// delegates can enrich it (row counts, last insert id).
func EventFromContext(ctx context.Context) (*event.Event, bool) {
	ev, ok := ctx.Value(eventKey{}).(*event.Event)
	return ev, ok
}

// AddField sets key on the in-flight event carried by ctx, if any.
func AddField(ctx context.Context, key string, value any) {
	if ev, ok := EventFromContext(ctx); ok {
		ev.AddField(key, value)
	}
}

// Wrapper instruments the calls of one connection.
//
// Only the outermost call opens and sends an event; calls made while
// another one is in progress on the same wrapper run the delegate as is.
// A Wrapper must not be used by concurrent logical calls.
type Wrapper struct {
	inst  *Instrumenter
	depth int
}

// Depth returns the number of calls in progress.
func (w *Wrapper) Depth() int {
	return w.depth
}

// Do instruments fn as the query q.
func (w *Wrapper) Do(ctx context.Context, q Query, fn func(context.Context) error) error {
	_, err := Run(ctx, w, q, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Run instruments fn as the query q on w and returns fn's results unchanged.
//
// Example:
//
//	res, err := instrument.Run(ctx, w, instrument.Query{SQL: query, Params: instrument.NamedValues(args)},
//	    func(ctx context.Context) (driver.Result, error) {
//	        return execer.ExecContext(ctx, query, args)
//	    },
//	)
func Run[T any](ctx context.Context, w *Wrapper, q Query, fn func(context.Context) (T, error)) (result T, err error) {
	if w == nil || w.inst == nil {
		return fn(ctx)
	}

	w.depth++
	if w.depth > 1 {
		defer func() { w.depth-- }()
		return fn(ctx)
	}

	c := w.inst.open(ctx, q)
	defer func() {
		w.depth--
		if r := recover(); r != nil {
			c.recordPanic(r)
			w.inst.finish(c, nil)
			panic(r)
		}
		w.inst.finish(c, err)
	}()

	return fn(c.ctx)
}

// call is the state of one outermost instrumented call.
type call struct {
	ctx      context.Context
	ev       *event.Event
	span     tracing.Span
	name     string
	start    time.Time
	panicErr error
}

func (i *Instrumenter) open(ctx context.Context, q Query) *call {
	ev := i.builder.NewEvent()

	name := q.Name
	if name == "" {
		name = QueryName(q.SQL)
	}
	ev.AddField(FieldName, name)

	if !i.disableQuery {
		text := q.SQL
		if i.sanitize != nil {
			text = i.sanitize(text)
		}
		ev.AddField(FieldSQL, text)
	}

	if !i.disableParams {
		for idx, p := range q.Params {
			key := p.ParamName()
			if key == "" {
				key = strconv.Itoa(idx + 1)
			}
			ev.AddField(FieldParamPrefix+key, paramValue(p.ParamValue()))
		}
	}

	if src := i.source.locate(); src != "" {
		ev.AddField(FieldQuerySource, src)
	}

	c := &call{ev: ev, name: name}

	if i.tracer != nil {
		var span tracing.Span
		ctx, span = i.tracer.Start(ctx, name)
		c.span = span

		link := span.Link()
		if link.TraceID != "" {
			ev.AddField(FieldTraceID, link.TraceID)
		}
		if link.SpanID != "" {
			ev.AddField(FieldSpanID, link.SpanID)
		}
		if link.ParentID != "" {
			ev.AddField(FieldParentID, link.ParentID)
		}
	}

	c.ctx = context.WithValue(ctx, eventKey{}, ev)
	c.start = time.Now()
	return c
}

func (c *call) recordError(err error) {
	c.ev.AddField(FieldError, fmt.Sprintf("%T", err))
	c.ev.AddField(FieldErrorDetail, err.Error())
}

// recordPanic records a recovered panic value the way errors are recorded.
func (c *call) recordPanic(r any) {
	if err, ok := r.(error); ok {
		c.recordError(err)
		c.panicErr = err
		return
	}
	c.ev.AddField(FieldError, fmt.Sprintf("%T", r))
	c.ev.AddField(FieldErrorDetail, fmt.Sprint(r))
	c.panicErr = fmt.Errorf("panic: %v", r)
}

func (i *Instrumenter) finish(c *call, err error) {
	duration := time.Since(c.start)

	// database/sql retries ErrSkip through another instrumented path.
	if errors.Is(err, driver.ErrSkip) {
		if c.span != nil {
			c.span.End(nil, nil)
		}
		i.metrics.recordDiscarded(c.ctx, c.ev)
		return
	}

	if err != nil {
		c.recordError(err)
	} else {
		err = c.panicErr
	}
	c.ev.AddField(FieldDurationMs, float64(duration)/float64(time.Millisecond))

	if c.span != nil {
		c.span.End(c.ev.Fields(), err)
	}

	outcome := OutcomeSent
	if sendErr := c.ev.SendContext(context.WithoutCancel(c.ctx)); sendErr != nil {
		outcome = OutcomeSendFailed
		i.logger.Warn().
			Err(sendErr).
			Str("name", c.name).
			Msg("failed to send db event")
	}
	i.metrics.recordEvent(c.ctx, c.ev, duration, outcome)
}
