package event

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrAlreadySent is returned when an event is sent more than once.
var ErrAlreadySent = errors.New("event: already sent")

// Fields is a set of named event attributes.
type Fields map[string]any

// clone returns a shallow copy of f. A nil receiver yields an empty, non-nil map.
func (f Fields) clone() Fields {
	out := make(Fields, len(f))
	maps.Copy(out, f)
	return out
}

// Record is the immutable payload handed to a Sender.
type Record struct {
	Timestamp time.Time `json:"time"`
	Data      Fields    `json:"data"`
}

// Sender delivers records to a telemetry backend.
//
// Retry, buffering and loss semantics belong to the implementation.
// Use Transmission to make any Sender asynchronous.
type Sender interface {
	Send(ctx context.Context, rec Record) error
}

// closer is implemented by senders that hold resources or buffers.
type closer interface {
	Close(ctx context.Context) error
}

// Client creates events and forwards them to a Sender.
type Client struct {
	sender  Sender
	builder *Builder
	clock   clockwork.Clock
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithFields adds static fields to every event produced by the client.
//
// Example:
//
//	client := event.NewClient(sender,
//	    event.WithFields(event.Fields{"service.name": "billing"}),
//	)
func WithFields(fields Fields) ClientOption {
	return func(c *Client) {
		c.builder = c.builder.Add(fields)
	}
}

// WithClock overrides the clock used to timestamp events.
//
// Example:
//
//	clock := clockwork.NewFakeClock()
//	client := event.NewClient(rec, event.WithClock(clock))
func WithClock(clock clockwork.Clock) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewClient creates a Client that delivers events through sender.
func NewClient(sender Sender, opts ...ClientOption) *Client {
	c := &Client{
		sender: sender,
		clock:  clockwork.NewRealClock(),
	}
	c.builder = &Builder{client: c, fields: Fields{}}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Builder returns the root builder carrying the client's static fields.
func (c *Client) Builder() *Builder {
	return c.builder
}

// NewEvent is shorthand for c.Builder().NewEvent().
func (c *Client) NewEvent() *Event {
	return c.builder.NewEvent()
}

// Close flushes and closes the underlying sender when it supports it.
func (c *Client) Close(ctx context.Context) error {
	if cl, ok := c.sender.(closer); ok {
		return cl.Close(ctx)
	}
	return nil
}

// Builder is an immutable event template.
//
// Add never mutates the receiver, so a builder can be shared between
// connections and goroutines.
type Builder struct {
	client *Client
	fields Fields
}

// Add returns a new builder carrying the receiver's fields plus fields.
func (b *Builder) Add(fields Fields) *Builder {
	next := b.fields.clone()
	maps.Copy(next, fields)
	return &Builder{client: b.client, fields: next}
}

// Fields returns a copy of the template fields.
func (b *Builder) Fields() Fields {
	return b.fields.clone()
}

// NewEvent creates an event pre-populated with the template fields.
func (b *Builder) NewEvent() *Event {
	return &Event{
		client: b.client,
		fields: b.fields.clone(),
	}
}

// Event is a single telemetry record under construction.
//
// An Event is owned by one logical operation and is not safe for
// concurrent mutation.
type Event struct {
	client *Client
	fields Fields
	sent   bool
}

// AddField sets a single field.
func (e *Event) AddField(key string, value any) {
	e.fields[key] = value
}

// Add sets every field in fields.
func (e *Event) Add(fields Fields) {
	maps.Copy(e.fields, fields)
}

// Field returns the value stored under key.
func (e *Event) Field(key string) (any, bool) {
	v, ok := e.fields[key]
	return v, ok
}

// Fields returns a copy of the event fields.
func (e *Event) Fields() Fields {
	return e.fields.clone()
}

// Sent reports whether Send was already called.
func (e *Event) Sent() bool {
	return e.sent
}

// Send transmits the event. Only the first call reaches the sender.
func (e *Event) Send() error {
	return e.SendContext(context.Background())
}

// SendContext is like Send but hands ctx to the sender.
func (e *Event) SendContext(ctx context.Context) error {
	if e.sent {
		return ErrAlreadySent
	}
	e.sent = true

	if e.client == nil || e.client.sender == nil {
		return nil
	}

	return e.client.sender.Send(ctx, Record{
		Timestamp: e.client.clock.Now(),
		Data:      e.fields.clone(),
	})
}
