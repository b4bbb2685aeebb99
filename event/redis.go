package event

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

var _ Sender = (*RedisStreamSender)(nil)

const (
	// DefaultStream is the stream RedisStreamSender appends to by default.
	DefaultStream = "sqlevent:events"

	// redisPayloadField is the stream entry field holding the JSON record.
	redisPayloadField = "event"
)

// RedisStreamSender appends each record to a Redis stream with XADD.
// The stream entry carries a single "event" field with the JSON record.
//
// Example:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	sender := event.NewRedisStreamSender(rdb,
//	    event.WithStream("app:db-events"),
//	    event.WithMaxLen(100_000),
//	)
type RedisStreamSender struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

// RedisOption configures a RedisStreamSender.
type RedisOption func(*RedisStreamSender)

// WithStream sets the target stream key.
func WithStream(stream string) RedisOption {
	return func(s *RedisStreamSender) {
		s.stream = stream
	}
}

// WithMaxLen caps the stream length using approximate MAXLEN trimming.
// Zero disables trimming.
func WithMaxLen(n int64) RedisOption {
	return func(s *RedisStreamSender) {
		s.maxLen = n
	}
}

// NewRedisStreamSender creates a sender appending to a Redis stream.
func NewRedisStreamSender(client redis.UniversalClient, opts ...RedisOption) *RedisStreamSender {
	s := &RedisStreamSender{
		client: client,
		stream: DefaultStream,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements Sender.
func (s *RedisStreamSender) Send(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{redisPayloadField: string(b)},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to append event to stream %q: %w", s.stream, err)
	}
	return nil
}

// DecodeStreamRecord decodes a record previously appended by RedisStreamSender.
func DecodeStreamRecord(msg redis.XMessage) (Record, error) {
	raw, ok := msg.Values[redisPayloadField].(string)
	if !ok {
		return Record{}, fmt.Errorf("stream message %s has no %q field", msg.ID, redisPayloadField)
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode stream message %s: %w", msg.ID, err)
	}
	return rec, nil
}
