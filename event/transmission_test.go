package event

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type senderFunc func(ctx context.Context, rec Record) error

func (f senderFunc) Send(ctx context.Context, rec Record) error { return f(ctx, rec) }

func fastRetry(tries uint) RetryConfig {
	return RetryConfig{
		MaxTries:        tries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestTransmission_Delivers(t *testing.T) {
	rec := NewRecorder()
	tx := NewTransmission(rec, WithWorkers(3))

	for range 50 {
		require.NoError(t, tx.Send(context.Background(), Record{Data: Fields{"type": "db"}}))
	}
	require.NoError(t, tx.Close(context.Background()))

	assert.Equal(t, 50, rec.Len())
	assert.InDelta(t, 50, testutil.ToFloat64(tx.metrics.events.WithLabelValues(resultQueued)), 0)
	assert.InDelta(t, 50, testutil.ToFloat64(tx.metrics.events.WithLabelValues(resultSent)), 0)
}

func TestTransmission_QueueFull(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	blocking := senderFunc(func(context.Context, Record) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})

	tx := NewTransmission(blocking, WithQueueSize(1), WithWorkers(1), WithoutBreaker())

	require.NoError(t, tx.Send(context.Background(), Record{}))
	<-started
	require.NoError(t, tx.Send(context.Background(), Record{}))

	err := tx.Send(context.Background(), Record{})
	require.ErrorIs(t, err, ErrQueueFull)
	assert.InDelta(t, 1, testutil.ToFloat64(tx.metrics.dropped.WithLabelValues(dropReasonQueueFull)), 0)

	close(release)
	require.NoError(t, tx.Close(context.Background()))
}

func TestTransmission_Retry(t *testing.T) {
	tests := []struct {
		name       string
		failures   int32
		maxTries   uint
		wantSent   float64
		wantFailed float64
	}{
		{
			name:     "given transient failures, then the record is redelivered",
			failures: 2,
			maxTries: 3,
			wantSent: 1,
		},
		{
			name:       "given failures beyond max tries, then the record is counted as failed",
			failures:   10,
			maxTries:   2,
			wantFailed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			flaky := senderFunc(func(context.Context, Record) error {
				if calls.Add(1) <= tt.failures {
					return errors.New("backend unavailable")
				}
				return nil
			})

			tx := NewTransmission(flaky, WithRetry(fastRetry(tt.maxTries)), WithoutBreaker())
			require.NoError(t, tx.Send(context.Background(), Record{}))
			require.NoError(t, tx.Close(context.Background()))

			assert.InDelta(t, tt.wantSent, testutil.ToFloat64(tx.metrics.events.WithLabelValues(resultSent)), 0)
			assert.InDelta(t, tt.wantFailed, testutil.ToFloat64(tx.metrics.events.WithLabelValues(resultFailed)), 0)
		})
	}
}

func TestTransmission_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	failing := senderFunc(func(context.Context, Record) error {
		calls.Add(1)
		return errors.New("backend unavailable")
	})

	cfg := DefaultBreakerConfig()
	cfg.ConsecutiveFailures = 1
	cfg.Timeout = time.Minute

	tx := NewTransmission(failing,
		WithWorkers(1),
		WithRetry(fastRetry(3)),
		WithBreaker(cfg),
	)
	for range 3 {
		require.NoError(t, tx.Send(context.Background(), Record{}))
	}
	require.NoError(t, tx.Close(context.Background()))

	assert.Equal(t, int32(1), calls.Load(), "open breaker must not reach the sender")
	assert.InDelta(t, 3, testutil.ToFloat64(tx.metrics.events.WithLabelValues(resultFailed)), 0)
}

func TestTransmission_DistributedBreaker(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := DefaultBreakerConfig()
	cfg.Store = NewRedisBreakerStore(rdb)

	rec := NewRecorder()
	tx := NewTransmission(rec, WithBreaker(cfg))
	require.NoError(t, tx.Send(context.Background(), Record{}))
	require.NoError(t, tx.Close(context.Background()))

	assert.Equal(t, 1, rec.Len())
}

func TestTransmission_RateLimit(t *testing.T) {
	tx := NewTransmission(NewRecorder(), WithRateLimit(1, 1))

	require.NoError(t, tx.Send(context.Background(), Record{}))
	require.ErrorIs(t, tx.Send(context.Background(), Record{}), ErrRateLimited)
	require.NoError(t, tx.Close(context.Background()))

	assert.InDelta(t, 1, testutil.ToFloat64(tx.metrics.dropped.WithLabelValues(dropReasonRateLimited)), 0)
}

func TestTransmission_Close(t *testing.T) {
	t.Run("given a closed transmission, then Send returns ErrClosed", func(t *testing.T) {
		tx := NewTransmission(NewRecorder())
		require.NoError(t, tx.Close(context.Background()))
		require.NoError(t, tx.Close(context.Background()))

		require.ErrorIs(t, tx.Send(context.Background(), Record{}), ErrClosed)
	})

	t.Run("given a stuck sender, then Close honours the context", func(t *testing.T) {
		release := make(chan struct{})
		stuck := senderFunc(func(context.Context, Record) error {
			<-release
			return nil
		})

		tx := NewTransmission(stuck, WithoutBreaker())
		require.NoError(t, tx.Send(context.Background(), Record{}))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, tx.Close(ctx), context.DeadlineExceeded)

		close(release)
		require.NoError(t, tx.Close(context.Background()))
	})
}

func TestTransmission_CloseStopsWorkers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := NewRecorder()
	tx := NewTransmission(rec, WithWorkers(4), WithoutBreaker())
	for range 10 {
		require.NoError(t, tx.Send(context.Background(), Record{Data: Fields{}}))
	}
	require.NoError(t, tx.Close(context.Background()))

	assert.Equal(t, 10, rec.Len())
}

func TestTransmission_Collectors(t *testing.T) {
	tx := NewTransmission(NewRecorder(), WithMetricsNamespace("test"))
	defer tx.Close(context.Background())

	reg := prometheus.NewRegistry()
	for _, c := range tx.Collectors() {
		require.NoError(t, reg.Register(c))
	}

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_transmission_queue_length")
	assert.Contains(t, names, "test_transmission_retries_total")
}
