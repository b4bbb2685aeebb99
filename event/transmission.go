package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Transmission errors. Each one means the record was dropped.
var (
	ErrQueueFull   = errors.New("event: transmission queue full")
	ErrClosed      = errors.New("event: transmission closed")
	ErrRateLimited = errors.New("event: transmission rate limited")
)

var _ Sender = (*Transmission)(nil)

const (
	defaultQueueSize   = 1024
	defaultWorkers     = 1
	defaultSendTimeout = 5 * time.Second
)

// RetryConfig configures redelivery of records the downstream sender rejected.
type RetryConfig struct {
	// MaxTries is the total number of attempts per record, including the first.
	MaxTries uint

	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration

	// MaxInterval caps a single backoff delay.
	MaxInterval time.Duration

	// MaxElapsedTime bounds the total time spent on one record. Zero means no bound.
	MaxElapsedTime time.Duration
}

// DefaultRetryConfig returns 3 attempts with exponential backoff from 100ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxTries:        3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsedTime:  10 * time.Second,
	}
}

// Transmission is an asynchronous Sender.
//
// Send enqueues the record and returns immediately; background workers
// deliver it to the wrapped sender with retries behind a circuit breaker.
// When the queue is full, the rate limit is exceeded or the transmission
// is closed, the record is dropped and counted.
//
// Example:
//
//	tx := event.NewTransmission(event.NewRedisStreamSender(rdb),
//	    event.WithQueueSize(4096),
//	    event.WithWorkers(2),
//	)
//	prometheus.MustRegister(tx.Collectors()...)
//	client := event.NewClient(tx)
//	defer client.Close(ctx)
type Transmission struct {
	next        Sender
	queue       chan Record
	workers     int
	queueSize   int
	sendTimeout time.Duration
	retry       RetryConfig
	breakerCfg  *BreakerConfig
	breaker     circuitBreaker
	limiter     *rate.Limiter
	logger      zerolog.Logger
	namespace   string
	metrics     *transmissionMetrics

	mu     sync.RWMutex
	closed bool
	group  errgroup.Group
	done   chan struct{}
	once   sync.Once
}

// TransmissionOption configures a Transmission.
type TransmissionOption func(*Transmission)

// WithQueueSize sets the number of records buffered before dropping (default: 1024).
func WithQueueSize(n int) TransmissionOption {
	return func(t *Transmission) {
		if n > 0 {
			t.queueSize = n
		}
	}
}

// WithWorkers sets the number of delivery goroutines (default: 1).
func WithWorkers(n int) TransmissionOption {
	return func(t *Transmission) {
		if n > 0 {
			t.workers = n
		}
	}
}

// WithSendTimeout bounds a single delivery attempt (default: 5s).
func WithSendTimeout(d time.Duration) TransmissionOption {
	return func(t *Transmission) {
		if d > 0 {
			t.sendTimeout = d
		}
	}
}

// WithRetry sets the redelivery policy.
func WithRetry(cfg RetryConfig) TransmissionOption {
	return func(t *Transmission) {
		if cfg.MaxTries == 0 {
			cfg.MaxTries = 1
		}
		t.retry = cfg
	}
}

// WithBreaker sets the circuit breaker configuration.
func WithBreaker(cfg BreakerConfig) TransmissionOption {
	return func(t *Transmission) {
		t.breakerCfg = &cfg
	}
}

// WithoutBreaker disables the circuit breaker.
func WithoutBreaker() TransmissionOption {
	return func(t *Transmission) {
		t.breakerCfg = nil
	}
}

// WithRateLimit drops records beyond perSecond (with burst) instead of queueing them.
func WithRateLimit(perSecond float64, burst int) TransmissionOption {
	return func(t *Transmission) {
		if perSecond > 0 {
			t.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithTransmissionLogger sets the logger used for delivery failures.
func WithTransmissionLogger(logger zerolog.Logger) TransmissionOption {
	return func(t *Transmission) {
		t.logger = logger
	}
}

// WithMetricsNamespace sets the Prometheus namespace (default: "sqlevent").
func WithMetricsNamespace(ns string) TransmissionOption {
	return func(t *Transmission) {
		t.namespace = ns
	}
}

// NewTransmission wraps next and starts the delivery workers.
// Call Close to drain the queue and stop the workers.
func NewTransmission(next Sender, opts ...TransmissionOption) *Transmission {
	breakerCfg := DefaultBreakerConfig()
	t := &Transmission{
		next:        next,
		workers:     defaultWorkers,
		queueSize:   defaultQueueSize,
		sendTimeout: defaultSendTimeout,
		retry:       DefaultRetryConfig(),
		breakerCfg:  &breakerCfg,
		logger:      zerolog.Nop(),
		namespace:   defaultMetricsNamespace,
		done:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(t)
	}

	t.queue = make(chan Record, t.queueSize)
	t.metrics = newTransmissionMetrics(t.namespace, func() float64 {
		return float64(len(t.queue))
	})

	if t.breakerCfg != nil {
		t.breaker = newCircuitBreaker(*t.breakerCfg)
	} else {
		t.breaker = passthroughBreaker{}
	}

	for range t.workers {
		t.group.Go(func() error {
			for rec := range t.queue {
				t.deliver(rec)
			}
			return nil
		})
	}

	return t
}

// Send implements Sender. It never blocks.
func (t *Transmission) Send(_ context.Context, rec Record) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		t.metrics.drop(dropReasonClosed)
		return ErrClosed
	}

	if t.limiter != nil && !t.limiter.Allow() {
		t.metrics.drop(dropReasonRateLimited)
		return ErrRateLimited
	}

	select {
	case t.queue <- rec:
		t.metrics.record(resultQueued)
		return nil
	default:
		t.metrics.drop(dropReasonQueueFull)
		return ErrQueueFull
	}
}

// Close stops accepting records, drains the queue and waits for the
// workers until ctx is done. The wrapped sender is closed afterwards
// when it supports it.
func (t *Transmission) Close(ctx context.Context) error {
	t.once.Do(func() {
		t.mu.Lock()
		t.closed = true
		close(t.queue)
		t.mu.Unlock()

		go func() {
			_ = t.group.Wait()
			close(t.done)
		}()
	})

	select {
	case <-t.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if cl, ok := t.next.(closer); ok {
		return cl.Close(ctx)
	}
	return nil
}

// deliver sends one record with retries. Failures are counted and logged.
func (t *Transmission) deliver(rec Record) {
	operation := func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), t.sendTimeout)
		defer cancel()

		_, err := t.breaker.Execute(func() (interface{}, error) {
			return nil, t.next.Send(ctx, rec)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(t.newBackOff()),
		backoff.WithMaxTries(t.retry.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			t.metrics.retries.Inc()
			t.logger.Debug().Err(err).Dur("backoff", next).Msg("retrying event delivery")
		}),
	}
	if t.retry.MaxElapsedTime > 0 {
		retryOpts = append(retryOpts, backoff.WithMaxElapsedTime(t.retry.MaxElapsedTime))
	}

	if _, err := backoff.Retry(context.Background(), operation, retryOpts...); err != nil {
		t.metrics.record(resultFailed)
		t.logger.Warn().Err(err).Msg("failed to deliver event")
		return
	}

	t.metrics.record(resultSent)
}

func (t *Transmission) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if t.retry.InitialInterval > 0 {
		b.InitialInterval = t.retry.InitialInterval
	}
	if t.retry.MaxInterval > 0 {
		b.MaxInterval = t.retry.MaxInterval
	}
	return b
}
