package event

import (
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	gobreakerredis "github.com/sony/gobreaker/v2/redis"
)

const defaultBreakerName = "sqlevent-transmission"

// NewRedisBreakerStore creates a SharedDataStore backed by Redis so several
// processes share the delivery circuit breaker state.
//
// Usage:
//
//	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{"localhost:6379"}})
//	cfg := event.DefaultBreakerConfig()
//	cfg.Store = event.NewRedisBreakerStore(rdb)
func NewRedisBreakerStore(client redis.UniversalClient) gobreaker.SharedDataStore {
	return gobreakerredis.NewStoreFromClient(client)
}

// circuitBreaker matches the Execute signature of gobreaker breakers.
type circuitBreaker interface {
	Execute(req func() (interface{}, error)) (interface{}, error)
}

// BreakerConfig configures the circuit breaker guarding event delivery.
//
// While the breaker is open, deliveries fail fast and the affected events
// are counted as failed instead of being retried against a dead backend.
type BreakerConfig struct {
	// Name identifies the breaker (and its shared state key when Store is set).
	Name string

	// MaxRequests is the number of deliveries allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state after which counts reset.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// ConsecutiveFailures trips the breaker after this many failed deliveries in a row.
	ConsecutiveFailures uint32

	// Store enables a distributed breaker. If nil, the breaker is local.
	Store gobreaker.SharedDataStore

	// OnStateChange is invoked on every state transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns a local breaker tripping after 5 consecutive failures.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                defaultBreakerName,
		MaxRequests:         1,
		Interval:            30 * time.Second,
		Timeout:             10 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// newCircuitBreaker builds a gobreaker breaker from cfg.
func newCircuitBreaker(cfg BreakerConfig) circuitBreaker {
	name := cfg.Name
	if name == "" {
		name = defaultBreakerName
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.ConsecutiveFailures > 0 &&
				counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: cfg.OnStateChange,
	}

	if cfg.Store != nil {
		dcb, err := gobreaker.NewDistributedCircuitBreaker[interface{}](cfg.Store, st)
		if err == nil {
			return dcb
		}
		// Fall back to a process-local breaker.
	}

	return gobreaker.NewCircuitBreaker[interface{}](st)
}

// passthroughBreaker is used when the breaker is disabled.
type passthroughBreaker struct{}

func (passthroughBreaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	return req()
}
