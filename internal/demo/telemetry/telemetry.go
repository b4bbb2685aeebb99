// Package telemetry wires OpenTelemetry and the event pipeline of the demo.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/kroma-labs/sqlevent/event"
	"github.com/kroma-labs/sqlevent/internal/demo/config"
)

// Telemetry holds the providers set up by Setup.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
}

// Setup initializes OpenTelemetry tracing and metrics.
// Spans are exported over OTLP gRPC when cfg.OTLPEndpoint is set.
// Metrics are exposed through the default Prometheus registry.
func Setup(ctx context.Context, cfg config.Config) (*Telemetry, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.OTLPEndpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	promExporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return &Telemetry{TracerProvider: tp, MeterProvider: mp}, nil
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.TracerProvider.Shutdown(ctx),
		t.MeterProvider.Shutdown(ctx),
	)
}

// NewClient builds the event client: the configured sender behind an
// asynchronous Transmission whose collectors are registered with reg.
func NewClient(cfg config.Config, logger zerolog.Logger, reg prometheus.Registerer) (*event.Client, error) {
	opts := []event.TransmissionOption{
		event.WithQueueSize(cfg.QueueSize),
		event.WithWorkers(cfg.Workers),
		event.WithTransmissionLogger(logger),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, event.WithRateLimit(cfg.RateLimit, cfg.Workers))
	}

	var sender event.Sender
	switch cfg.Sender {
	case config.SenderStdout:
		sender = event.NewWriterSender(os.Stdout)
	case config.SenderRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

		var redisOpts []event.RedisOption
		if cfg.Stream != "" {
			redisOpts = append(redisOpts, event.WithStream(cfg.Stream))
		}
		sender = event.NewRedisStreamSender(rdb, redisOpts...)

		// Several demo replicas share one breaker state.
		breaker := event.DefaultBreakerConfig()
		breaker.Store = event.NewRedisBreakerStore(rdb)
		opts = append(opts, event.WithBreaker(breaker))
	case config.SenderHTTP:
		sender = event.NewHTTPSender(cfg.HTTPEndpoint)
	default:
		sender = event.NewLogSender(logger.With().Str("component", "events").Logger())
	}

	tx := event.NewTransmission(sender, opts...)
	for _, c := range tx.Collectors() {
		if err := reg.Register(c); err != nil {
			_ = tx.Close(context.Background())
			return nil, fmt.Errorf("failed to register transmission metrics: %w", err)
		}
	}

	return event.NewClient(tx, event.WithFields(event.Fields{
		"service.name":    config.ServiceName,
		"service.version": config.ServiceVersion,
	})), nil
}
