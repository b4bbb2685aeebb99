package sql

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kroma-labs/sqlevent/event"
	"github.com/kroma-labs/sqlevent/instrument"
	"github.com/kroma-labs/sqlevent/tracing"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	// This identifies the library in metrics.
	scope = "github.com/kroma-labs/sqlevent/sql"
)

// ErrNoClient is returned when no event client is configured and none is installed.
var ErrNoClient = instrument.ErrNoClient

// config holds the configuration for instrumentation.
type config struct {
	// Client receives one event per logical query.
	// If not set, the client registered with Install is used.
	Client *event.Client

	// Tracer links events to traces. Takes precedence over TracerProvider.
	Tracer tracing.Tracer

	// TracerProvider, when set and Tracer is not, links events to
	// OpenTelemetry spans.
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If not set, uses the global provider via otel.GetMeterProvider().
	// When no global provider is configured, a no-op meter is used (safe, but no metrics).
	MeterProvider metric.MeterProvider

	// DBSystem identifies the database management system (DBMS) product.
	// Examples: "postgresql", "mysql", "sqlite", "mssql", "oracle"
	DBSystem string

	// DBName is the name of the database being accessed.
	DBName string

	// InstanceName identifies a specific database connection instance,
	// such as "primary" or "replica".
	InstanceName string

	// QuerySanitizer sanitizes SQL queries before adding them to events.
	// If nil, queries are included as-is.
	QuerySanitizer func(query string) string

	// DisableQuery disables recording of SQL queries in events.
	DisableQuery bool

	// DisableParams disables recording of bound parameters in events.
	DisableParams bool

	// Package and PackageVersion are reported as meta.package and meta.package_version.
	Package        string
	PackageVersion string

	// SkipPackages are extra import paths never reported as db.query_source.
	SkipPackages []string

	// Logger reports wrapping decisions and telemetry delivery failures.
	Logger zerolog.Logger

	// inst is built from the fields above once options are applied.
	inst *instrument.Instrumenter
}

// newConfig creates a new config with defaults and applies options.
func newConfig(opts ...Option) (*config, error) {
	cfg := &config{
		MeterProvider: otel.GetMeterProvider(),
		Logger:        zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Client == nil {
		cfg.Client = InstalledClient()
	}

	if cfg.Tracer == nil && cfg.TracerProvider != nil {
		cfg.Tracer = tracing.NewOTelTracer(cfg.TracerProvider)
	}

	var meter metric.Meter
	if cfg.MeterProvider != nil {
		meter = cfg.MeterProvider.Meter(scope)
	}

	inst, err := instrument.New(instrument.Config{
		Client:           cfg.Client,
		Tracer:           cfg.Tracer,
		Package:          cfg.Package,
		PackageVersion:   cfg.PackageVersion,
		StaticFields:     cfg.staticFields(),
		QuerySanitizer:   cfg.QuerySanitizer,
		DisableQuery:     cfg.DisableQuery,
		DisableParams:    cfg.DisableParams,
		SkipPackages:     cfg.SkipPackages,
		Logger:           &cfg.Logger,
		Meter:            meter,
		MetricAttributes: cfg.baseAttributes(),
	})
	if err != nil {
		return nil, err
	}
	cfg.inst = inst

	return cfg, nil
}

// staticFields returns the database identification fields added to every event.
func (cfg *config) staticFields() event.Fields {
	fields := event.Fields{}
	if cfg.DBSystem != "" {
		fields[instrument.FieldDBSystem] = cfg.DBSystem
	}
	if cfg.DBName != "" {
		fields[instrument.FieldDBName] = cfg.DBName
	}
	if cfg.InstanceName != "" {
		fields[instrument.FieldDBInstance] = cfg.InstanceName
	}
	return fields
}

// baseAttributes returns the base attributes for all metrics.
func (cfg *config) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if cfg.DBSystem != "" {
		attrs = append(attrs, attribute.String("db.system", cfg.DBSystem))
	}
	if cfg.DBName != "" {
		attrs = append(attrs, attribute.String("db.name", cfg.DBName))
	}
	if cfg.InstanceName != "" {
		attrs = append(attrs, attribute.String("db.instance", cfg.InstanceName))
	}
	return attrs
}

// Option configures the instrumentation.
type Option func(*config)

// WithClient sets the event client receiving one event per logical query.
//
// Example:
//
//	client := event.NewClient(event.NewWriterSender(os.Stdout))
//	db, _ := sqlevent.Open("postgres", dsn,
//	    sqlevent.WithClient(client),
//	)
func WithClient(client *event.Client) Option {
	return func(cfg *config) {
		cfg.Client = client
	}
}

// WithTracer sets the tracer used to link events to traces.
//
// Example:
//
//	db, _ := sqlevent.Open("postgres", dsn,
//	    sqlevent.WithClient(client),
//	    sqlevent.WithTracer(tracing.NewContextTracer()),
//	)
func WithTracer(tracer tracing.Tracer) Option {
	return func(cfg *config) {
		cfg.Tracer = tracer
	}
}

// WithTracerProvider links events to OpenTelemetry spans created from tp.
// Ignored when WithTracer is also given.
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(...)
//	db, _ := sqlevent.Open("postgres", dsn,
//	    sqlevent.WithClient(client),
//	    sqlevent.WithTracerProvider(tp),
//	)
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider.
// If not called, the global provider from otel.GetMeterProvider() is used.
//
// Example:
//
//	mp := sdkmetric.NewMeterProvider(...)
//	db, _ := sqlevent.Open("postgres", dsn,
//	    sqlevent.WithMeterProvider(mp),
//	)
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		cfg.MeterProvider = mp
	}
}

// WithDBSystem sets the database system identifier (DBMS product).
// This is added as the "db.system" field on all events.
//
// Common values:
//   - "postgresql" - PostgreSQL
//   - "mysql" - MySQL
//   - "sqlite" - SQLite
func WithDBSystem(system string) Option {
	return func(cfg *config) {
		cfg.DBSystem = system
	}
}

// WithDBName sets the database name being accessed.
// This is added as the "db.name" field on all events.
func WithDBName(name string) Option {
	return func(cfg *config) {
		cfg.DBName = name
	}
}

// WithInstanceName sets an identifier for this specific database connection.
// This is added as the "db.instance" field on all events.
//
// Example - Primary/Replica setup:
//
//	writerDB, _ := sqlevent.Open("postgres", primaryDSN,
//	    sqlevent.WithInstanceName("primary"),
//	)
//	readerDB, _ := sqlevent.Open("postgres", replicaDSN,
//	    sqlevent.WithInstanceName("replica"),
//	)
func WithInstanceName(name string) Option {
	return func(cfg *config) {
		cfg.InstanceName = name
	}
}

// WithQuerySanitizer sets a custom query sanitizer function.
// The sanitizer receives the raw SQL query and should return a sanitized version
// with sensitive data (like literals) replaced with placeholders.
//
// Example:
//
//	db, _ := sqlevent.Open("postgres", dsn,
//	    sqlevent.WithQuerySanitizer(sqlevent.DefaultQuerySanitizer),
//	)
//	// Query: "SELECT * FROM users WHERE id = 123"
//	// Recorded as: "SELECT * FROM users WHERE id = ?"
func WithQuerySanitizer(fn func(string) string) Option {
	return func(cfg *config) {
		cfg.QuerySanitizer = fn
	}
}

// WithDisableQuery disables recording of SQL queries entirely.
// The "name" field (SELECT, INSERT, etc.) is still recorded.
func WithDisableQuery() Option {
	return func(cfg *config) {
		cfg.DisableQuery = true
	}
}

// WithDisableParams disables recording of bound parameters.
func WithDisableParams() Option {
	return func(cfg *config) {
		cfg.DisableParams = true
	}
}

// WithPackage overrides meta.package and meta.package_version,
// e.g. with the wrapped driver's import path and version.
func WithPackage(name, version string) Option {
	return func(cfg *config) {
		cfg.Package = name
		cfg.PackageVersion = version
	}
}

// WithSkipPackages adds import paths that are never reported as
// db.query_source, such as a shared repository layer.
func WithSkipPackages(pkgs ...string) Option {
	return func(cfg *config) {
		cfg.SkipPackages = append(cfg.SkipPackages, pkgs...)
	}
}

// WithLogger sets the logger. Default: zerolog.Nop().
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.Logger = logger
	}
}
