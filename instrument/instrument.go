package instrument

import (
	"errors"
	"runtime"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kroma-labs/sqlevent/event"
	"github.com/kroma-labs/sqlevent/tracing"
)

// ErrNoClient is returned when instrumentation is configured without an event client.
var ErrNoClient = errors.New("instrument: no event client configured")

// DefaultPackage is reported as meta.package when none is configured.
const DefaultPackage = "database/sql"

// Config configures an Instrumenter.
type Config struct {
	// Client receives the emitted events. Required.
	Client *event.Client

	// Tracer links events to traces. Optional.
	Tracer tracing.Tracer

	// Package and PackageVersion are reported as meta.package and
	// meta.package_version. Defaults: "database/sql" and the Go version.
	Package        string
	PackageVersion string

	// StaticFields are added to every event.
	StaticFields event.Fields

	// QuerySanitizer rewrites SQL text before it is recorded.
	QuerySanitizer func(query string) string

	// DisableQuery omits db.sql from events.
	DisableQuery bool

	// DisableParams omits db.params.* from events.
	DisableParams bool

	// SkipPackages are extra import paths never reported as db.query_source,
	// e.g. a repository layer shared by every caller.
	SkipPackages []string

	// Logger reports telemetry delivery failures. Default: zerolog.Nop().
	Logger *zerolog.Logger

	// Meter records the duration and outcome of every event. Nil disables
	// metrics.
	Meter metric.Meter

	// MetricAttributes are attached to every measurement.
	MetricAttributes []attribute.KeyValue
}

// Instrumenter holds the event template and settings shared by every
// instrumented connection.
type Instrumenter struct {
	builder       *event.Builder
	tracer        tracing.Tracer
	sanitize      func(string) string
	disableQuery  bool
	disableParams bool
	source        *sourceLocator
	logger        zerolog.Logger
	metrics       *metrics
}

// New validates cfg and builds the event template.
//
// Example:
//
//	inst, err := instrument.New(instrument.Config{
//	    Client: event.NewClient(event.NewWriterSender(os.Stdout)),
//	    Tracer: tracing.NewContextTracer(),
//	})
func New(cfg Config) (*Instrumenter, error) {
	if cfg.Client == nil {
		return nil, ErrNoClient
	}

	pkg := cfg.Package
	if pkg == "" {
		pkg = DefaultPackage
	}
	version := cfg.PackageVersion
	if version == "" {
		version = runtime.Version()
	}

	builder := cfg.Client.Builder().Add(event.Fields{
		FieldType:           TypeDB,
		FieldPackage:        pkg,
		FieldPackageVersion: version,
	})
	if len(cfg.StaticFields) > 0 {
		builder = builder.Add(cfg.StaticFields)
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	inst := &Instrumenter{
		builder:       builder,
		tracer:        cfg.Tracer,
		sanitize:      cfg.QuerySanitizer,
		disableQuery:  cfg.DisableQuery,
		disableParams: cfg.DisableParams,
		source:        newSourceLocator(cfg.SkipPackages),
		logger:        logger,
	}

	if cfg.Meter != nil {
		m, err := newMetrics(cfg.Meter, cfg.MetricAttributes)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create event metrics")
		}
		inst.metrics = m
	}

	return inst, nil
}

// Builder returns the event template.
func (i *Instrumenter) Builder() *event.Builder {
	return i.builder
}

// NewWrapper returns a wrapper for one connection.
func (i *Instrumenter) NewWrapper() *Wrapper {
	return &Wrapper{inst: i}
}
