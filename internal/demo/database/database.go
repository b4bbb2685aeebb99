// Package database runs the demo workload on an instrumented sqlx database.
package database

import (
	"fmt"

	_ "github.com/lib/pq" // Register postgres driver
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kroma-labs/sqlevent/event"
	sqlevent "github.com/kroma-labs/sqlevent/sql"
	sqleventx "github.com/kroma-labs/sqlevent/sqlx"
)

// DB wraps the instrumented sqlx database.
type DB struct {
	*sqleventx.DB
	logger zerolog.Logger
}

// Open opens the database described by settings, a connection settings map
// as accepted by sqlevent.MungeConfig.
func Open(
	settings map[string]any,
	client *event.Client,
	tp trace.TracerProvider,
	meter metric.Meter,
	logger zerolog.Logger,
) (*DB, error) {
	s, err := sqlevent.ParseSettings(sqlevent.MungeConfig(settings))
	if err != nil {
		return nil, err
	}
	if s.RealAdapter == "" {
		return nil, sqlevent.ErrNoRealAdapter
	}

	db, err := sqleventx.Open(s.RealAdapter, s.DSN,
		sqleventx.WithClient(client),
		sqleventx.WithTracerProvider(tp),
		sqleventx.WithDBSystem(s.System),
		sqleventx.WithDBName(s.Database),
		sqleventx.WithInstanceName(s.Instance),
		sqleventx.WithSkipPackages("github.com/kroma-labs/sqlevent/internal/demo/database"),
		sqleventx.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s.ApplyPool(db.DB.DB)

	if meter != nil {
		if err := sqleventx.RecordPoolMetrics(db, meter); err != nil {
			logger.Warn().Err(err).Msg("failed to register pool metrics")
		}
	}

	return &DB{DB: db, logger: logger}, nil
}
