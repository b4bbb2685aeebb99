package sqlx

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	sqlevent "github.com/kroma-labs/sqlevent/sql"
)

// RecordPoolMetrics registers connection pool metrics for a sqlx database.
// Query latency is recorded per call without any registration.
//
// Example:
//
//	db, _ := sqleventx.Open("postgres", dsn,
//	    sqleventx.WithClient(client),
//	    sqleventx.WithDBSystem("postgresql"),
//	    sqleventx.WithDBName("mydb"),
//	)
//
//	err := sqleventx.RecordPoolMetrics(db, otel.GetMeterProvider().Meter("myapp"))
func RecordPoolMetrics(db *DB, meter metric.Meter, attrs ...attribute.KeyValue) error {
	if db.cfg != nil {
		attrs = append(db.cfg.baseAttributes(), attrs...)
	}
	return sqlevent.RecordPoolMetrics(db.DB.DB, meter, attrs...)
}
