package sql

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Pool metric attribute keys.
const (
	attrConnState   = attribute.Key("db.client.connection.state")
	attrCloseReason = attribute.Key("db.client.connection.close_reason")
)

// poolMetrics observes sql.DBStats of one pool. Per-query duration and
// outcome are recorded with the events by the instrument package.
type poolMetrics struct {
	count        metric.Int64ObservableGauge
	max          metric.Int64ObservableGauge
	waits        metric.Int64ObservableCounter
	waitDuration metric.Float64ObservableCounter
	closed       metric.Int64ObservableCounter

	idle, used                   metric.MeasurementOption
	maxIdle, maxIdleTime, maxAge metric.MeasurementOption
	base                         metric.MeasurementOption
}

func newPoolMetrics(meter metric.Meter, attrs []attribute.KeyValue) (*poolMetrics, error) {
	m := &poolMetrics{
		base:        metric.WithAttributes(attrs...),
		idle:        metric.WithAttributes(append(attrs[:len(attrs):len(attrs)], attrConnState.String("idle"))...),
		used:        metric.WithAttributes(append(attrs[:len(attrs):len(attrs)], attrConnState.String("used"))...),
		maxIdle:     metric.WithAttributes(append(attrs[:len(attrs):len(attrs)], attrCloseReason.String("max_idle"))...),
		maxIdleTime: metric.WithAttributes(append(attrs[:len(attrs):len(attrs)], attrCloseReason.String("max_idle_time"))...),
		maxAge:      metric.WithAttributes(append(attrs[:len(attrs):len(attrs)], attrCloseReason.String("max_lifetime"))...),
	}
	var err error

	if m.count, err = meter.Int64ObservableGauge(
		"db.client.connection.count",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"),
	); err != nil {
		return nil, err
	}
	if m.max, err = meter.Int64ObservableGauge(
		"db.client.connection.max",
		metric.WithDescription("Maximum open connections allowed, 0 when unlimited"),
		metric.WithUnit("{connection}"),
	); err != nil {
		return nil, err
	}
	if m.waits, err = meter.Int64ObservableCounter(
		"db.client.connection.waits",
		metric.WithDescription("Calls that waited for a free connection"),
		metric.WithUnit("{wait}"),
	); err != nil {
		return nil, err
	}
	if m.waitDuration, err = meter.Float64ObservableCounter(
		"db.client.connection.wait_duration",
		metric.WithDescription("Total time spent waiting for a free connection"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.closed, err = meter.Int64ObservableCounter(
		"db.client.connection.closed",
		metric.WithDescription("Connections closed by the pool limits, by reason"),
		metric.WithUnit("{connection}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *poolMetrics) observe(stats sql.DBStats, o metric.Observer) {
	o.ObserveInt64(m.count, int64(stats.Idle), m.idle)
	o.ObserveInt64(m.count, int64(stats.InUse), m.used)
	o.ObserveInt64(m.max, int64(stats.MaxOpenConnections), m.base)
	o.ObserveInt64(m.waits, stats.WaitCount, m.base)
	o.ObserveFloat64(m.waitDuration, stats.WaitDuration.Seconds(), m.base)
	o.ObserveInt64(m.closed, stats.MaxIdleClosed, m.maxIdle)
	o.ObserveInt64(m.closed, stats.MaxIdleTimeClosed, m.maxIdleTime)
	o.ObserveInt64(m.closed, stats.MaxLifetimeClosed, m.maxAge)
}

// RecordPoolMetrics observes the connection pool of db on every collection.
//
// The db.system, db.name and db.instance attributes given to Open are
// detected automatically when db uses a wrapped driver; attrs are appended.
//
// Example:
//
//	db, _ := sqlevent.Open("postgres", dsn,
//	    sqlevent.WithClient(client),
//	    sqlevent.WithDBSystem("postgresql"),
//	    sqlevent.WithDBName("mydb"),
//	)
//	err := sqlevent.RecordPoolMetrics(db, otel.GetMeterProvider().Meter("myapp"))
func RecordPoolMetrics(db *sql.DB, meter metric.Meter, attrs ...attribute.KeyValue) error {
	if drv, ok := db.Driver().(*eventDriver); ok && drv.cfg != nil {
		attrs = append(drv.cfg.baseAttributes(), attrs...)
	}

	m, err := newPoolMetrics(meter, attrs)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			m.observe(db.Stats(), o)
			return nil
		},
		m.count, m.max, m.waits, m.waitDuration, m.closed,
	)
	return err
}
