package sql

import (
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// AdapterName is the adapter value that routes a connection through the
// instrumented driver.
const AdapterName = "sqlevent"

// Connection settings keys rewritten by MungeConfig.
const (
	KeyAdapter     = "adapter"
	KeyRealAdapter = "real_adapter"
)

// ErrNoRealAdapter is returned when a sqlevent connection names no real driver.
var ErrNoRealAdapter = errors.New("sql: real_adapter is required when adapter is " + AdapterName)

// MungeConfig splices the instrumented adapter in front of the configured one:
// the original adapter moves to real_adapter and adapter becomes "sqlevent".
// Settings already pointing at sqlevent are returned unchanged, so the
// adapter is never wrapped twice. The input map is not modified.
//
// Example:
//
//	MungeConfig(map[string]any{"adapter": "postgres", "dsn": dsn})
//	// map[string]any{"adapter": "sqlevent", "real_adapter": "postgres", "dsn": dsn}
func MungeConfig(settings map[string]any) map[string]any {
	out := maps.Clone(settings)
	if out == nil {
		out = map[string]any{}
	}

	if adapter, _ := out[KeyAdapter].(string); adapter == AdapterName {
		return out
	}

	if adapter, ok := out[KeyAdapter]; ok {
		out[KeyRealAdapter] = adapter
	}
	out[KeyAdapter] = AdapterName
	return out
}

// Settings are decoded connection settings.
type Settings struct {
	Adapter     string `mapstructure:"adapter"`
	RealAdapter string `mapstructure:"real_adapter"`
	DSN         string `mapstructure:"dsn"`

	// System, Database and Instance become db.system, db.name and db.instance.
	System   string `mapstructure:"system"`
	Database string `mapstructure:"database"`
	Instance string `mapstructure:"instance"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// ParseSettings decodes a settings map. Values may be given as strings
// ("10", "5m") as they come from files or environment variables.
func ParseSettings(settings map[string]any) (Settings, error) {
	var s Settings

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Settings{}, fmt.Errorf("failed to create settings decoder: %w", err)
	}

	if err := dec.Decode(settings); err != nil {
		return Settings{}, fmt.Errorf("failed to decode connection settings: %w", err)
	}
	return s, nil
}

// options converts the identification settings to instrumentation options.
func (s Settings) options() []Option {
	var opts []Option
	if s.System != "" {
		opts = append(opts, WithDBSystem(s.System))
	}
	if s.Database != "" {
		opts = append(opts, WithDBName(s.Database))
	}
	if s.Instance != "" {
		opts = append(opts, WithInstanceName(s.Instance))
	}
	return opts
}

// ApplyPool applies the pool settings to db. Zero values keep the defaults.
func (s Settings) ApplyPool(db *sql.DB) {
	if s.MaxOpenConns > 0 {
		db.SetMaxOpenConns(s.MaxOpenConns)
	}
	if s.MaxIdleConns > 0 {
		db.SetMaxIdleConns(s.MaxIdleConns)
	}
	if s.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(s.ConnMaxLifetime)
	}
	if s.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(s.ConnMaxIdleTime)
	}
}

// OpenConfig opens a database from connection settings.
//
// When adapter is "sqlevent" the real_adapter driver is opened instrumented
// with opts; any other adapter is opened as a plain database/sql handle.
//
// Example:
//
//	db, err := sqlevent.OpenConfig(sqlevent.MungeConfig(map[string]any{
//	    "adapter":        "postgres",
//	    "dsn":            dsn,
//	    "database":       "zoo",
//	    "max_open_conns": "10",
//	}), sqlevent.WithClient(client))
func OpenConfig(settings map[string]any, opts ...Option) (*sql.DB, error) {
	s, err := ParseSettings(settings)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if s.Adapter == AdapterName {
		if s.RealAdapter == "" {
			return nil, ErrNoRealAdapter
		}
		db, err = Open(s.RealAdapter, s.DSN, append(s.options(), opts...)...)
	} else {
		db, err = sql.Open(s.Adapter, s.DSN)
	}
	if err != nil {
		return nil, err
	}

	s.ApplyPool(db)
	return db, nil
}
