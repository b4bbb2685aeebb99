package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlevent "github.com/kroma-labs/sqlevent/sql"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantErr    bool
		wantAssert func(t *testing.T, cfg Config)
	}{
		{
			name: "given no flags, then uses defaults",
			wantAssert: func(t *testing.T, cfg Config) {
				assert.Equal(t, DefaultDSN, cfg.DSN)
				assert.Equal(t, DefaultSender, cfg.Sender)
				assert.Equal(t, DefaultInterval, cfg.Interval)
				assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
			},
		},
		{
			name: "given flags, then overrides defaults",
			args: []string{"--sender", "redis", "--redis-addr", "redis:6379", "--interval", "1s", "--log-level", "debug"},
			wantAssert: func(t *testing.T, cfg Config) {
				assert.Equal(t, SenderRedis, cfg.Sender)
				assert.Equal(t, "redis:6379", cfg.RedisAddr)
				assert.Equal(t, "1s", cfg.Interval.String())
				assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
			},
		},
		{
			name:    "given an unknown sender, then returns error",
			args:    []string{"--sender", "kafka"},
			wantErr: true,
		},
		{
			name: "given the http sender with an endpoint, then accepts it",
			args: []string{"--sender", "http", "--http-endpoint", "http://collector:8080/events"},
			wantAssert: func(t *testing.T, cfg Config) {
				assert.Equal(t, SenderHTTP, cfg.Sender)
				assert.Equal(t, "http://collector:8080/events", cfg.HTTPEndpoint)
			},
		},
		{
			name:    "given the http sender without an endpoint, then returns error",
			args:    []string{"--sender", "http"},
			wantErr: true,
		},
		{
			name:    "given an invalid log level, then returns error",
			args:    []string{"--log-level", "loud"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.wantAssert(t, cfg)
		})
	}
}

func TestConfig_Settings(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	s, err := sqlevent.ParseSettings(sqlevent.MungeConfig(cfg.Settings()))
	require.NoError(t, err)

	assert.Equal(t, sqlevent.AdapterName, s.Adapter)
	assert.Equal(t, DefaultAdapter, s.RealAdapter)
	assert.Equal(t, DefaultMaxOpen, s.MaxOpenConns)
	assert.Equal(t, DefaultMaxLifetime, s.ConnMaxLifetime)
}
