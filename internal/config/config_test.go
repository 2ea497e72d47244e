package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("MESSAGING_ENABLED", "false")
	t.Setenv("CACHE_ENABLED", "false")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "noop", cfg.Cache.Driver)
	assert.Equal(t, "noop", cfg.Messaging.Driver)
	assert.Equal(t, cfg.Database.WriterDSN, cfg.Database.ReaderDSN)
	assert.Equal(t, "Asia/Jakarta", cfg.Business.Location.String())
	assert.Equal(t, "50000", cfg.Business.MaxNetWeight.String())
	assert.Equal(t, "@every 1m", cfg.Sweep.Schedule)
	assert.Equal(t, 10*time.Second, cfg.Reconcile.LockTTL)
	assert.Equal(t, 3, cfg.Reconcile.MaxAttempts)
}

func TestNewRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"timezone":    {"BUSINESS_TIMEZONE": "Mars/Olympus"},
		"weight":      {"BUSINESS_MAX_NET_WEIGHT": "-1"},
		"schedule":    {"SWEEP_SCHEDULE": "every minute"},
		"cache":       {"CACHE_DRIVER": "memcached"},
		"http port":   {"HTTP_PORT": "0"},
		"messaging":   {"MESSAGING_DRIVER": "nats"},
		"missing dsn": {"DB_WRITER_DSN": ""},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("MESSAGING_ENABLED", "true")
			t.Setenv("CACHE_ENABLED", "true")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := New()
			assert.Error(t, err)
		})
	}
}

func TestNewNormalisesObservability(t *testing.T) {
	t.Setenv("MESSAGING_ENABLED", "false")
	t.Setenv("OBS_LOG_LEVEL", "  DEBUG ")
	t.Setenv("OBS_PROMETHEUS_PATH", "metrics")
	t.Setenv("RECONCILE_MAX_ATTEMPTS", "0")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.Equal(t, "/metrics", cfg.Observability.PrometheusPath)
	assert.Equal(t, 1, cfg.Reconcile.MaxAttempts)
}
