package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "offers-service", cfg.AppName)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "offers", cfg.Postgres.DBName)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "https://applifting-python-excercise-ms.herokuapp.com/api/v1", cfg.Offers.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Offers.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Redis.DefaultExpiration)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SYNC_INTERVAL", "90s")
	t.Setenv("OFFERS_BASE_URL", "http://localhost:9100/api/v1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Sync.Interval)
	assert.Equal(t, "http://localhost:9100/api/v1", cfg.Offers.BaseURL)
}
