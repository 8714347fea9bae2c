package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30, cfg.Server.ShutdownTimeout)
	assert.NotEmpty(t, cfg.Database.DSN)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Nil(t, cfg.Kafka.Brokers)
	assert.False(t, cfg.Charts.DemoData)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("CHARTS_DEMO_DATA", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Charts.DemoData)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSplitBrokers(t *testing.T) {
	assert.Nil(t, splitBrokers(""))
	assert.Equal(t, []string{"a:1"}, splitBrokers("a:1"))
	assert.Equal(t, []string{"a:1", "b:2"}, splitBrokers(" a:1 ,, b:2 "))
}
