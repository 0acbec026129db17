package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()

	cfg := Load()
	require.NotNil(t, cfg)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "", cfg.APIKey)
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "apd_restaurant", cfg.Database.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)

	assert.Equal(t, 3*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 8, cfg.Monitor.Workers)
	assert.Equal(t, 2*time.Second, cfg.Monitor.CheckTimeout)
	assert.False(t, cfg.Monitor.ReconcileMaintenance)
	assert.False(t, cfg.Monitor.ConditionalWrites)

	assert.Equal(t, "apd:camera-status", cfg.Events.Stream)
	assert.False(t, cfg.Events.MQTTEnabled)
	assert.Equal(t, "apd/cameras", cfg.Events.MQTTTopicPrefix)
	assert.Equal(t, 256, cfg.Events.Buffer)

	assert.Equal(t, "apd-api", cfg.Status.ConsumerGroup)
	assert.Equal(t, 5*time.Minute, cfg.Status.CacheTTL)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("VIOLATION_API_KEY", "secret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("MONITOR_INTERVAL", "10")
	t.Setenv("MONITOR_WORKERS", "2")
	t.Setenv("MONITOR_CHECK_TIMEOUT", "500ms")
	t.Setenv("MONITOR_RECONCILE_MAINTENANCE", "true")
	t.Setenv("MONITOR_CONDITIONAL_WRITES", "1")
	t.Setenv("EVENTS_MQTT_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 10*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 2, cfg.Monitor.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.Monitor.CheckTimeout)
	assert.True(t, cfg.Monitor.ReconcileMaintenance)
	assert.True(t, cfg.Monitor.ConditionalWrites)
	assert.True(t, cfg.Events.MQTTEnabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_APIKeyTakesPrecedence(t *testing.T) {
	os.Clearenv()
	t.Setenv("API_KEY", "primary")
	t.Setenv("VIOLATION_API_KEY", "legacy")

	assert.Equal(t, "primary", Load().APIKey)
}

func TestValidate(t *testing.T) {
	os.Clearenv()

	cfg := Load()
	cfg.Monitor.Interval = 0
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.Monitor.Workers = -1
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.Monitor.CheckTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.Events.Stream = ""
	assert.Error(t, cfg.Validate())
}
