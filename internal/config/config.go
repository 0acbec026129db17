package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	commoncfg "github.com/superrexy/APD-Restaurant-Violation-App/common/config"
)

// Config is shared by apd-monitor and apd-api.
type Config struct {
	HTTP struct {
		Addr string
	}
	APIKey string

	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     commoncfg.RedisConfig
	MQTT      commoncfg.MQTTConfig

	Log struct {
		Level  string
		Format string
	}

	Monitor struct {
		Interval             time.Duration // default 3s
		Workers              int
		CheckTimeout         time.Duration
		ReconcileMaintenance bool // also check cameras in maintenance
		ConditionalWrites    bool // write only if the status is still the one that was read
	}

	Events struct {
		Stream          string
		StreamMaxLen    int64
		MQTTEnabled     bool
		MQTTTopicPrefix string
		Buffer          int
	}

	Status struct {
		ConsumerGroup string
		ConsumerName  string
		CacheTTL      time.Duration
		CachePrefix   string
	}
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.APIKey = getEnv("API_KEY", os.Getenv("VIOLATION_API_KEY"))

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "apd_restaurant",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT = commoncfg.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "apd-monitor",
		QoS:      1,
	}
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Monitor.Interval = parseDuration(getEnv("MONITOR_INTERVAL", "3s"), 3*time.Second)
	cfg.Monitor.Workers = parseInt(getEnv("MONITOR_WORKERS", "8"), 8)
	cfg.Monitor.CheckTimeout = parseDuration(getEnv("MONITOR_CHECK_TIMEOUT", "2s"), 2*time.Second)
	cfg.Monitor.ReconcileMaintenance = parseBool(getEnv("MONITOR_RECONCILE_MAINTENANCE", "false"))
	cfg.Monitor.ConditionalWrites = parseBool(getEnv("MONITOR_CONDITIONAL_WRITES", "false"))

	cfg.Events.Stream = getEnv("EVENTS_STREAM", "apd:camera-status")
	cfg.Events.StreamMaxLen = int64(parseInt(getEnv("EVENTS_STREAM_MAXLEN", "10000"), 10000))
	cfg.Events.MQTTEnabled = parseBool(getEnv("EVENTS_MQTT_ENABLED", "false"))
	cfg.Events.MQTTTopicPrefix = getEnv("EVENTS_MQTT_TOPIC_PREFIX", "apd/cameras")
	cfg.Events.Buffer = parseInt(getEnv("EVENTS_BUFFER", "256"), 256)

	cfg.Status.ConsumerGroup = getEnv("STATUS_CONSUMER_GROUP", "apd-api")
	cfg.Status.ConsumerName = getEnv("STATUS_CONSUMER_NAME", hostnameOr("apd-api-1"))
	cfg.Status.CacheTTL = parseDuration(getEnv("STATUS_CACHE_TTL", "5m"), 5*time.Minute)
	cfg.Status.CachePrefix = getEnv("STATUS_CACHE_PREFIX", "apd:camera:status:")

	return cfg
}

// Validate rejects settings the scheduler cannot run with.
func (c *Config) Validate() error {
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("MONITOR_INTERVAL must be positive, got %s", c.Monitor.Interval)
	}
	if c.Monitor.Workers <= 0 {
		return fmt.Errorf("MONITOR_WORKERS must be positive, got %d", c.Monitor.Workers)
	}
	if c.Monitor.CheckTimeout <= 0 {
		return fmt.Errorf("MONITOR_CHECK_TIMEOUT must be positive, got %s", c.Monitor.CheckTimeout)
	}
	if c.Events.Stream == "" {
		return fmt.Errorf("EVENTS_STREAM must not be empty")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// parseDuration accepts Go durations ("3s") or bare seconds ("3").
func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func hostnameOr(def string) string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return def
}
