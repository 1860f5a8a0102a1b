package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig Postgres connection
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig phase-change publishing (disabled by default)
type MQTTConfig struct {
	Enabled     bool
	Broker      string // e.g. "tcp://localhost:1883"
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	TopicPrefix string // events go to <TopicPrefix>/<user_id>/adaptation
}

// Config polysleep service configuration
type Config struct {
	ServiceName string
	HTTP        struct {
		Addr string
	}

	DBEnabled bool
	Database  DatabaseConfig

	RedisEnabled bool
	Redis        RedisConfig

	MQTT MQTTConfig

	Notify struct {
		Stream       string // Redis stream for adaptation events; empty disables
		StreamMaxLen int64
		WebhookURL   string // empty disables
		WebhookRetry int
		WebhookTO    time.Duration
	}

	Log struct {
		Level  string
		Format string
	}

	Adaptation struct {
		Timezone          string
		Location          *time.Location
		ReconcileInterval time.Duration // <= 0 disables the reconciler
	}

	Undo struct {
		KeyPrefix       string
		StreakKeyPrefix string
		TTL             time.Duration
	}

	Catalog struct {
		File string // optional xlsx extending the built-in templates
	}
}

func Load() (*Config, error) {
	cfg := &Config{}
	cfg.ServiceName = getEnv("SERVICE_NAME", "polysleep")
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// DB/Redis fall back to in-memory stores when disabled or unreachable
	cfg.DBEnabled = parseBool(getEnv("DB_ENABLED", "true"), true)
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "polysleep")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.RedisEnabled = parseBool(getEnv("REDIS_ENABLED", "true"), true)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.MQTT.Enabled = parseBool(getEnv("MQTT_ENABLED", "false"), false)
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "polysleep")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))
	cfg.MQTT.TopicPrefix = strings.TrimSuffix(getEnv("MQTT_TOPIC_PREFIX", "polysleep"), "/")

	cfg.Notify.Stream = getEnv("NOTIFY_STREAM", "polysleep:adaptation-events")
	cfg.Notify.StreamMaxLen = int64(parseInt(getEnv("NOTIFY_STREAM_MAXLEN", "10000"), 10000))
	cfg.Notify.WebhookURL = getEnv("NOTIFY_WEBHOOK_URL", "")
	cfg.Notify.WebhookRetry = parseInt(getEnv("NOTIFY_WEBHOOK_RETRY", "3"), 3)
	cfg.Notify.WebhookTO = parseDuration(getEnv("NOTIFY_WEBHOOK_TIMEOUT", "10s"), 10*time.Second)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Adaptation.Timezone = getEnv("ADAPTATION_TIMEZONE", "UTC")
	cfg.Adaptation.ReconcileInterval = parseDuration(getEnv("RECONCILE_INTERVAL", "5m"), 5*time.Minute)

	cfg.Undo.KeyPrefix = getEnv("UNDO_KEY_PREFIX", "polysleep:undo:")
	cfg.Undo.StreakKeyPrefix = getEnv("STREAK_KEY_PREFIX", "polysleep:streak:")
	cfg.Undo.TTL = parseDuration(getEnv("UNDO_TTL", "48h"), 48*time.Hour)

	cfg.Catalog.File = getEnv("CATALOG_FILE", "")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no sensible fallback and resolves the timezone
func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.Adaptation.Timezone)
	if err != nil {
		return fmt.Errorf("invalid ADAPTATION_TIMEZONE %q: %w", c.Adaptation.Timezone, err)
	}
	c.Adaptation.Location = loc

	if c.HTTP.Addr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("MQTT_BROKER is required when MQTT_ENABLED=true")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.Undo.TTL < 24*time.Hour {
		return fmt.Errorf("UNDO_TTL must cover at least one day, got %s", c.Undo.TTL)
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

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
