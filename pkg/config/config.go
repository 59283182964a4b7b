package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Zones     ZonesConfig
	Lifecycle LifecycleConfig
	RollUp    RollUpConfig
	Reports   ReportsConfig
	Service   ServiceConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the shared secret used to validate tokens issued by the
// external identity provider.
type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ZonesConfig tunes per-user view state retention and the sweep schedule.
type ZonesConfig struct {
	ExpandedRetention  time.Duration
	ClipboardRetention time.Duration
	SweepInterval      time.Duration
}

// LifecycleConfig bounds the internal retries of zone purges.
type LifecycleConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// RollUpConfig governs size aggregate caching and the recompute workers.
type RollUpConfig struct {
	CacheTTL          time.Duration
	WorkerConcurrency int
	QueueSize         int
}

// ReportsConfig configures storage usage report generation.
type ReportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// ServiceConfig guards machine-to-machine endpoints (zone purges) with a
// bcrypt-hashed key shared with the hierarchy management system.
type ServiceConfig struct {
	KeyHash string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Zones = ZonesConfig{
		ExpandedRetention:  parseDuration(v.GetString("EXPANDED_RETENTION"), 30*24*time.Hour),
		ClipboardRetention: parseDuration(v.GetString("CLIPBOARD_RETENTION"), 24*time.Hour),
		SweepInterval:      parseDuration(v.GetString("SWEEP_INTERVAL"), time.Hour),
	}

	cfg.Lifecycle = LifecycleConfig{
		MaxRetries: v.GetInt("PURGE_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("PURGE_RETRY_DELAY"), time.Second),
	}

	cfg.RollUp = RollUpConfig{
		CacheTTL:          parseDuration(v.GetString("ROLLUP_CACHE_TTL"), 10*time.Minute),
		WorkerConcurrency: v.GetInt("RECOMPUTE_WORKER_CONCURRENCY"),
		QueueSize:         v.GetInt("RECOMPUTE_QUEUE_SIZE"),
	}

	cfg.Reports = ReportsConfig{
		StorageDir:      v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 30*time.Minute),
	}

	cfg.Service = ServiceConfig{
		KeyHash: v.GetString("SERVICE_KEY_HASH"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "filezones")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("EXPANDED_RETENTION", "720h")
	v.SetDefault("CLIPBOARD_RETENTION", "24h")
	v.SetDefault("SWEEP_INTERVAL", "1h")

	v.SetDefault("PURGE_MAX_RETRIES", 3)
	v.SetDefault("PURGE_RETRY_DELAY", "1s")

	v.SetDefault("ROLLUP_CACHE_TTL", "10m")
	v.SetDefault("RECOMPUTE_WORKER_CONCURRENCY", 2)
	v.SetDefault("RECOMPUTE_QUEUE_SIZE", 64)

	v.SetDefault("REPORTS_STORAGE_DIR", "./reports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "30m")

	v.SetDefault("SERVICE_KEY_HASH", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
