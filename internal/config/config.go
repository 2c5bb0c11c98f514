package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Assignment   AssignmentConfig
	Automation   AutomationConfig
	Scheduler    SchedulerConfig
	Tagging      TaggingConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AssignmentConfig bounds capacity-reservation retries on contention.
type AssignmentConfig struct {
	ReserveRetries          int
	RetryBackoffMs          int
	PositionCacheTTLSeconds int
}

// AutomationConfig parameterizes the rule engine and retention policy.
type AutomationConfig struct {
	InactiveDays           int
	OverloadThreshold      int
	UnderutilizedThreshold int
	SweepBatchSize         int
	RetentionDays          int
}

// SchedulerConfig holds background task intervals.
type SchedulerConfig struct {
	Enabled            bool
	DrainIntervalSec   int
	BalanceIntervalSec int
	ReapIntervalSec    int
	SweepIntervalSec   int
}

// TaggingConfig configures the tag-inference collaborator.
type TaggingConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// NotificationConfig holds the audit/notification sink endpoint.
type NotificationConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "supportix"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Assignment: AssignmentConfig{
			ReserveRetries:          getEnvAsInt("ASSIGN_RESERVE_RETRIES", 3),
			RetryBackoffMs:          getEnvAsInt("ASSIGN_RETRY_BACKOFF_MS", 25),
			PositionCacheTTLSeconds: getEnvAsInt("ASSIGN_POSITION_CACHE_TTL_SECONDS", 30),
		},
		Automation: AutomationConfig{
			InactiveDays:           getEnvAsInt("AUTOMATION_INACTIVE_DAYS", 90),
			OverloadThreshold:      getEnvAsInt("AUTOMATION_OVERLOAD_THRESHOLD", 50),
			UnderutilizedThreshold: getEnvAsInt("AUTOMATION_UNDERUTILIZED_THRESHOLD", 10),
			SweepBatchSize:         getEnvAsInt("AUTOMATION_SWEEP_BATCH_SIZE", 100),
			RetentionDays:          getEnvAsInt("AUTOMATION_RETENTION_DAYS", 60),
		},
		Scheduler: SchedulerConfig{
			Enabled:            getEnvAsBool("SCHEDULER_ENABLED", true),
			DrainIntervalSec:   getEnvAsInt("SCHEDULER_DRAIN_INTERVAL_SECONDS", 30),
			BalanceIntervalSec: getEnvAsInt("SCHEDULER_BALANCE_INTERVAL_SECONDS", 120),
			ReapIntervalSec:    getEnvAsInt("SCHEDULER_REAP_INTERVAL_SECONDS", 3600),
			SweepIntervalSec:   getEnvAsInt("SCHEDULER_SWEEP_INTERVAL_SECONDS", 600),
		},
		Tagging: TaggingConfig{
			APIKey:         os.Getenv("TAGGING_API_KEY"),
			BaseURL:        getEnv("TAGGING_BASE_URL", "https://api.openai.com/v1"),
			Model:          getEnv("TAGGING_MODEL", "gpt-3.5-turbo"),
			TimeoutSeconds: getEnvAsInt("TAGGING_TIMEOUT_SECONDS", 30),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RetryBackoff returns the per-attempt backoff for capacity reservation.
func (a AssignmentConfig) RetryBackoff() time.Duration {
	if a.RetryBackoffMs <= 0 {
		return 0
	}
	return time.Duration(a.RetryBackoffMs) * time.Millisecond
}

// PositionCacheTTL returns the queue-position cache lifetime.
func (a AssignmentConfig) PositionCacheTTL() time.Duration {
	if a.PositionCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(a.PositionCacheTTLSeconds) * time.Second
}

// Retention returns the reaper retention window.
func (a AutomationConfig) Retention() time.Duration {
	return time.Duration(a.RetentionDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
