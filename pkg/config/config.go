package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every environment variable is read exactly once, here.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Domain
	Fetcher   FetcherConfig
	Scheduler SchedulerConfig
	Calendar  CalendarConfig
	Momentum  MomentumWeightsConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// FetcherConfig holds upstream market-data provider configuration.
type FetcherConfig struct {
	BaseURL string

	// Cooperative per-request throttling, enforced with a local token bucket
	// in addition to any distributed (Redis) limiter.
	SingleInterval      time.Duration // min spacing between single-symbol requests
	BatchInterval       time.Duration // min spacing between batch requests
	FundamentalInterval time.Duration // min spacing between fundamentals requests
	BatchSize           int

	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

// SchedulerConfig controls the cron-driven poller cadence.
type SchedulerConfig struct {
	PriceTickCron     string // cron expression (with seconds) for the price poller tick
	AttributeTickCron string // cron expression for the attribute poller cycle
	InstanceID        int    // 1 or 2, used to shard attribute polling across replicas
	MaxRetries        int    // retry ceiling before a pending op is considered exhausted
	RateLimitCooldown time.Duration
}

// CalendarConfig configures the IST market calendar.
type CalendarConfig struct {
	Timezone   string // IANA zone, e.g. "Asia/Kolkata"
	OpenHour   int
	OpenMinute int
	CloseHour  int
	CloseMinute int
}

// MomentumWeightsConfig holds the default Quality Momentum Score weights,
// overridable at runtime via UpdateMomentumWeights.
type MomentumWeightsConfig struct {
	RawMomentum6M   float64
	RawMomentum3M   float64
	SmoothMomentum  float64
	VolAdjMomentum  float64
	ConsistencyScore float64
	TrendStrength   float64
}

// Load reads configuration from environment variables.
// This is the only function in the package that calls os.Getenv.
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "rankengine"),
			User:            getEnv("DB_USER", "rankengine"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Fetcher: FetcherConfig{
			BaseURL:             getEnv("FETCHER_BASE_URL", ""),
			SingleInterval:      getEnvAsDuration("FETCHER_SINGLE_INTERVAL", "1s"),
			BatchInterval:       getEnvAsDuration("FETCHER_BATCH_INTERVAL", "1s"),
			FundamentalInterval: getEnvAsDuration("FETCHER_FUNDAMENTAL_INTERVAL", "3s"),
			BatchSize:           getEnvAsInt("FETCHER_BATCH_SIZE", 50),
			RequestTimeout:      getEnvAsDuration("FETCHER_REQUEST_TIMEOUT", "15s"),
			MaxRetries:          getEnvAsInt("FETCHER_MAX_RETRIES", 3),
			RetryDelay:          getEnvAsDuration("FETCHER_RETRY_DELAY", "1s"),
		},

		Scheduler: SchedulerConfig{
			PriceTickCron:     getEnv("SCHEDULER_PRICE_TICK_CRON", "0 * * * * *"),
			AttributeTickCron: getEnv("SCHEDULER_ATTRIBUTE_TICK_CRON", "0 */5 * * * *"),
			InstanceID:        getEnvAsInt("SCHEDULER_INSTANCE_ID", 1),
			MaxRetries:        getEnvAsInt("SCHEDULER_MAX_RETRIES", 5),
			RateLimitCooldown: getEnvAsDuration("SCHEDULER_RATE_LIMIT_COOLDOWN", "5m"),
		},

		Calendar: CalendarConfig{
			Timezone:    getEnv("CALENDAR_TIMEZONE", "Asia/Kolkata"),
			OpenHour:    getEnvAsInt("CALENDAR_OPEN_HOUR", 9),
			OpenMinute:  getEnvAsInt("CALENDAR_OPEN_MINUTE", 15),
			CloseHour:   getEnvAsInt("CALENDAR_CLOSE_HOUR", 15),
			CloseMinute: getEnvAsInt("CALENDAR_CLOSE_MINUTE", 30),
		},

		Momentum: MomentumWeightsConfig{
			RawMomentum6M:    getEnvAsFloat("MOMENTUM_WEIGHT_RAW_6M", 0.30),
			RawMomentum3M:    getEnvAsFloat("MOMENTUM_WEIGHT_RAW_3M", 0.20),
			SmoothMomentum:   getEnvAsFloat("MOMENTUM_WEIGHT_SMOOTH", 0.25),
			VolAdjMomentum:   getEnvAsFloat("MOMENTUM_WEIGHT_VOL_ADJ", 0.15),
			ConsistencyScore: getEnvAsFloat("MOMENTUM_WEIGHT_CONSISTENCY", 0.05),
			TrendStrength:    getEnvAsFloat("MOMENTUM_WEIGHT_TREND", 0.05),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Scheduler.InstanceID != 1 && c.Scheduler.InstanceID != 2 {
		return fmt.Errorf("SCHEDULER_INSTANCE_ID must be 1 or 2")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
