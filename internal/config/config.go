package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	SnowflakeNode int64
	BotConfigPath string

	DBType             string
	DBHost             string
	DBPort             string
	DBName             string
	DBUser             string
	DBPassword         string
	DBSSLMode          string
	DBSQLitePath       string
	DBMinConn          int
	DBMaxConn          int
	DBConnMaxLifetime  int
	DBConnMaxIdleTime  int
	DBAcquireTimeoutMS int

	Lock      LockConfig
	RateLimit RateLimitConfig
}

// LockConfig selects the backend used to serialize clan mutations.
type LockConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	WaitTimeout   time.Duration
}

// RateLimitConfig throttles command invocations per caller. It shares the
// Redis connection settings of LockConfig.
type RateLimitConfig struct {
	Enabled      bool
	CommandRate  float64
	CommandBurst int
}

const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:            getenv("APP_SERVICE", "clanbot"),
		AppVersion:         getenv("APP_VERSION", "0.1.0"),
		Environment:        getenv("ENVIRONMENT", "development"),
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:       getenv("OTLP_ENDPOINT", "localhost:4317"),
		SnowflakeNode:      getenvInt64("SNOWFLAKE_NODE", 1),
		BotConfigPath:      strings.TrimSpace(getenv("BOT_CONFIG_PATH", "")),
		DBType:             strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBHost:             getenv("DATABASE_HOST", "localhost"),
		DBPort:             getenv("DATABASE_PORT", "5432"),
		DBName:             getenv("DATABASE_NAME", "clanbot"),
		DBUser:             getenv("DATABASE_USER", "postgres"),
		DBPassword:         getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:          getenv("DATABASE_SSLMODE", "disable"),
		DBSQLitePath:       getenv("DATABASE_SQLITE_PATH", "clanbot.db"),
		DBMinConn:          getenvInt("DATABASE_MIN_CONN", 1),
		DBMaxConn:          getenvInt("DATABASE_MAX_CONN", 10),
		DBConnMaxLifetime:  getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:  getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBAcquireTimeoutMS: getenvInt("DATABASE_ACQUIRE_TIMEOUT_MS", 5000),
		Lock: LockConfig{
			Backend:       normalizeLockBackend(getenv("LOCK_BACKEND", LockBackendLocal)),
			RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("REDIS_DB", 0),
			TTL:           time.Duration(getenvInt("LOCK_TTL_SECONDS", 30)) * time.Second,
			WaitTimeout:   time.Duration(getenvInt("LOCK_WAIT_TIMEOUT_MS", 10000)) * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			Enabled:      getenvBool("RATE_LIMIT_ENABLED", false),
			CommandRate:  getenvFloat("RATE_LIMIT_COMMAND_RATE", 0.5),
			CommandBurst: getenvInt("RATE_LIMIT_COMMAND_BURST", 5),
		},
	}

	if cfg.DBMinConn < 0 {
		cfg.DBMinConn = 0
	}
	if cfg.DBMaxConn < 1 {
		cfg.DBMaxConn = 1
	}
	if cfg.DBMinConn > cfg.DBMaxConn {
		cfg.DBMinConn = cfg.DBMaxConn
	}

	return cfg
}

func (c Config) AcquireTimeout() time.Duration {
	if c.DBAcquireTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(c.DBAcquireTimeoutMS) * time.Millisecond
}

func normalizeLockBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case LockBackendRedis:
		return LockBackendRedis
	default:
		return LockBackendLocal
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
