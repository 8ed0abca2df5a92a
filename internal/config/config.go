package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the Marginalia server.
type Config struct {
	DBPath         string
	ServerPort     int
	LogLevel       string
	SentryDSN      string
	Environment    string
	SessionTTL     time.Duration
	AdminUsername  string
	AdminPassword  string
	AdminEmail     string
	RateLimitRPS   float64
	RateLimitBurst int
	RateLimitTTL   time.Duration
	ShutdownGrace  time.Duration
}

const (
	defaultDBPath         = "./data/marginalia.db"
	defaultServerPort     = 8080
	defaultLogLevel       = "info"
	defaultEnvironment    = "development"
	defaultSessionTTL     = 30 * 24 * time.Hour
	defaultRateLimitRPS   = 10
	defaultRateLimitBurst = 20
	defaultRateLimitTTL   = 10 * time.Minute
	defaultShutdownGrace  = 10 * time.Second
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:         getEnv("DB_PATH", defaultDBPath),
		LogLevel:       getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:      os.Getenv("SENTRY_DSN"),
		Environment:    getEnv("ENV", defaultEnvironment),
		AdminUsername:  os.Getenv("ADMIN_USERNAME"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		SessionTTL:     defaultSessionTTL,
		RateLimitRPS:   defaultRateLimitRPS,
		RateLimitBurst: defaultRateLimitBurst,
		RateLimitTTL:   defaultRateLimitTTL,
		ShutdownGrace:  defaultShutdownGrace,
	}

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SERVER_PORT value: %s", portValue)
	}
	cfg.ServerPort = port

	if ttlValue := os.Getenv("SESSION_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid SESSION_TTL value: %s", ttlValue)
		}
		cfg.SessionTTL = ttl
	}

	if rpsValue := os.Getenv("RATE_LIMIT_RPS"); rpsValue != "" {
		rps, err := strconv.ParseFloat(rpsValue, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid RATE_LIMIT_RPS value: %s", rpsValue)
		}
		cfg.RateLimitRPS = rps
	}

	if burstValue := os.Getenv("RATE_LIMIT_BURST"); burstValue != "" {
		burst, err := strconv.Atoi(burstValue)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid RATE_LIMIT_BURST value: %s", burstValue)
		}
		cfg.RateLimitBurst = burst
	}

	if ttlValue := os.Getenv("RATE_LIMIT_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid RATE_LIMIT_TTL value: %s", ttlValue)
		}
		cfg.RateLimitTTL = ttl
	}

	if graceValue := os.Getenv("SHUTDOWN_GRACE"); graceValue != "" {
		grace, err := time.ParseDuration(graceValue)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid SHUTDOWN_GRACE value: %s", graceValue)
		}
		cfg.ShutdownGrace = grace
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
