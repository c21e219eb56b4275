package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

type Config struct {
	ServerPort         string        `env:"SERVER_PORT" envDefault:"8080"`
	APIPrefix          string        `env:"API_PREFIX" envDefault:"/api/v1"`
	StoreDriver        string        `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL        string        `env:"DATABASE_URL"`
	DatabaseName       string        `env:"DATABASE_NAME" envDefault:"authcore"`
	RedisURL           string        `env:"REDIS_URL"`
	AccountCacheTTL    time.Duration `env:"ACCOUNT_CACHE_TTL" envDefault:"5m"`
	JWTSecret          string        `env:"JWT_SECRET"`
	JWTAlgorithm       string        `env:"JWT_ALGORITHM" envDefault:"HS256"`
	JWTExpiry          time.Duration `env:"JWT_EXPIRY" envDefault:"30m"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	OTelEndpoint       string        `env:"OTEL_EXPORTER_ENDPOINT"`
}

// LoadConfig reads the process configuration from the environment. It is
// called once at startup; the returned value is treated as read-only.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.StoreDriver != StoreDriverMemory {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMongo, StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if _, ok := jwt.GetSigningMethod(c.JWTAlgorithm).(*jwt.SigningMethodHMAC); !ok {
		return fmt.Errorf("JWT_ALGORITHM %q is not an HMAC algorithm", c.JWTAlgorithm)
	}
	if c.JWTExpiry <= 0 {
		return errors.New("JWT_EXPIRY must be positive")
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		return errors.New("API_PREFIX must start with /")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
