package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Session  SessionConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" envDefault:"account-portal"`
	Env                   string `env:"APP_ENV" envDefault:"development" validate:"oneof=development test production"`
	Host                  string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"APP_PORT" envDefault:"8080" validate:"required,numeric"`
	Version               string `env:"APP_VERSION" envDefault:"dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30" validate:"gte=0"`
}

// DatabaseConfig holds DB connection values.
type DatabaseConfig struct {
	Driver         string `env:"DB_DRIVER" envDefault:"sqlite" validate:"oneof=postgres sqlite"`
	DSN            string `env:"DB_DSN" envDefault:"account-portal.db" validate:"required"`
	MaxConns       int32  `env:"DB_MAX_CONNS" envDefault:"10" validate:"gte=0"`
	MinConns       int32  `env:"DB_MIN_CONNS" envDefault:"2" validate:"gte=0"`
	RunMigrations  bool   `env:"DB_RUN_MIGRATIONS" envDefault:"true"`
	ConnMaxIdleSec int32  `env:"DB_CONN_MAX_IDLE_SECONDS" envDefault:"30" validate:"gte=0"`
	ConnMaxLifeSec int32  `env:"DB_CONN_MAX_LIFE_SECONDS" envDefault:"300" validate:"gte=0"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
}

// AuthConfig defines password hashing parameters.
type AuthConfig struct {
	HashAlgorithm    string `env:"AUTH_HASH_ALGORITHM" envDefault:"pbkdf2" validate:"oneof=pbkdf2 bcrypt"`
	PBKDF2Iterations int    `env:"AUTH_PBKDF2_ITERATIONS" envDefault:"600000" validate:"gte=1000"`
	BcryptCost       int    `env:"AUTH_BCRYPT_COST" envDefault:"12" validate:"gte=4,lte=31"`
}

// SessionConfig defines the login session and its cookie.
type SessionConfig struct {
	// SecretKey is a base64 AES key (16, 24 or 32 bytes) used to encrypt cookies.
	SecretKey          string `env:"SESSION_SECRET_KEY"`
	CookieName         string `env:"SESSION_COOKIE_NAME" envDefault:"portal_session" validate:"required"`
	Storage            string `env:"SESSION_STORAGE" envDefault:"memory" validate:"oneof=memory redis"`
	IdleTimeoutMinutes int    `env:"SESSION_IDLE_TIMEOUT_MINUTES" envDefault:"30" validate:"gt=0"`
	MaxLifetimeHours   int    `env:"SESSION_MAX_LIFETIME_HOURS" envDefault:"12" validate:"gt=0"`
	CookieSecure       bool   `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field rules and the cross-field requirements of production mode.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Session.SecretKey == "" {
		if c.App.Env == "production" {
			return errors.New("SESSION_SECRET_KEY is required in production")
		}
		return nil
	}
	if err := checkAESKey(c.Session.SecretKey); err != nil {
		return fmt.Errorf("invalid SESSION_SECRET_KEY: %w", err)
	}
	return nil
}

func checkAESKey(key string) error {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return err
	}
	switch len(raw) {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("decoded key is %d bytes, want 16, 24 or 32", len(raw))
	}
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

// IdleTimeout returns how long an untouched session survives.
func (s SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutMinutes) * time.Minute
}

// MaxLifetime returns the absolute session lifetime.
func (s SessionConfig) MaxLifetime() time.Duration {
	return time.Duration(s.MaxLifetimeHours) * time.Hour
}
