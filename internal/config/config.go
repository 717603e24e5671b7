// Package config loads application configuration from environment
// variables with optional command-line flag overrides.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the server.
type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Loyalty  LoyaltyConfig
	Stock    StockConfig
	Log      LogConfig
}

// HTTPConfig configures the REST listener.
type HTTPConfig struct {
	Address         string        `env:"HTTP_ADDRESS" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig configures the Postgres pool.
type DatabaseConfig struct {
	DSN              string        `env:"DATABASE_DSN,required"`
	MaxConns         int32         `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	MinConns         int32         `env:"DATABASE_MIN_CONNS" envDefault:"2"`
	StatementTimeout time.Duration `env:"DATABASE_STATEMENT_TIMEOUT" envDefault:"30s"`
	MigrateOnStart   bool          `env:"DATABASE_MIGRATE_ON_START" envDefault:"true"`
}

// AuthConfig configures token issuing.
type AuthConfig struct {
	JWTSecret string        `env:"AUTH_JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"8h"`
	Issuer    string        `env:"AUTH_ISSUER" envDefault:"pharmapos"`
}

// LoyaltyConfig configures point accrual and redemption.
type LoyaltyConfig struct {
	// PointsPerUnit is the currency amount that earns one point.
	PointsPerUnit int `env:"LOYALTY_POINTS_PER_UNIT" envDefault:"10"`
	// PointValue is the currency value of a single redeemed point.
	PointValue string `env:"LOYALTY_POINT_VALUE" envDefault:"0.1"`
	// AccrualRule optionally overrides the built-in accrual formula with
	// a CEL expression over `amount` and `points_per_unit`.
	AccrualRule string `env:"LOYALTY_ACCRUAL_RULE" envDefault:""`
}

// StockConfig configures inventory alerting.
type StockConfig struct {
	DefaultThreshold int `env:"STOCK_DEFAULT_THRESHOLD" envDefault:"10"`
	ExpiryAlertDays  int `env:"STOCK_EXPIRY_ALERT_DAYS" envDefault:"30"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Development bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

// Load reads configuration from .env (if present), the environment, and
// command-line flags. Flags win over environment values.
func Load(args []string) (*Config, error) {
	// .env is optional; missing file is not an error.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	fs := flag.NewFlagSet("pharmapos", flag.ContinueOnError)
	fs.StringVar(&cfg.HTTP.Address, "a", cfg.HTTP.Address, "HTTP listen address")
	fs.StringVar(&cfg.Database.DSN, "d", cfg.Database.DSN, "Postgres DSN")
	fs.StringVar(&cfg.Log.Level, "l", cfg.Log.Level, "log level")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Loyalty.PointsPerUnit <= 0 {
		return fmt.Errorf("loyalty points per unit must be positive")
	}
	if c.Stock.DefaultThreshold < 0 {
		return fmt.Errorf("stock threshold must not be negative")
	}
	return nil
}
