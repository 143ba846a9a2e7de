// Package config loads the application configuration from environment
// variables (with optional .env file), command line flags and built-in
// defaults, and validates the result.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	// RunAddr is the address:port the HTTP server listens on.
	RunAddr  string `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel string `env:"LOG_LEVEL" validate:"loglevel"`

	DatabaseDSN         string        `env:"DATABASE_URL"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR"`

	SecretKey                string `env:"SECRET_KEY"`
	Algorithm                string `env:"ALGORITHM" validate:"oneof=HS256"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" validate:"gt=0"`

	AppName     string `env:"APP_NAME" validate:"required"`
	Debug       bool   `env:"DEBUG"`
	Environment string `env:"ENVIRONMENT" validate:"oneof=development staging production"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	FromEmail    string `env:"FROM_EMAIL" validate:"email"`
	FrontendURL  string `env:"FRONTEND_URL" validate:"url"`

	CORSOrigins  []string `env:"CORS_ORIGINS" envSeparator:","`
	AllowedHosts []string `env:"ALLOWED_HOSTS" envSeparator:","`

	SendWelcomeEmails   bool `env:"SEND_WELCOME_EMAILS"`
	SendAnalyticsEmails bool `env:"SEND_ANALYTICS_EMAILS"`

	PasswordResetExpireMinutes int `env:"PASSWORD_RESET_EXPIRE_MINUTES" validate:"gt=0"`

	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" validate:"gt=0"`

	// GeoIPDBPath points at a MaxMind country database. Empty disables
	// country resolution for click events.
	GeoIPDBPath string `env:"GEOIP_DB_PATH"`

	ClickQueueCapacity int           `env:"CLICK_QUEUE_CAPACITY" validate:"gt=0"`
	ClickFlushInterval time.Duration `env:"CLICK_FLUSH_INTERVAL"`
}

var defaultConfig = Config{
	RunAddr:                    ":8080",
	LogLevel:                   "info",
	DBConnectionTimeout:        10 * time.Second,
	MigrationsDir:              "./migrations",
	Algorithm:                  "HS256",
	AccessTokenExpireMinutes:   30,
	AppName:                    "BioTap",
	Debug:                      false,
	Environment:                "development",
	FromEmail:                  "onboarding@resend.dev",
	FrontendURL:                "http://localhost:3000",
	CORSOrigins:                []string{"http://localhost:3000", "http://localhost:5173"},
	AllowedHosts:               []string{"localhost", "127.0.0.1"},
	SendWelcomeEmails:          true,
	SendAnalyticsEmails:        true,
	PasswordResetExpireMinutes: 30,
	RateLimitPerMinute:         60,
	ClickQueueCapacity:         1024,
	ClickFlushInterval:         5 * time.Second,
}

// IsProduction reports whether the service runs with production
// hardening (trusted hosts, security headers, scheduler) enabled.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || !c.Debug
}

// AccessTokenTTL returns the configured access token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// PasswordResetTTL returns the configured reset token lifetime.
func (c *Config) PasswordResetTTL() time.Duration {
	return time.Duration(c.PasswordResetExpireMinutes) * time.Minute
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Environment == "production" {
		if c.SecretKey == "" {
			return errors.New("SECRET_KEY is required in production")
		}
		if c.ResendAPIKey == "" {
			return errors.New("RESEND_API_KEY is required in production")
		}
	}

	return nil
}

// InitOption configures the New constructor.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing disables command line flag parsing.
// It is used by tests, where the flag set is owned by `go test`.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds a Config from defaults, flags and environment (in that
// order of precedence, environment winning) and validates it.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	if !options.disableFlagsParsing {
		flag.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port to run server")
		flag.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
		flag.StringVar(&values.DatabaseDSN, "d", values.DatabaseDSN, "database connection string")
		flag.StringVar(&values.MigrationsDir, "m", values.MigrationsDir, "directory with goose migrations")
		flag.Parse()
	}

	if err := env.Parse(values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	if values.SecretKey == "" && values.Environment != "production" {
		// Development fallback so a bare checkout starts.
		values.SecretKey = "dev-secret-key-change-me"
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}
