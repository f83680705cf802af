// Package config loads the application configuration.
//
// LAYERS (lowest to highest priority):
//  1. Defaults(): the values in this file
//  2. A YAML file: $YAMDB_CONFIG, else ./config.yaml if present
//  3. Environment variables: YAMDB_* (see envMappings)
//
// Both binaries (cmd/server and cmd/yamdbctl) call Load, so a deployment
// configures them the same way.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Mail     MailConfig     `koanf:"mail"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr is the listen address, e.g. ":8080".
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	// Path to the SQLite file, or ":memory:".
	Path string `koanf:"path"`
}

type AuthConfig struct {
	JWTSecret           string        `koanf:"jwt_secret"`
	Issuer              string        `koanf:"issuer"`
	TokenTTL            time.Duration `koanf:"token_ttl"`
	ConfirmationCodeTTL time.Duration `koanf:"confirmation_code_ttl"`
	// BcryptCost for confirmation-code hashes. 0 means bcrypt.DefaultCost.
	BcryptCost int `koanf:"bcrypt_cost"`
}

// MailConfig selects and tunes the confirmation-code transport.
type MailConfig struct {
	Backend      string        `koanf:"backend"` // "log" or "smtp"
	From         string        `koanf:"from"`
	SMTPHost     string        `koanf:"smtp_host"`
	SMTPPort     int           `koanf:"smtp_port"`
	SMTPUsername string        `koanf:"smtp_username"`
	SMTPPassword string        `koanf:"smtp_password"`
	SMTPStartTLS bool          `koanf:"smtp_starttls"`
	SendTimeout  time.Duration `koanf:"send_timeout"`

	// Outbound throttle: sustained messages per second and burst size.
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`

	// Circuit breaker: open after this many consecutive failures, stay open
	// for BreakerTimeout before letting a probe through.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

type SecurityConfig struct {
	CORSOrigins []string `koanf:"cors_origins"`
	// Per-IP request budget for the whole API, and a tighter one for /auth.
	RateLimitRequests     int           `koanf:"rate_limit_requests"`
	AuthRateLimitRequests int           `koanf:"auth_rate_limit_requests"`
	RateLimitWindow       time.Duration `koanf:"rate_limit_window"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text or json
}

const (
	MailBackendLog  = "log"
	MailBackendSMTP = "smtp"

	minJWTSecretLen = 32
)

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "data/yamdb.db",
		},
		Auth: AuthConfig{
			Issuer:              "yamdb",
			TokenTTL:            24 * time.Hour,
			ConfirmationCodeTTL: 72 * time.Hour,
		},
		Mail: MailConfig{
			Backend:            MailBackendLog,
			From:               "noreply@yamdb.local",
			SMTPPort:           587,
			SendTimeout:        10 * time.Second,
			RatePerSecond:      5,
			Burst:              10,
			BreakerMaxFailures: 5,
			BreakerTimeout:     time.Minute,
		},
		API: APIConfig{
			DefaultPageSize: 5,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			CORSOrigins:           []string{"*"},
			RateLimitRequests:     300,
			AuthRateLimitRequests: 20,
			RateLimitWindow:       time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports every problem at once rather than stopping at the first.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if len(c.Auth.JWTSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d characters", minJWTSecretLen))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Auth.ConfirmationCodeTTL <= 0 {
		errs = append(errs, errors.New("auth.confirmation_code_ttl must be positive"))
	}

	switch c.Mail.Backend {
	case MailBackendLog:
	case MailBackendSMTP:
		if c.Mail.SMTPHost == "" {
			errs = append(errs, errors.New("mail.smtp_host is required for the smtp backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("mail.backend must be %q or %q, got %q",
			MailBackendLog, MailBackendSMTP, c.Mail.Backend))
	}
	if c.Mail.From == "" {
		errs = append(errs, errors.New("mail.from is required"))
	}

	if c.API.DefaultPageSize < 1 || c.API.MaxPageSize < c.API.DefaultPageSize {
		errs = append(errs, fmt.Errorf("api page sizes invalid: default=%d max=%d",
			c.API.DefaultPageSize, c.API.MaxPageSize))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
