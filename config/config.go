package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Authentication mode and ServiceNow OAuth client
//   - servicenow.go: ServiceNow instance configuration
//   - session.go: Session token signing and encryption
//   - redis.go: Session revocation store
//   - http.go: HTTP server configuration
type AppConfig struct {
	// IsDev controls development mode behavior (templates from disk, dev key fallback).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	ServiceNow ServiceNowConfig `envPrefix:"SERVICENOW_"`

	// Authentication configuration
	Auth AuthConfig

	Session SessionConfig `envPrefix:"SESSION_"`

	// Revocation store
	Redis RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	c.ServiceNow.Sanitize()
	c.Auth.Sanitize()
	c.Session.Sanitize()
	c.Redis.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// This is called by Sanitize() to ensure IsDev is set correctly.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// Validate reports every configuration problem that would stop the server from starting.
// Call it after Sanitize.
func (c *AppConfig) Validate() error {
	var errs []error
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs,
		c.ServiceNow.Validate(),
		c.Auth.Validate(),
		c.Session.Validate(c.IsDev),
		c.HTTP.Validate(),
		c.Observability.Validate(),
	)
	return errors.Join(errs...)
}

// ParseLogLevel maps LOG_LEVEL onto a slog level. An empty value means info.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
