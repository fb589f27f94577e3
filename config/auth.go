package config

import (
	"errors"
	"fmt"
	"strings"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeBasic verifies a username/password pair against the instance's sys_user table.
	AuthModeBasic AuthMode = "basic"
	// AuthModeOAuth uses the ServiceNow OAuth authorization-code grant.
	AuthModeOAuth AuthMode = "oauth"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "basic", "oauth":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: basic, oauth)", v)
	}
}

// OAuthConfig contains the ServiceNow OAuth application registration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL" envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"OAUTH_SCOPE"  envDefault:"useraccount"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which credential exchanger the deployment uses.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"basic"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"SERVICENOW_"`
}

// Sanitize trims the OAuth client settings.
func (c *AuthConfig) Sanitize() {
	if c.Mode == "" {
		c.Mode = AuthModeBasic
	}
	c.OAuth.ClientID = strings.TrimSpace(c.OAuth.ClientID)
	c.OAuth.RedirectURL = strings.TrimSpace(c.OAuth.RedirectURL)
	c.OAuth.Scope = strings.TrimSpace(c.OAuth.Scope)
}

// Validate requires the OAuth client registration only in oauth mode.
func (c *AuthConfig) Validate() error {
	if c.Mode != AuthModeOAuth {
		return nil
	}
	var errs []error
	if c.OAuth.ClientID == "" {
		errs = append(errs, errors.New("SERVICENOW_CLIENT_ID is required when AUTH_MODE=oauth"))
	}
	if c.OAuth.ClientSecret == "" {
		errs = append(errs, errors.New("SERVICENOW_CLIENT_SECRET is required when AUTH_MODE=oauth"))
	}
	if c.OAuth.RedirectURL == "" {
		errs = append(errs, errors.New("SERVICENOW_REDIRECT_URL is required when AUTH_MODE=oauth"))
	}
	return errors.Join(errs...)
}
