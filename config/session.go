package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// MinSigningKeyLength matches the HS256 key size.
	MinSigningKeyLength = 32

	defaultSessionTTL        = 8 * time.Hour
	defaultSessionCookieName = "snowdash_session"
)

// SessionConfig controls the signed session token stored in the browser.
type SessionConfig struct {
	// SigningKey signs the session JWT. At least 32 bytes.
	SigningKey string `env:"SIGNING_KEY"`

	// EncryptionKey encrypts the ServiceNow credential inside the token.
	// 32 bytes, raw or base64. In dev mode it may be left empty and is derived from SigningKey.
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	TTL        time.Duration `env:"TTL"         envDefault:"8h"`
	CookieName string        `env:"COOKIE_NAME" envDefault:"snowdash_session"`
}

// Sanitize restores defaults for non-positive TTLs and blank cookie names.
func (c *SessionConfig) Sanitize() {
	if c.TTL <= 0 {
		c.TTL = defaultSessionTTL
	}
	c.CookieName = strings.TrimSpace(c.CookieName)
	if c.CookieName == "" {
		c.CookieName = defaultSessionCookieName
	}
	c.EncryptionKey = strings.TrimSpace(c.EncryptionKey)
}

// Validate checks key presence and length. The encryption key format is
// checked when it is parsed at startup.
func (c *SessionConfig) Validate(isDev bool) error {
	var errs []error
	switch {
	case c.SigningKey == "":
		errs = append(errs, errors.New("SESSION_SIGNING_KEY is required"))
	case len(c.SigningKey) < MinSigningKeyLength:
		errs = append(errs, fmt.Errorf("SESSION_SIGNING_KEY must be at least %d bytes", MinSigningKeyLength))
	}
	if c.EncryptionKey == "" && !isDev {
		errs = append(errs, errors.New("SESSION_ENCRYPTION_KEY is required outside dev mode"))
	}
	return errors.Join(errs...)
}
