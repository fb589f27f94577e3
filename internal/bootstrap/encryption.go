package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/snowdash/config"
	"github.com/target/snowdash/internal/adapters/jwtsession"
	"github.com/target/snowdash/internal/data/cryptoutil"
)

const devKeyPurpose = "snowdash session credential"

// SessionCodecConfig contains configuration for the session token codec.
type SessionCodecConfig struct {
	Session config.SessionConfig
	IsDev   bool
	Logger  *slog.Logger
	Now     func() time.Time
}

// BuildSessionCodec creates the JWT codec that signs session tokens and encrypts
// the ServiceNow credential inside them.
func BuildSessionCodec(cfg SessionCodecConfig) (*jwtsession.Codec, error) {
	key, err := sessionEncryptionKey(cfg)
	if err != nil {
		return nil, err
	}

	enc, err := cryptoutil.NewAESGCMEncryptor(key)
	if err != nil {
		return nil, fmt.Errorf("create session encryptor: %w", err)
	}

	codec, err := jwtsession.New(jwtsession.Config{
		SigningKey: []byte(cfg.Session.SigningKey),
		Encryptor:  enc,
		Now:        cfg.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("create session codec: %w", err)
	}
	return codec, nil
}

// sessionEncryptionKey parses SESSION_ENCRYPTION_KEY. Only dev mode may derive
// the key from the signing key.
func sessionEncryptionKey(cfg SessionCodecConfig) ([]byte, error) {
	if cfg.Session.EncryptionKey != "" {
		key, err := cryptoutil.ParseKey(cfg.Session.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("SESSION_ENCRYPTION_KEY: %w", err)
		}
		return key, nil
	}
	if !cfg.IsDev {
		return nil, errors.New("SESSION_ENCRYPTION_KEY is required outside dev mode")
	}
	if cfg.Logger != nil {
		cfg.Logger.Warn("SESSION_ENCRYPTION_KEY not set; deriving a dev key from the signing key")
	}
	return cryptoutil.DeriveKey(cfg.Session.SigningKey, devKeyPurpose), nil
}
