// Package jwtsession encodes sessions as HS256-signed JWTs. The ServiceNow
// credential travels inside the token encrypted, so the cookie value is
// opaque to the browser.
package jwtsession

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/target/snowdash/internal/data/cryptoutil"
	domainauth "github.com/target/snowdash/internal/domain/auth"
	"github.com/target/snowdash/internal/ports"
)

// MinKeyLength is the minimum HMAC key size accepted.
const MinKeyLength = 32

// DefaultIssuer is used when Config.Issuer is empty.
const DefaultIssuer = "snowdash"

var (
	// ErrInvalidToken covers malformed, tampered or undecryptable tokens.
	ErrInvalidToken = errors.New("jwtsession: invalid token")
	// ErrExpired is returned for well-formed tokens past their exp claim.
	ErrExpired = ports.ErrSessionTokenExpired
)

// Claims is the JWT payload. The jti claim carries the session ID.
type Claims struct {
	jwt.RegisteredClaims

	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username"`
	Mode     string `json:"mode"`
	// Cred is the encrypted credential, bound to the session ID.
	Cred  string `json:"cred"`
	Error string `json:"error,omitempty"`
}

// Config configures a Codec.
type Config struct {
	SigningKey []byte
	Encryptor  cryptoutil.Encryptor
	Issuer     string
	// Now is optional; tests override it.
	Now func() time.Time
}

// Codec implements ports.SessionCodec.
type Codec struct {
	key    []byte
	enc    cryptoutil.Encryptor
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

var _ ports.SessionCodec = (*Codec)(nil)

// New validates cfg and returns a codec.
func New(cfg Config) (*Codec, error) {
	if len(cfg.SigningKey) < MinKeyLength {
		return nil, fmt.Errorf("jwtsession: signing key must be at least %d bytes", MinKeyLength)
	}
	if cfg.Encryptor == nil {
		return nil, errors.New("jwtsession: encryptor is required")
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Codec{
		key:    append([]byte(nil), cfg.SigningKey...),
		enc:    cfg.Encryptor,
		issuer: issuer,
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

// Encode signs sess. The session must carry an ID, an expiry and a valid credential.
func (c *Codec) Encode(sess domainauth.Session) (string, error) {
	if sess.ID == "" {
		return "", errors.New("jwtsession: session ID is required")
	}
	if sess.ExpiresAt.IsZero() {
		return "", errors.New("jwtsession: session expiry is required")
	}
	if !sess.Credential.Valid() {
		return "", errors.New("jwtsession: session credential is invalid")
	}

	raw, err := json.Marshal(sess.Credential)
	if err != nil {
		return "", fmt.Errorf("jwtsession: encode credential: %w", err)
	}
	sealed, err := c.enc.Encrypt(raw, []byte(sess.ID))
	if err != nil {
		return "", fmt.Errorf("jwtsession: encrypt credential: %w", err)
	}

	issuedAt := sess.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = c.now()
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   sess.Identity.ID,
			ID:        sess.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		Name:     sess.Identity.DisplayName,
		Email:    sess.Identity.Email,
		Username: sess.Identity.Username,
		Mode:     string(sess.Credential.Kind),
		Cred:     sealed,
		Error:    sess.Error,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("jwtsession: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature, issuer and expiry, then decrypts the credential.
func (c *Codec) Decode(token string) (domainauth.Session, error) {
	if token == "" {
		return domainauth.Session{}, ErrInvalidToken
	}

	var claims Claims
	_, err := c.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domainauth.Session{}, ErrExpired
		}
		return domainauth.Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return domainauth.Session{}, fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}

	raw, err := c.enc.Decrypt(claims.Cred, []byte(claims.ID))
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("%w: credential: %w", ErrInvalidToken, err)
	}
	var cred domainauth.Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return domainauth.Session{}, fmt.Errorf("%w: credential: %w", ErrInvalidToken, err)
	}
	if !cred.Valid() || string(cred.Kind) != claims.Mode {
		return domainauth.Session{}, fmt.Errorf("%w: credential does not match mode", ErrInvalidToken)
	}

	sess := domainauth.Session{
		ID: claims.ID,
		Identity: domainauth.Identity{
			ID:          claims.Subject,
			DisplayName: claims.Name,
			Email:       claims.Email,
			Username:    claims.Username,
		},
		Credential: cred,
		Error:      claims.Error,
	}
	if claims.IssuedAt != nil {
		sess.IssuedAt = claims.IssuedAt.UTC()
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.UTC()
	}
	return sess, nil
}
