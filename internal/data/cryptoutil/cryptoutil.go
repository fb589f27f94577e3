package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Encryptor seals small secrets (session credentials) into URL-safe strings.
// Associated data binds a ciphertext to its context; the same value must be
// supplied to Decrypt.
type Encryptor interface {
	Encrypt(plaintext, associated []byte) (string, error)
	Decrypt(ciphertext string, associated []byte) ([]byte, error)
}

// AESGCMEncryptor implements Encryptor using AES-256-GCM.
type AESGCMEncryptor struct {
	aead cipher.AEAD
}

const (
	// Versioned prefix to allow future key/algorithm rotations.
	cipherPrefixV1 = "v1."
	noopPrefix     = "noop."

	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
)

// ErrDecrypt is returned for any ciphertext that fails authentication.
var ErrDecrypt = errors.New("decrypt: message authentication failed")

// NewAESGCMEncryptor constructs a new AESGCMEncryptor. Key must be 32 bytes (AES-256).
func NewAESGCMEncryptor(key []byte) (*AESGCMEncryptor, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("aes-gcm key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCMEncryptor{aead: gcm}, nil
}

// Encrypt encrypts plaintext with a random nonce and returns a versioned base64url string.
func (e *AESGCMEncryptor) Encrypt(plaintext, associated []byte) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	// nonce||ciphertext
	buf := e.aead.Seal(nonce, nonce, plaintext, associated)
	return cipherPrefixV1 + base64.RawURLEncoding.EncodeToString(buf), nil
}

// Decrypt opens a string created by Encrypt with the same associated data.
func (e *AESGCMEncryptor) Decrypt(ciphertext string, associated []byte) ([]byte, error) {
	b64, ok := strings.CutPrefix(ciphertext, cipherPrefixV1)
	if !ok {
		return nil, fmt.Errorf("unknown ciphertext version (prefix: %s)", truncate(ciphertext, 6))
	}
	data, err := base64.RawURLEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	pt, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], associated)
	if err != nil {
		return nil, ErrDecrypt
	}
	return pt, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// ParseKey accepts a 32-byte key given as standard or URL-safe base64, or as 32 raw bytes.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil && len(b) == KeySize {
			return b, nil
		}
	}
	if len(s) == KeySize {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("encryption key must be %d bytes (raw or base64)", KeySize)
}

// DeriveKey stretches an arbitrary secret into a 32-byte key. It is only
// meant for development setups that configure a signing key but no
// dedicated encryption key.
func DeriveKey(secret, purpose string) []byte {
	sum := sha256.Sum256([]byte(purpose + "\x00" + secret))
	return sum[:]
}

// NoopEncryptor is useful for tests; it stores plaintext with a prefix marker
// and ignores associated data.
type NoopEncryptor struct{}

func (NoopEncryptor) Encrypt(plaintext, _ []byte) (string, error) {
	return noopPrefix + base64.RawURLEncoding.EncodeToString(plaintext), nil
}

func (NoopEncryptor) Decrypt(ciphertext string, _ []byte) ([]byte, error) {
	b64, ok := strings.CutPrefix(ciphertext, noopPrefix)
	if !ok {
		return nil, errors.New("invalid noop ciphertext")
	}
	return base64.RawURLEncoding.DecodeString(b64)
}
