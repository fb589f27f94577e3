package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/target/snowdash/internal/domain/auth"
)

// BasicExchanger verifies a username/password pair against ServiceNow and,
// on success, returns the user's identity plus a Basic credential.
type BasicExchanger interface {
	Exchange(ctx context.Context, username, password string) (domainauth.Identity, domainauth.Credential, error)
}

// BeginInput carries inputs for initiating an OAuth flow.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
}

// OAuthProvider drives the authorization-code grant against ServiceNow.
type OAuthProvider interface {
	// Begin returns the provider authorization URL and an opaque state.
	Begin(ctx context.Context, in BeginInput) (authURL, state string, err error)

	// Exchange trades an authorization code for tokens and fetches the user's identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, domainauth.Credential, error)

	// Refresh obtains a new access token using the stored refresh token.
	// If the response omits a refresh token the previous one is kept.
	Refresh(ctx context.Context, cred domainauth.OAuthCredential) (domainauth.OAuthCredential, error)
}

// ErrSessionTokenExpired is returned by SessionCodec.Decode for a well-formed token past its expiry.
var ErrSessionTokenExpired = errors.New("session token expired")

// SessionCodec signs and verifies session artifacts.
type SessionCodec interface {
	Encode(sess domainauth.Session) (string, error)
	// Decode verifies the signature and expiry and returns the session.
	Decode(token string) (domainauth.Session, error)
}

// RevocationStore tracks session IDs that were signed out before their natural expiry.
type RevocationStore interface {
	Revoke(ctx context.Context, id string, until time.Time) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}
