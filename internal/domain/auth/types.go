package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"time"
)

// Mode identifies which ServiceNow authentication strategy a deployment uses.
// Exactly one mode is active per deployment.
type Mode string

const (
	ModeBasic Mode = "basic"
	ModeOAuth Mode = "oauth"
)

// RefreshErrorCode is recorded on a session whose OAuth refresh failed.
const RefreshErrorCode = "RefreshAccessTokenError"

// State is the lifecycle position of a session artifact.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	StateErrorExpired    State = "error_expired"
)

// Identity represents the authenticated ServiceNow user.
// It is derived once at sign-in and never refreshed mid-session.
type Identity struct {
	ID          string `json:"id"` // sys_id of the sys_user row
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Username    string `json:"username"`
}

// OAuthCredential is the token set obtained from the ServiceNow OAuth endpoints.
type OAuthCredential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token is at or past its expiry.
func (c OAuthCredential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// BasicCredential carries base64(username:password) for HTTP Basic Auth.
type BasicCredential struct {
	Encoded string `json:"encoded"`
}

// Credential is a tagged variant: exactly one of OAuth or Basic is set, matching Kind.
// It is opaque payload for the table client and must never be rendered to the UI.
type Credential struct {
	Kind  Mode             `json:"kind"`
	OAuth *OAuthCredential `json:"oauth,omitempty"`
	Basic *BasicCredential `json:"basic,omitempty"`
}

// NewOAuthCredential wraps an OAuth token set.
func NewOAuthCredential(c OAuthCredential) Credential {
	return Credential{Kind: ModeOAuth, OAuth: &c}
}

// NewBasicCredential wraps an encoded Basic-Auth string.
func NewBasicCredential(encoded string) Credential {
	return Credential{Kind: ModeBasic, Basic: &BasicCredential{Encoded: encoded}}
}

// Valid reports whether the variant is well-formed and carries a usable secret.
func (c Credential) Valid() bool {
	switch c.Kind {
	case ModeOAuth:
		return c.OAuth != nil && c.OAuth.AccessToken != "" && c.Basic == nil
	case ModeBasic:
		return c.Basic != nil && c.Basic.Encoded != "" && c.OAuth == nil
	default:
		return false
	}
}

// Refreshable reports whether the credential supports token refresh.
// Only the OAuth variant with a refresh token does.
func (c Credential) Refreshable() bool {
	return c.Kind == ModeOAuth && c.OAuth != nil && c.OAuth.RefreshToken != ""
}

// AuthorizationHeader renders the value for the HTTP Authorization header.
func (c Credential) AuthorizationHeader() string {
	switch {
	case c.Kind == ModeOAuth && c.OAuth != nil:
		return "Bearer " + c.OAuth.AccessToken
	case c.Kind == ModeBasic && c.Basic != nil:
		return "Basic " + c.Basic.Encoded
	default:
		return ""
	}
}

// Clone returns a deep copy so refresh can replace the OAuth sub-object without aliasing.
func (c Credential) Clone() Credential {
	out := Credential{Kind: c.Kind}
	if c.OAuth != nil {
		o := *c.OAuth
		out.OAuth = &o
	}
	if c.Basic != nil {
		b := *c.Basic
		out.Basic = &b
	}
	return out
}

// Session is the signed, time-bounded artifact bridging browser and server.
// ID is an opaque identifier used for revocation on sign-out.
type Session struct {
	ID         string     `json:"id"`
	Identity   Identity   `json:"identity"`
	Credential Credential `json:"credential"`
	Error      string     `json:"error,omitempty"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// HasCredential reports whether the session carries a usable credential.
func (s *Session) HasCredential() bool {
	return s != nil && s.Credential.Valid()
}

// State derives the lifecycle state from the session contents.
func (s *Session) State() State {
	switch {
	case s == nil || s.ID == "" || !s.Credential.Valid():
		return StateUnauthenticated
	case s.Error != "":
		return StateErrorExpired
	default:
		return StateAuthenticated
	}
}

// PublicSession is the redacted projection exposed to browser code.
// It deliberately has no credential field.
type PublicSession struct {
	Authenticated bool      `json:"authenticated"`
	State         State     `json:"state"`
	Mode          Mode      `json:"mode,omitempty"`
	User          *Identity `json:"user,omitempty"`
	Error         string    `json:"error,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
}

// Public returns the browser-safe projection of the session.
func (s *Session) Public() PublicSession {
	state := s.State()
	if state == StateUnauthenticated {
		return PublicSession{State: state}
	}
	id := s.Identity
	return PublicSession{
		Authenticated: true,
		State:         state,
		Mode:          s.Credential.Kind,
		User:          &id,
		Error:         s.Error,
		ExpiresAt:     s.ExpiresAt,
	}
}
