package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/snowdash/internal/domain/auth"
	apperrors "github.com/target/snowdash/internal/errors"
	"github.com/target/snowdash/internal/observability/metrics"
	"github.com/target/snowdash/internal/observability/statsd"
	"github.com/target/snowdash/internal/ports"
)

// DefaultSessionTTL bounds a session when SessionConfig.TTL is zero.
const DefaultSessionTTL = 8 * time.Hour

// Exchangers selects the credential exchanger for the deployment's mode.
// Only the exchanger matching Mode is used.
type Exchangers struct {
	Mode  domainauth.Mode
	Basic ports.BasicExchanger
	OAuth ports.OAuthProvider
}

// SessionConfig groups the session artifact dependencies.
type SessionConfig struct {
	Codec       ports.SessionCodec
	Revocations ports.RevocationStore
	TTL         time.Duration
}

// AuthObservability groups optional logging, metrics and clock overrides.
type AuthObservability struct {
	Logger  *slog.Logger
	Metrics statsd.Sink
	Now     func() time.Time
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Exchangers    Exchangers
	Sessions      SessionConfig
	Observability AuthObservability
}

// AuthService signs users in against ServiceNow and manages the signed session artifact:
// issuing it, verifying it on each request, refreshing OAuth credentials, and revoking it on sign-out.
type AuthService struct {
	mode        domainauth.Mode
	basic       ports.BasicExchanger
	oauth       ports.OAuthProvider
	codec       ports.SessionCodec
	revocations ports.RevocationStore
	ttl         time.Duration
	logger      *slog.Logger
	metrics     statsd.Sink
	now         func() time.Time
}

// NewAuthService constructs a new AuthService.
// It panics if the exchanger for the selected mode or the codec is missing.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	mode := opts.Exchangers.Mode
	if mode == "" {
		mode = domainauth.ModeBasic
	}
	switch mode {
	case domainauth.ModeBasic:
		if opts.Exchangers.Basic == nil {
			panic("BasicExchanger is required when auth mode is basic")
		}
	case domainauth.ModeOAuth:
		if opts.Exchangers.OAuth == nil {
			panic("OAuthProvider is required when auth mode is oauth")
		}
	default:
		panic(fmt.Sprintf("unknown auth mode %q", mode))
	}
	if opts.Sessions.Codec == nil {
		panic("SessionCodec is required")
	}

	ttl := opts.Sessions.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	logger := opts.Observability.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Observability.Now
	if now == nil {
		now = time.Now
	}

	return &AuthService{
		mode:        mode,
		basic:       opts.Exchangers.Basic,
		oauth:       opts.Exchangers.OAuth,
		codec:       opts.Sessions.Codec,
		revocations: opts.Sessions.Revocations,
		ttl:         ttl,
		logger:      logger.With("component", "auth_service"),
		metrics:     opts.Observability.Metrics,
		now:         now,
	}
}

// Mode reports the deployment's authentication mode.
func (s *AuthService) Mode() domainauth.Mode { return s.mode }

// TTL reports the lifetime of newly issued sessions.
func (s *AuthService) TTL() time.Duration { return s.ttl }

// SignInInput carries the Basic sign-in form.
type SignInInput struct {
	Username string `validate:"required,max=255"`
	Password string `validate:"required"`
}

// SignInResult is a freshly issued session and its encoded token.
type SignInResult struct {
	Session domainauth.Session
	Token   string
}

// SignInBasic verifies the credentials against ServiceNow and issues a session.
// Invalid credentials yield an auth_failure error and no session.
func (s *AuthService) SignInBasic(ctx context.Context, in SignInInput) (*SignInResult, error) {
	if s.mode != domainauth.ModeBasic {
		return nil, apperrors.Validation("basic sign-in is not enabled")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	identity, cred, err := s.basic.Exchange(ctx, in.Username, in.Password)
	s.emitAuth("signin", err)
	if err != nil {
		s.logger.InfoContext(ctx, "basic sign-in rejected", "username", in.Username, "error", err)
		return nil, asAuthFailure(err)
	}

	return s.issue(identity, cred)
}

// BeginLoginResult contains the result of beginning an OAuth login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
}

// BeginLogin returns the ServiceNow authorization URL and the state to bind to the browser.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if s.mode != domainauth.ModeOAuth {
		return nil, apperrors.Validation("oauth sign-in is not enabled")
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, err := s.oauth.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, State: state}, nil
}

// CompleteLoginInput groups parameters for completing an OAuth login flow.
// State has already been matched against the browser-bound value by the caller.
type CompleteLoginInput struct {
	Code  string
	State string
}

// CompleteLogin exchanges the authorization code and issues a session.
func (s *AuthService) CompleteLogin(ctx context.Context, in CompleteLoginInput) (*SignInResult, error) {
	if s.mode != domainauth.ModeOAuth {
		return nil, apperrors.Validation("oauth sign-in is not enabled")
	}
	if in.Code == "" {
		return nil, apperrors.ValidationField("code", "authorization code is required")
	}
	if in.State == "" {
		return nil, apperrors.ValidationField("state", "state parameter is required")
	}

	identity, cred, err := s.oauth.Exchange(ctx, ports.ExchangeInput{Code: in.Code, State: in.State})
	s.emitAuth("signin", err)
	if err != nil {
		s.logger.WarnContext(ctx, "oauth code exchange failed", "error", err)
		return nil, asAuthFailure(err)
	}

	return s.issue(identity, cred)
}

func (s *AuthService) issue(identity domainauth.Identity, cred domainauth.Credential) (*SignInResult, error) {
	if !cred.Valid() || cred.Kind != s.mode {
		return nil, apperrors.AuthFailure("sign-in failed", errors.New("exchanger returned an unusable credential"))
	}

	// JWT timestamps have second precision.
	now := s.now().Truncate(time.Second)
	sess := domainauth.Session{
		ID:         uuid.NewString(),
		Identity:   identity,
		Credential: cred,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
	}

	token, err := s.codec.Encode(sess)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "sign session")
	}
	return &SignInResult{Session: sess, Token: token}, nil
}

// ReadSessionResult is a verified session. When Reissued is true Token holds a new
// encoding of the session that should replace the caller's copy.
type ReadSessionResult struct {
	Session  domainauth.Session
	Token    string
	Reissued bool
}

// ReadSession verifies a session token and, in OAuth mode, refreshes an expired access token.
//
// A failed refresh does not fail the read: the stale credential is kept unchanged and the
// session's Error is set so callers can force re-authentication.
func (s *AuthService) ReadSession(ctx context.Context, token string) (*ReadSessionResult, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("no session")
	}

	sess, err := s.codec.Decode(token)
	if err != nil {
		if errors.Is(err, ports.ErrSessionTokenExpired) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "session expired")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid session")
	}

	if s.revocations != nil {
		revoked, revErr := s.revocations.IsRevoked(ctx, sess.ID)
		if revErr != nil {
			return nil, apperrors.Wrap(revErr, apperrors.ErrCodeInternal, "check session revocation")
		}
		if revoked {
			return nil, apperrors.Unauthorized("session signed out")
		}
	}

	out := &ReadSessionResult{Session: sess, Token: token}
	if !s.needsRefresh(sess) {
		return out, nil
	}

	out.Session = s.refresh(ctx, sess)
	reissued, err := s.codec.Encode(out.Session)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "sign session")
	}
	out.Token = reissued
	out.Reissued = true
	return out, nil
}

func (s *AuthService) needsRefresh(sess domainauth.Session) bool {
	return s.oauth != nil &&
		sess.Credential.Kind == domainauth.ModeOAuth &&
		sess.Credential.OAuth != nil &&
		sess.Credential.OAuth.Expired(s.now())
}

// refresh returns the session with either a replaced credential or the refresh error flag set.
func (s *AuthService) refresh(ctx context.Context, sess domainauth.Session) domainauth.Session {
	next := sess
	next.Credential = sess.Credential.Clone()

	var err error
	if !sess.Credential.Refreshable() {
		err = errors.New("no refresh token")
	} else {
		var fresh domainauth.OAuthCredential
		fresh, err = s.oauth.Refresh(ctx, *sess.Credential.OAuth)
		if err == nil && fresh.AccessToken == "" {
			err = errors.New("refresh returned no access token")
		}
		if err == nil {
			if fresh.RefreshToken == "" {
				fresh.RefreshToken = sess.Credential.OAuth.RefreshToken
			}
			next.Credential = domainauth.NewOAuthCredential(fresh)
			next.Error = ""
		}
	}
	s.emitAuth("refresh", err)

	if err != nil {
		s.logger.WarnContext(ctx, "access token refresh failed",
			"session_id", sess.ID,
			"username", sess.Identity.Username,
			"error", err,
		)
		next.Error = domainauth.RefreshErrorCode
	}
	return next
}

// Logout revokes the session until its natural expiry. Missing, malformed or
// already expired tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" || s.revocations == nil {
		return nil
	}

	sess, err := s.codec.Decode(token)
	if err != nil {
		return nil //nolint:nilerr // nothing to revoke
	}

	if err := s.revocations.Revoke(ctx, sess.ID, sess.ExpiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.emitAuth("signout", nil)
	return nil
}

func (s *AuthService) emitAuth(kind string, err error) {
	metrics.EmitAuthEvent(s.metrics, metrics.AuthEvent{Kind: kind, Mode: string(s.mode), Err: err})
}

// asAuthFailure reports every failed exchange as rejected credentials. Network
// errors and timeouts are not told apart from a bad password.
func asAuthFailure(err error) error {
	if apperrors.IsAuthFailure(err) {
		return err
	}
	return apperrors.AuthFailure("invalid credentials", err)
}
