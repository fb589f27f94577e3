package snoauth

// Package snoauth implements the OAuth authorization-code grant against a
// ServiceNow instance (oauth_auth.do / oauth_token.do / oauth_userinfo.do).

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/target/snowdash/internal/domain/auth"
	apperrors "github.com/target/snowdash/internal/errors"
	"github.com/target/snowdash/internal/ports"
	"golang.org/x/oauth2"
)

const (
	authPath     = "/oauth_auth.do"
	tokenPath    = "/oauth_token.do"
	userInfoPath = "/oauth_userinfo.do"

	// DefaultScope is the ServiceNow scope granting access to the user's own account.
	DefaultScope = "useraccount"

	// defaultTokenLifetime applies when the token endpoint omits expires_in.
	// ServiceNow's default access token lifespan is 1800 seconds.
	defaultTokenLifetime = 30 * time.Minute
)

// Provider implements ports.OAuthProvider for a ServiceNow instance.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	// go-oidc provider used only for the userinfo call; ServiceNow does not publish discovery.
	oidcProvider *gooidc.Provider
}

var _ ports.OAuthProvider = (*Provider)(nil)

// ProviderConfig holds configuration for the ServiceNow OAuth provider.
type ProviderConfig struct {
	InstanceURL  string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	HTTPClient   *http.Client // Optional, defaults to a client with a 30s timeout
	Logger       *slog.Logger
}

// NewProvider creates a new ServiceNow OAuth provider. Endpoints are derived
// from the instance URL.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	instance := strings.TrimRight(strings.TrimSpace(cfg.InstanceURL), "/")
	if instance == "" {
		return nil, errors.New("instance URL is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	scope := strings.TrimSpace(cfg.Scope)
	if scope == "" {
		scope = DefaultScope
	}

	endpoint := oauth2.Endpoint{
		AuthURL:  instance + authPath,
		TokenURL: instance + tokenPath,
		// ServiceNow expects client credentials in the form body.
		AuthStyle: oauth2.AuthStyleInParams,
	}

	pc := &gooidc.ProviderConfig{
		IssuerURL:   instance,
		AuthURL:     endpoint.AuthURL,
		TokenURL:    endpoint.TokenURL,
		UserInfoURL: instance + userInfoPath,
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(scope),
			Endpoint:     endpoint,
		},
		httpClient:   httpClient,
		logger:       logger.With("component", "servicenow_oauth"),
		now:          time.Now,
		oidcProvider: pc.NewProvider(context.Background()),
	}, nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// Begin returns the authorization URL and a fresh state value.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, error) {
	if in.RedirectURL == "" {
		return "", "", errors.New("redirect URL is required")
	}

	state, err := generateRandomString(32)
	if err != nil {
		return "", "", fmt.Errorf("generate state: %w", err)
	}

	// AuthCodeURL sets response_type=code, client_id, redirect_uri, scope and state.
	return p.config.AuthCodeURL(state), state, nil
}

// Exchange trades the authorization code for tokens and loads the user's identity.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, domainauth.Credential, error) {
	if in.Code == "" {
		return domainauth.Identity{}, domainauth.Credential{}, apperrors.AuthFailure("authorization code is required", nil)
	}
	if in.State == "" {
		return domainauth.Identity{}, domainauth.Credential{}, apperrors.AuthFailure("state is required", nil)
	}

	cctx := p.clientContext(ctx)
	token, err := p.config.Exchange(cctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, domainauth.Credential{}, apperrors.AuthFailure("token exchange failed", newTokenError("exchange code for token", err))
	}

	identity, err := p.userInfo(cctx, token)
	if err != nil {
		return domainauth.Identity{}, domainauth.Credential{}, apperrors.AuthFailure("get user info", err)
	}

	return identity, domainauth.NewOAuthCredential(p.toCredential(token, "")), nil
}

// Refresh posts grant_type=refresh_token to the token endpoint.
func (p *Provider) Refresh(ctx context.Context, cred domainauth.OAuthCredential) (domainauth.OAuthCredential, error) {
	if cred.RefreshToken == "" {
		return domainauth.OAuthCredential{}, errors.New("refresh token is required")
	}

	// A token with no access token is never valid, so the source always refreshes.
	src := p.config.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := src.Token()
	if err != nil {
		return domainauth.OAuthCredential{}, newTokenError("refresh access token", err)
	}
	return p.toCredential(token, cred.RefreshToken), nil
}

func (p *Provider) toCredential(token *oauth2.Token, previousRefresh string) domainauth.OAuthCredential {
	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = p.now().Add(defaultTokenLifetime)
	}
	refresh := token.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return domainauth.OAuthCredential{
		AccessToken:  token.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}
}

// TokenError reports a failed call to the token endpoint. Body keeps the
// upstream response, which is how ServiceNow explains rejected grants
// (e.g. {"error":"invalid_grant"}).
type TokenError struct {
	Op     string
	Status int
	Body   string
	Cause  error
}

func (e *TokenError) Error() string {
	if e.Status == 0 && e.Body == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("%s: token endpoint returned %d: %s", e.Op, e.Status, e.Body)
}

func (e *TokenError) Unwrap() error { return e.Cause }

func newTokenError(op string, err error) *TokenError {
	te := &TokenError{Op: op, Cause: err}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil {
			te.Status = re.Response.StatusCode
		}
		te.Body = strings.TrimSpace(string(re.Body))
		if te.Body == "" {
			te.Body = re.ErrorCode
		}
	}
	return te
}

// userInfoClaims is the payload of /oauth_userinfo.do.
type userInfoClaims struct {
	Subject           string `json:"sub"`
	SysID             string `json:"sys_id"`
	UserName          string `json:"user_name"`
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	Email             string `json:"email"`
}

func (p *Provider) userInfo(ctx context.Context, token *oauth2.Token) (domainauth.Identity, error) {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("fetch user info: %w", err)
	}
	var claims userInfoClaims
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return domainauth.Identity{}, fmt.Errorf("decode user info: %w", claimsErr)
	}
	return mapUserInfoClaims(claims)
}

// mapUserInfoClaims maps ServiceNow userinfo fields into an Identity using precedence rules.
func mapUserInfoClaims(c userInfoClaims) (domainauth.Identity, error) {
	id := domainauth.Identity{
		ID:       firstNonEmpty(c.SysID, c.Subject),
		Username: firstNonEmpty(c.UserName, c.PreferredUsername),
		Email:    c.Email,
	}
	if id.ID == "" || id.Username == "" {
		return domainauth.Identity{}, errors.New("user info is missing sys_id or user_name")
	}
	id.DisplayName = firstNonEmpty(c.Name, id.Username)
	if id.Email == "" {
		id.Email = id.Username + "@servicenow.com"
	}
	return id, nil
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	b := make([]byte, (length*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	for len(s) < length {
		extra := make([]byte, 3)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}
