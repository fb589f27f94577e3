package snoauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/snowdash/internal/domain/auth"
	apperrors "github.com/target/snowdash/internal/errors"
	"github.com/target/snowdash/internal/ports"
)

// fakeInstance emulates the ServiceNow OAuth endpoints.
type fakeInstance struct {
	srv *httptest.Server

	tokenStatus   int
	tokenBody     map[string]any
	lastTokenForm url.Values
	tokenCalls    atomic.Int32
	userInfo      map[string]any
	lastUserAuth  string
}

func newFakeInstance(t *testing.T) *fakeInstance {
	t.Helper()
	f := &fakeInstance{
		tokenStatus: http.StatusOK,
		tokenBody: map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    1799,
			"scope":         "useraccount",
		},
		userInfo: map[string]any{
			"sub":       "62826bf03710200044e0bfc8bcbe5df1",
			"sys_id":    "62826bf03710200044e0bfc8bcbe5df1",
			"user_name": "abel.tuter",
			"name":      "Abel Tuter",
			"email":     "abel.tuter@example.com",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth_token.do", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		_ = r.ParseForm()
		f.lastTokenForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.tokenStatus)
		_ = json.NewEncoder(w).Encode(f.tokenBody)
	})
	mux.HandleFunc("GET /oauth_userinfo.do", func(w http.ResponseWriter, r *http.Request) {
		f.lastUserAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.userInfo)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func newTestProvider(t *testing.T, f *fakeInstance) *Provider {
	t.Helper()
	p, err := NewProvider(ProviderConfig{
		InstanceURL:  f.srv.URL + "/",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
		HTTPClient:   f.srv.Client(),
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{
			name:   "missing instance",
			config: ProviderConfig{ClientID: "c", ClientSecret: "s", RedirectURL: "http://localhost/cb"},
			errMsg: "instance URL is required",
		},
		{
			name:   "missing client ID",
			config: ProviderConfig{InstanceURL: "https://x.service-now.com", ClientSecret: "s", RedirectURL: "http://localhost/cb"},
			errMsg: "client ID is required",
		},
		{
			name:   "missing client secret",
			config: ProviderConfig{InstanceURL: "https://x.service-now.com", ClientID: "c", RedirectURL: "http://localhost/cb"},
			errMsg: "client secret is required",
		},
		{
			name:   "missing redirect URL",
			config: ProviderConfig{InstanceURL: "https://x.service-now.com", ClientID: "c", ClientSecret: "s"},
			errMsg: "redirect URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestProvider_Begin(t *testing.T) {
	f := newFakeInstance(t)
	p := newTestProvider(t, f)

	authURL, state, err := p.Begin(context.Background(), ports.BeginInput{RedirectURL: "/ritms"})
	require.NoError(t, err)
	assert.Len(t, state, 32)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "/oauth_auth.do", u.Path)
	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "useraccount", q.Get("scope"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, "http://localhost:8080/auth/callback", q.Get("redirect_uri"))

	_, _, err = p.Begin(context.Background(), ports.BeginInput{})
	require.Error(t, err)
}

func TestProvider_Exchange_Success(t *testing.T) {
	f := newFakeInstance(t)
	p := newTestProvider(t, f)
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	id, cred, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "auth-code", State: "st"})
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", f.lastTokenForm.Get("grant_type"))
	assert.Equal(t, "auth-code", f.lastTokenForm.Get("code"))
	assert.Equal(t, "client-id", f.lastTokenForm.Get("client_id"))
	assert.Equal(t, "client-secret", f.lastTokenForm.Get("client_secret"))
	assert.Equal(t, "Bearer access-1", f.lastUserAuth)

	assert.Equal(t, domainauth.Identity{
		ID:          "62826bf03710200044e0bfc8bcbe5df1",
		DisplayName: "Abel Tuter",
		Email:       "abel.tuter@example.com",
		Username:    "abel.tuter",
	}, id)

	require.Equal(t, domainauth.ModeOAuth, cred.Kind)
	assert.Equal(t, "access-1", cred.OAuth.AccessToken)
	assert.Equal(t, "refresh-1", cred.OAuth.RefreshToken)
	assert.False(t, cred.OAuth.ExpiresAt.IsZero())
}

func TestProvider_Exchange_TokenEndpointFailure(t *testing.T) {
	f := newFakeInstance(t)
	f.tokenStatus = http.StatusUnauthorized
	f.tokenBody = map[string]any{"error": "access_denied", "error_description": "invalid client"}
	p := newTestProvider(t, f)

	_, cred, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "bad", State: "st"})
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthFailure(err))
	assert.Contains(t, err.Error(), "access_denied")
	assert.False(t, cred.Valid())

	var te *TokenError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusUnauthorized, te.Status)
}

func TestProvider_Exchange_ValidationErrors(t *testing.T) {
	f := newFakeInstance(t)
	p := newTestProvider(t, f)

	_, _, err := p.Exchange(context.Background(), ports.ExchangeInput{State: "st"})
	assert.True(t, apperrors.IsAuthFailure(err))

	_, _, err = p.Exchange(context.Background(), ports.ExchangeInput{Code: "c"})
	assert.True(t, apperrors.IsAuthFailure(err))

	assert.Equal(t, int32(0), f.tokenCalls.Load())
}

func TestProvider_Refresh(t *testing.T) {
	f := newFakeInstance(t)
	f.tokenBody = map[string]any{
		"access_token":  "access-2",
		"refresh_token": "refresh-2",
		"token_type":    "Bearer",
		"expires_in":    1799,
	}
	p := newTestProvider(t, f)

	got, err := p.Refresh(context.Background(), domainauth.OAuthCredential{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, "refresh_token", f.lastTokenForm.Get("grant_type"))
	assert.Equal(t, "refresh-1", f.lastTokenForm.Get("refresh_token"))
	assert.Equal(t, "access-2", got.AccessToken)
	assert.Equal(t, "refresh-2", got.RefreshToken)
	assert.True(t, got.ExpiresAt.After(time.Now()))
}

func TestProvider_Refresh_KeepsRefreshTokenWhenOmitted(t *testing.T) {
	f := newFakeInstance(t)
	f.tokenBody = map[string]any{"access_token": "access-2", "token_type": "Bearer", "expires_in": 1799}
	p := newTestProvider(t, f)

	got, err := p.Refresh(context.Background(), domainauth.OAuthCredential{RefreshToken: "refresh-1"})
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", got.RefreshToken)
}

func TestProvider_Refresh_Failure(t *testing.T) {
	f := newFakeInstance(t)
	f.tokenStatus = http.StatusBadRequest
	f.tokenBody = map[string]any{"error": "invalid_grant"}
	p := newTestProvider(t, f)

	_, err := p.Refresh(context.Background(), domainauth.OAuthCredential{RefreshToken: "revoked"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")

	_, err = p.Refresh(context.Background(), domainauth.OAuthCredential{})
	require.Error(t, err)
}

func TestMapUserInfoClaims(t *testing.T) {
	id, err := mapUserInfoClaims(userInfoClaims{Subject: "s1", PreferredUsername: "beth"})
	require.NoError(t, err)
	assert.Equal(t, "s1", id.ID)
	assert.Equal(t, "beth", id.Username)
	assert.Equal(t, "beth", id.DisplayName)
	assert.Equal(t, "beth@servicenow.com", id.Email)

	_, err = mapUserInfoClaims(userInfoClaims{Name: "No Id"})
	require.Error(t, err)
}

func TestGenerateRandomString(t *testing.T) {
	for _, n := range []int{0, 1, 7, 32, 43} {
		s, err := generateRandomString(n)
		require.NoError(t, err)
		assert.Len(t, s, n)
	}

	a, _ := generateRandomString(32)
	b, _ := generateRandomString(32)
	assert.NotEqual(t, a, b)
}
