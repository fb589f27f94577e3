package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/snowdash/internal/domain/auth"
	"github.com/target/snowdash/internal/ports"
)

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandlers_SignInPage(t *testing.T) {
	f := newBasicAuth(t)
	h := &AuthHandlers{Svc: f.svc, Renderer: createTestRenderer(t)}

	rec := httptest.NewRecorder()
	h.SignInPage(rec, httptest.NewRequest(http.MethodGet, "/auth/signin?redirect_uri=/incidents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="username"`)
	assert.Contains(t, body, `name="redirect_uri" value="/incidents"`)

	rec = httptest.NewRecorder()
	h.SignInPage(rec, withSession(httptest.NewRequest(http.MethodGet, "/auth/signin", nil), testSession()))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestAuthHandlers_SignInPage_OAuthMode(t *testing.T) {
	f := newOAuthAuth(t)
	h := &AuthHandlers{Svc: f.svc, Renderer: createTestRenderer(t)}

	rec := httptest.NewRecorder()
	h.SignInPage(rec, httptest.NewRequest(http.MethodGet, "/auth/signin", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in with ServiceNow")
	assert.NotContains(t, rec.Body.String(), `name="password"`)
}

func TestAuthHandlers_SignIn(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		json       bool
		wantStatus int
		wantBody   string
		wantCookie bool
		wantLoc    string
	}{
		{
			name:       "success redirects",
			form:       url.Values{"username": {"abel.tuter"}, "password": {"secret"}, "redirect_uri": {"/incidents"}},
			wantStatus: http.StatusSeeOther,
			wantCookie: true,
			wantLoc:    "/incidents",
		},
		{
			name:       "success defaults to ritms",
			form:       url.Values{"username": {"abel.tuter"}, "password": {"secret"}, "redirect_uri": {"https://evil.example.com"}},
			wantStatus: http.StatusSeeOther,
			wantCookie: true,
			wantLoc:    "/ritms",
		},
		{
			name:       "wrong password",
			form:       url.Values{"username": {"abel.tuter"}, "password": {"nope"}},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Invalid username or password",
		},
		{
			name:       "missing password",
			form:       url.Values{"username": {"abel.tuter"}},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Username and password are required",
		},
		{
			name:       "json failure",
			form:       url.Values{"username": {"abel.tuter"}, "password": {"nope"}},
			json:       true,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `"error":"Invalid credentials"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBasicAuth(t)
			h := &AuthHandlers{Svc: f.svc, Renderer: createTestRenderer(t)}
			req := postForm("/auth/signin", tt.form)
			if tt.json {
				req.Header.Set("Accept", "application/json")
			}
			rec := httptest.NewRecorder()
			h.SignIn(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
			}
			c := cookieNamed(rec, DefaultSessionCookieName)
			if tt.wantCookie {
				require.NotNil(t, c)
				assert.NotEmpty(t, c.Value)
				assert.True(t, c.HttpOnly)
			} else {
				assert.Nil(t, c)
			}
		})
	}
}

func TestAuthHandlers_SignIn_TransportFailureLooksLikeBadCredentials(t *testing.T) {
	f := newBasicAuth(t)
	f.basic.ExchangeFunc = func(context.Context, string, string) (domainauth.Identity, domainauth.Credential, error) {
		return domainauth.Identity{}, domainauth.Credential{}, context.DeadlineExceeded
	}
	h := &AuthHandlers{Svc: f.svc, Renderer: createTestRenderer(t)}

	rec := httptest.NewRecorder()
	h.SignIn(rec, postForm("/auth/signin", url.Values{"username": {"abel.tuter"}, "password": {"secret"}}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password")

	req := postForm("/auth/signin", url.Values{"username": {"abel.tuter"}, "password": {"secret"}})
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	h.SignIn(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())
}

func TestAuthHandlers_SignIn_JSONSuccess(t *testing.T) {
	f := newBasicAuth(t)
	h := &AuthHandlers{Svc: f.svc}
	req := postForm("/auth/signin", url.Values{"username": {"abel.tuter"}, "password": {"secret"}})
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	rec := httptest.NewRecorder()
	h.SignIn(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status     string                   `json:"status"`
		RedirectTo string                   `json:"redirect_to"`
		Session    domainauth.PublicSession `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, DefaultPostLoginPath, body.RedirectTo)
	assert.True(t, body.Session.Authenticated)
	assert.Equal(t, domainauth.ModeBasic, body.Session.Mode)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestAuthHandlers_SignIn_OAuthModeRedirectsToLogin(t *testing.T) {
	f := newOAuthAuth(t)
	h := &AuthHandlers{Svc: f.svc}
	rec := httptest.NewRecorder()
	h.SignIn(rec, postForm("/auth/signin", url.Values{"redirect_uri": {"/profile"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?redirect_uri=%2Fprofile", rec.Header().Get("Location"))
}

func TestAuthHandlers_Login(t *testing.T) {
	f := newOAuthAuth(t)
	h := &AuthHandlers{Svc: f.svc}
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=/incidents", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, f.oauth.AuthURL, rec.Header().Get("Location"))
	state := cookieNamed(rec, oauthStateCookie)
	require.NotNil(t, state)
	assert.Equal(t, "state-1", state.Value)
	redirect := cookieNamed(rec, postLoginRedirectCookie)
	require.NotNil(t, redirect)
	assert.Equal(t, "/incidents", redirect.Value)
}

func TestAuthHandlers_Login_Failures(t *testing.T) {
	basic := newBasicAuth(t)
	rec := httptest.NewRecorder()
	(&AuthHandlers{Svc: basic.svc}).Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/signin?redirect_uri=%2Fritms", rec.Header().Get("Location"))

	f := newOAuthAuth(t)
	f.oauth.BeginFunc = func(context.Context, ports.BeginInput) (string, string, error) {
		return "", "", errors.New("no entropy")
	}
	rec = httptest.NewRecorder()
	(&AuthHandlers{Svc: f.svc}).Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/error?error=Configuration", rec.Header().Get("Location"))
}

func TestAuthHandlers_Callback(t *testing.T) {
	callback := func(query string, cookies ...*http.Cookie) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+query, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		return req
	}
	stateCookie := &http.Cookie{Name: oauthStateCookie, Value: "state-1"}

	t.Run("success", func(t *testing.T) {
		f := newOAuthAuth(t)
		rec := httptest.NewRecorder()
		(&AuthHandlers{Svc: f.svc}).Callback(rec, callback("code=abc&state=state-1",
			stateCookie, &http.Cookie{Name: postLoginRedirectCookie, Value: "/profile"}))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/profile", rec.Header().Get("Location"))
		sess := cookieNamed(rec, DefaultSessionCookieName)
		require.NotNil(t, sess)
		assert.NotEmpty(t, sess.Value)
		assert.Equal(t, -1, cookieNamed(rec, oauthStateCookie).MaxAge)
	})

	failures := []struct {
		name  string
		query string
		fail  bool
		want  string
	}{
		{name: "upstream denial", query: "error=access_denied&state=state-1", want: AuthErrorAccessDenied},
		{name: "missing code", query: "state=state-1", want: AuthErrorVerification},
		{name: "state mismatch", query: "code=abc&state=forged", want: AuthErrorVerification},
		{name: "exchange rejected", query: "code=abc&state=state-1", fail: true, want: AuthErrorAccessDenied},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			f := newOAuthAuth(t)
			if tt.fail {
				f.oauth.ExchangeFunc = func(context.Context, ports.ExchangeInput) (domainauth.Identity, domainauth.Credential, error) {
					return domainauth.Identity{}, domainauth.Credential{}, errors.New("invalid_grant")
				}
			}
			rec := httptest.NewRecorder()
			(&AuthHandlers{Svc: f.svc}).Callback(rec, callback(tt.query, stateCookie))

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/auth/error?error="+tt.want, rec.Header().Get("Location"))
			assert.Nil(t, cookieNamed(rec, DefaultSessionCookieName))
		})
	}
}

func TestAuthHandlers_Logout(t *testing.T) {
	f := newBasicAuth(t)
	h := &AuthHandlers{Svc: f.svc}
	cookie := f.signIn(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/signin", rec.Header().Get("Location"))
	assert.Equal(t, -1, cookieNamed(rec, DefaultSessionCookieName).MaxAge)

	_, err := f.svc.ReadSession(context.Background(), cookie.Value)
	require.Error(t, err, "token must be revoked after logout")

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Accept", "application/json")
	h.Logout(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","redirect_to":"/auth/signin"}`, rec.Body.String())
}

func TestAuthHandlers_Status(t *testing.T) {
	h := &AuthHandlers{Svc: newBasicAuth(t).svc}

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/auth/status", nil))
	assert.JSONEq(t, `{"authenticated":false,"state":"unauthenticated"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Status(rec, withSession(httptest.NewRequest(http.MethodGet, "/auth/status", nil), testSession()))
	var pub domainauth.PublicSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pub))
	assert.True(t, pub.Authenticated)
	require.NotNil(t, pub.User)
	assert.Equal(t, "abel.tuter", pub.User.Username)
	assert.NotContains(t, rec.Body.String(), "YWJlbC50dXRlcjpzZWNyZXQ=")
}

func TestAuthHandlers_ErrorPage(t *testing.T) {
	h := &AuthHandlers{Svc: newBasicAuth(t).svc, Renderer: createTestRenderer(t)}

	tests := []struct {
		code      string
		wantTitle string
		clears    bool
	}{
		{code: AuthErrorConfiguration, wantTitle: "Server Configuration Error"},
		{code: AuthErrorAccessDenied, wantTitle: "Access Denied"},
		{code: AuthErrorVerification, wantTitle: "Verification Error"},
		{code: ErrorSessionExpired, wantTitle: "Session Expired", clears: true},
		{code: "Whatever", wantTitle: "Authentication Error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ErrorPage(rec, httptest.NewRequest(http.MethodGet, "/auth/error?error="+tt.code, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantTitle)
			assert.Equal(t, tt.clears, cookieNamed(rec, DefaultSessionCookieName) != nil)
		})
	}
}
