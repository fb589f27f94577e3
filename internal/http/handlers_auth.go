package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	domainauth "github.com/target/snowdash/internal/domain/auth"
	apperrors "github.com/target/snowdash/internal/errors"
	"github.com/target/snowdash/internal/service"
)

// DefaultPostLoginPath is where a successful sign-in lands when no redirect was requested.
const DefaultPostLoginPath = "/ritms"

// Auth error codes carried on /auth/error?error=<code>.
const (
	AuthErrorAccessDenied  = "AccessDenied"
	AuthErrorVerification  = "Verification"
	AuthErrorConfiguration = "Configuration"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	Mode() domainauth.Mode
	SignInBasic(ctx context.Context, in service.SignInInput) (*service.SignInResult, error)
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, in service.CompleteLoginInput) (*service.SignInResult, error)
	ReadSession(ctx context.Context, token string) (*service.ReadSessionResult, error)
	Logout(ctx context.Context, token string) error
}

var _ AuthServiceInterface = (*service.AuthService)(nil)

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc      AuthServiceInterface
	Cookies  CookieConfig
	Renderer *TemplateRenderer
	Logger   *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// signInView is the data for the sign-in template.
type signInView struct {
	Title       string
	Mode        domainauth.Mode
	RedirectURI string
	Username    string
	Error       string
	CSRFToken   string
}

// SignInPage renders the sign-in form.
// GET /auth/signin?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) SignInPage(w http.ResponseWriter, r *http.Request) {
	redirect := safeRedirectPath(r.URL.Query().Get("redirect_uri"), DefaultPostLoginPath)
	if GetSessionFromContext(r.Context()).State() == domainauth.StateAuthenticated {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderSignIn(w, r, renderSignInParams{
		View:   signInView{RedirectURI: redirect},
		Status: http.StatusOK,
	})
}

// SignIn verifies a username/password pair against ServiceNow and sets the session cookie.
// POST /auth/signin (form: username, password, redirect_uri).
func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteAppError(w, apperrors.Validation("invalid form"), "")
		return
	}
	redirect := safeRedirectPath(r.PostFormValue("redirect_uri"), DefaultPostLoginPath)

	if h.Svc.Mode() == domainauth.ModeOAuth {
		http.Redirect(w, r, "/auth/login?redirect_uri="+url.QueryEscape(redirect), http.StatusSeeOther)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	res, err := h.Svc.SignInBasic(r.Context(), service.SignInInput{
		Username: username,
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		if wantsJSON(r) {
			WriteAppError(w, err, "Sign in failed")
			return
		}
		status := StatusForError(err)
		msg := "Invalid username or password"
		switch {
		case apperrors.IsValidation(err):
			msg = "Username and password are required"
		case status >= http.StatusInternalServerError:
			msg = "Sign in failed. Please try again."
		}
		h.renderSignIn(w, r, renderSignInParams{
			View:   signInView{RedirectURI: redirect, Username: username, Error: msg},
			Status: status,
		})
		return
	}

	h.Cookies.setSessionCookie(w, r, sessionCookieParams{Token: res.Token, ExpiresAt: res.Session.ExpiresAt})
	h.logger().InfoContext(r.Context(), "user signed in", "user", res.Session.Identity.Username, "mode", domainauth.ModeBasic)

	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"status":      "success",
			"redirect_to": redirect,
			"session":     res.Session.Public(),
		})
		return
	}
	redirectBrowser(w, r, redirect)
}

// Login handles the login initiation endpoint.
// GET /auth/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	redirect := safeRedirectPath(r.URL.Query().Get("redirect_uri"), DefaultPostLoginPath)

	if h.Svc.Mode() != domainauth.ModeOAuth {
		http.Redirect(w, r, "/auth/signin?redirect_uri="+url.QueryEscape(redirect), http.StatusSeeOther)
		return
	}

	result, err := h.Svc.BeginLogin(r.Context(), redirect)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "begin login failed", "error", err)
		redirectToAuthError(w, r, AuthErrorConfiguration)
		return
	}

	h.Cookies.setTransientCookie(w, r, nameValue{Name: oauthStateCookie, Value: result.State})
	h.Cookies.setTransientCookie(w, r, nameValue{Name: postLoginRedirectCookie, Value: redirect})

	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback handles the OAuth callback endpoint.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if upstreamErr := q.Get("error"); upstreamErr != "" {
		h.logger().WarnContext(r.Context(), "authorization denied by ServiceNow",
			"error", upstreamErr, "description", q.Get("error_description"))
		h.clearTransientCookies(w, r)
		redirectToAuthError(w, r, AuthErrorAccessDenied)
		return
	}

	code := q.Get("code")
	state := q.Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if code == "" || state == "" || err != nil || stateCookie.Value != state {
		h.logger().WarnContext(r.Context(), "oauth callback rejected", "has_code", code != "", "has_state", state != "")
		h.clearTransientCookies(w, r)
		redirectToAuthError(w, r, AuthErrorVerification)
		return
	}

	res, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{Code: code, State: state})
	if err != nil {
		h.logger().ErrorContext(r.Context(), "complete login failed", "error", err)
		h.clearTransientCookies(w, r)
		if apperrors.IsAuthFailure(err) {
			redirectToAuthError(w, r, AuthErrorAccessDenied)
			return
		}
		redirectToAuthError(w, r, AuthErrorConfiguration)
		return
	}

	h.Cookies.setSessionCookie(w, r, sessionCookieParams{Token: res.Token, ExpiresAt: res.Session.ExpiresAt})
	redirect := h.postLoginRedirect(r)
	h.clearTransientCookies(w, r)
	h.logger().InfoContext(r.Context(), "user signed in", "user", res.Session.Identity.Username, "mode", domainauth.ModeOAuth)

	http.Redirect(w, r, redirect, http.StatusFound)
}

// Logout handles the logout endpoint.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.Cookies.sessionToken(r); token != "" {
		if err := h.Svc.Logout(r.Context(), token); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}

	h.Cookies.clearCookie(w, r, h.Cookies.sessionName())

	signedOut := "/auth/signin"
	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": signedOut,
		})
		return
	}
	redirectBrowser(w, r, signedOut)
}

// Status returns the redacted session projection for browser code.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, GetSessionFromContext(r.Context()).Public())
}

// authErrorInfo is the copy shown on the auth error page.
type authErrorInfo struct {
	Title      string
	Message    string
	Suggestion string
}

func authErrorFor(code string) authErrorInfo {
	switch code {
	case AuthErrorConfiguration:
		return authErrorInfo{
			Title:      "Server Configuration Error",
			Message:    "There is a problem with the server configuration. Please contact support.",
			Suggestion: "Check if your environment variables are properly set.",
		}
	case AuthErrorAccessDenied:
		return authErrorInfo{
			Title:      "Access Denied",
			Message:    "You do not have permission to sign in.",
			Suggestion: "Contact your ServiceNow administrator to grant access.",
		}
	case AuthErrorVerification:
		return authErrorInfo{
			Title:      "Verification Error",
			Message:    "The verification token has expired or has already been used.",
			Suggestion: "Please try signing in again.",
		}
	case ErrorSessionExpired:
		return authErrorInfo{
			Title:      "Session Expired",
			Message:    "Your ServiceNow session could not be renewed.",
			Suggestion: "Please sign in again to continue.",
		}
	default:
		return authErrorInfo{
			Title:      "Authentication Error",
			Message:    "An unexpected error occurred during authentication.",
			Suggestion: "Please try again or contact support if the problem persists.",
		}
	}
}

// ErrorPage renders the authentication error page.
// GET /auth/error?error=<code>.
func (h *AuthHandlers) ErrorPage(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("error")
	info := authErrorFor(code)

	// A session that failed to refresh is unusable; drop it so sign-in starts clean.
	if code == ErrorSessionExpired {
		h.Cookies.clearCookie(w, r, h.Cookies.sessionName())
	}

	if h.Renderer == nil {
		WriteJSON(w, http.StatusOK, map[string]string{"error": code, "message": info.Message})
		return
	}
	if err := h.Renderer.Render(w, RenderOpts{
		Template: "auth-error-page",
		Status:   http.StatusOK,
		Data: map[string]any{
			"Title": info.Title + " - snowdash",
			"Code":  code,
			"Info":  info,
		},
	}); err != nil {
		http.Error(w, info.Message, http.StatusInternalServerError)
	}
}

// renderSignInParams groups values for renderSignIn.
type renderSignInParams struct {
	View   signInView
	Status int
}

func (h *AuthHandlers) renderSignIn(w http.ResponseWriter, r *http.Request, p renderSignInParams) {
	v := p.View
	v.Title = "Sign in - snowdash"
	v.Mode = h.Svc.Mode()
	v.CSRFToken = GetCSRFToken(r)

	if h.Renderer == nil {
		body := map[string]any{"mode": v.Mode, "redirect_uri": v.RedirectURI}
		if v.Error != "" {
			body["error"] = v.Error
		}
		WriteJSON(w, p.Status, body)
		return
	}
	if err := h.Renderer.Render(w, RenderOpts{Template: "signin-page", Data: v, Status: p.Status}); err != nil {
		http.Error(w, "unable to render sign-in page", http.StatusInternalServerError)
	}
}

// postLoginRedirect returns the redirect stored at login start, re-validated.
func (h *AuthHandlers) postLoginRedirect(r *http.Request) string {
	c, err := r.Cookie(postLoginRedirectCookie)
	if err != nil {
		return DefaultPostLoginPath
	}
	return safeRedirectPath(c.Value, DefaultPostLoginPath)
}

func (h *AuthHandlers) clearTransientCookies(w http.ResponseWriter, r *http.Request) {
	h.Cookies.clearCookie(w, r, oauthStateCookie)
	h.Cookies.clearCookie(w, r, postLoginRedirectCookie)
}

func redirectToAuthError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/auth/error?error="+url.QueryEscape(code), http.StatusSeeOther)
}

// wantsJSON reports whether the caller is script code expecting a JSON body.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}
