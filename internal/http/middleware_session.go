package httpx

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	domainauth "github.com/target/snowdash/internal/domain/auth"
	apperrors "github.com/target/snowdash/internal/errors"
)

// SessionMiddlewareConfig groups the dependencies of LoadSession.
type SessionMiddlewareConfig struct {
	Auth    AuthServiceInterface
	Cookies CookieConfig
	Logger  *slog.Logger
}

// LoadSession resolves the session cookie into a session in the request context.
// A reissued token (after an OAuth refresh) is written back; a cookie the auth
// service rejects is cleared. Requests without a usable session continue anonymously.
func LoadSession(cfg SessionMiddlewareConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cfg.Cookies.sessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := cfg.Auth.ReadSession(r.Context(), token)
			switch {
			case apperrors.IsUnauthorized(err):
				cfg.Cookies.clearCookie(w, r, cfg.Cookies.sessionName())
				next.ServeHTTP(w, r)
				return
			case err != nil:
				logger.ErrorContext(r.Context(), "read session failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if res.Reissued {
				cfg.Cookies.setSessionCookie(w, r, sessionCookieParams{
					Token:     res.Token,
					ExpiresAt: res.Session.ExpiresAt,
				})
			}
			sess := res.Session
			noteRequestUser(r.Context(), sess.Identity.Username)
			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), &sess)))
		})
	}
}

// RequireSession admits only authenticated sessions loaded by LoadSession.
// Browsers are redirected (to sign-in, or to the auth error page when a refresh
// failed); API callers get 401 with {"error":"Unauthorized"} or {"error":"SessionExpired"}.
func RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := GetSessionFromContext(r.Context()).State()
			if state == domainauth.StateAuthenticated {
				next.ServeHTTP(w, r)
				return
			}

			browser := IsBrowserRequest(r)
			switch {
			case state == domainauth.StateErrorExpired && browser:
				redirectBrowser(w, r, "/auth/error?error="+ErrorSessionExpired)
			case state == domainauth.StateErrorExpired:
				WriteAppError(w, apperrors.SessionExpired("session refresh failed"), ErrorSessionExpired)
			case browser:
				redirectToSignIn(w, r)
			default:
				WriteAppError(w, apperrors.Unauthorized("no session"), ErrorUnauthorized)
			}
		})
	}
}

type browserRequestKey struct{}

// BrowserDetection classifies the request once so handlers can choose between
// HTML and JSON responses via IsBrowserRequest.
func BrowserDetection() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), browserRequestKey{}, classifyBrowser(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsBrowserRequest reports the BrowserDetection result, classifying directly when
// the middleware did not run.
func IsBrowserRequest(r *http.Request) bool {
	if v, ok := r.Context().Value(browserRequestKey{}).(bool); ok {
		return v
	}
	return classifyBrowser(r)
}

// classifyBrowser: /api/ and /static/ are never browser pages; htmx always is;
// otherwise an Accept header without text/html means a programmatic client.
func classifyBrowser(r *http.Request) bool {
	for _, prefix := range []string{"/api/", "/static/"} {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return false
		}
	}
	if IsHTMX(r) {
		return true
	}
	accept := r.Header.Get("Accept")
	if accept == "" {
		return true
	}
	for _, part := range strings.Split(accept, ",") {
		if mt, _, err := mime.ParseMediaType(strings.TrimSpace(part)); err == nil && mt == "text/html" {
			return true
		}
	}
	return false
}

// redirectToSignIn sends the browser to sign-in with the current location as redirect_uri.
func redirectToSignIn(w http.ResponseWriter, r *http.Request) {
	back := safeRedirectPath(r.URL.RequestURI(), "/")
	redirectBrowser(w, r, "/auth/signin?redirect_uri="+url.QueryEscape(back))
}

// redirectBrowser uses Hx-Redirect for htmx so the whole page navigates rather than a swap target.
func redirectBrowser(w http.ResponseWriter, r *http.Request, target string) {
	if !IsHTMX(r) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	SetHXRedirect(w, target)
	w.WriteHeader(http.StatusOK)
}
