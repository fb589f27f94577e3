package httpx

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"time"
)

const (
	DefaultCSRFCookieName  = "csrf_token"
	DefaultCSRFHeaderName  = "X-Csrf-Token"
	DefaultCSRFTokenLength = 32
	DefaultCSRFMaxAge      = 12 * time.Hour
)

// CSRFConfig configures the double-submit cookie guard. Zero values fall back to the Default* constants.
type CSRFConfig struct {
	CookieName string
	HeaderName string
	// FormFieldName defaults to the cookie name.
	FormFieldName string
	CookieDomain  string
	TokenLength   int
	MaxAge        time.Duration
}

func (c CSRFConfig) withDefaults() CSRFConfig {
	if c.CookieName == "" {
		c.CookieName = DefaultCSRFCookieName
	}
	if c.HeaderName == "" {
		c.HeaderName = DefaultCSRFHeaderName
	}
	if c.FormFieldName == "" {
		c.FormFieldName = c.CookieName
	}
	if c.TokenLength <= 0 {
		c.TokenLength = DefaultCSRFTokenLength
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultCSRFMaxAge
	}
	return c
}

// CSRFProtection guards the sign-in and sign-out forms. Every request carries a token in its
// context for templates; unsafe methods must echo the cookie value in the X-Csrf-Token header
// (htmx) or the csrf_token form field.
func CSRFProtection(cfg CSRFConfig) func(http.Handler) http.Handler {
	g := csrfGuard{cfg: cfg.withDefaults()}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := g.ensureToken(w, r)
			if err != nil {
				http.Error(w, "unable to generate CSRF token", http.StatusInternalServerError)
				return
			}
			r = r.WithContext(setCSRFTokenInContext(r.Context(), token))

			if requiresCSRFValidation(r.Method) && !g.submitted(r, token) {
				http.Error(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type csrfGuard struct {
	cfg CSRFConfig
}

// ensureToken returns the cookie token, minting and setting a new one when absent.
// A fresh token on an unsafe request can never match, so such requests still fail.
func (g csrfGuard) ensureToken(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(g.cfg.CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	buf := make([]byte, g.cfg.TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("csrf token generation failed: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:   g.cfg.CookieName,
		Value:  token,
		Path:   "/",
		Domain: g.cfg.CookieDomain,
		// htmx reads it from script to set the header.
		HttpOnly: false,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(g.cfg.MaxAge / time.Second),
	})
	return token, nil
}

// submitted reports whether the request echoes token. A present header is authoritative;
// the form field is consulted only for form-encoded bodies.
func (g csrfGuard) submitted(r *http.Request, token string) bool {
	if token == "" {
		return false
	}
	if h := r.Header.Get(g.cfg.HeaderName); h != "" {
		return tokensEqual(h, token)
	}
	if !isFormBody(r) {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	return tokensEqual(r.PostFormValue(g.cfg.FormFieldName), token)
}

func isFormBody(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}

func tokensEqual(got, want string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// requiresCSRFValidation is false for GET, HEAD, OPTIONS and TRACE.
func requiresCSRFValidation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}

type csrfTokenKey struct{}

func setCSRFTokenInContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfTokenKey{}, token)
}

// GetCSRFToken returns the request's CSRF token for rendering into forms and the csrf-token meta tag.
func GetCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfTokenKey{}).(string)
	return token
}
