package httpx

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Cookie names other than the configurable session cookie.
const (
	DefaultSessionCookieName = "snowdash_session"
	oauthStateCookie         = "oauth_state"
	postLoginRedirectCookie  = "post_login_redirect"
	transientCookieMaxAge    = 600 // 10 minutes
)

// CookieConfig controls the attributes of cookies set by the app.
type CookieConfig struct {
	SessionName string
	Domain      string
}

func (c CookieConfig) sessionName() string {
	if c.SessionName != "" {
		return c.SessionName
	}
	return DefaultSessionCookieName
}

// isSecureRequest reports whether the request arrived over HTTPS, accounting for proxies.
func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || isForwardedHTTPS(r)
}

// isForwardedHTTPS checks if the request was forwarded over HTTPS.
// Handles comma-separated values in X-Forwarded-Proto header.
func isForwardedHTTPS(r *http.Request) bool {
	xfProto := r.Header.Get("X-Forwarded-Proto")
	if xfProto == "" {
		return false
	}
	for _, proto := range strings.Split(xfProto, ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}

// sessionCookieParams groups values for setSessionCookie.
type sessionCookieParams struct {
	Token     string
	ExpiresAt time.Time
}

// setSessionCookie writes the signed session token, expiring with the session.
func (c CookieConfig) setSessionCookie(w http.ResponseWriter, r *http.Request, p sessionCookieParams) {
	maxAge := int(time.Until(p.ExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.sessionName(),
		Value:    p.Token,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// sessionToken returns the session cookie value, or "".
func (c CookieConfig) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(c.sessionName())
	if err != nil {
		return ""
	}
	return cookie.Value
}

// nameValue is a cookie pair.
type nameValue struct {
	Name  string
	Value string
}

// setTransientCookie stores a short-lived value for the OAuth round trip.
func (c CookieConfig) setTransientCookie(w http.ResponseWriter, r *http.Request, nv nameValue) {
	http.SetCookie(w, &http.Cookie{
		Name:     nv.Name,
		Value:    nv.Value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   transientCookieMaxAge,
	})
}

// clearCookie clears a cookie by setting it to expire immediately.
// It mirrors key attributes (Secure, Path, Domain, SameSite) used when setting cookies
// to maximize compatibility across browsers during deletion.
func (c CookieConfig) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns fallback when invalid.
func safeRedirectPath(candidate, fallback string) string {
	if candidate == "" {
		return fallback
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(candidate, "//") {
		return fallback
	}
	return candidate
}
