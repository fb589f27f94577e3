package httpx

import (
	"context"

	domainauth "github.com/target/snowdash/internal/domain/auth"
)

type sessionKey struct{}

// SetSessionInContext attaches session to ctx. A nil session leaves ctx unchanged.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetUserSessionFromContext returns the session placed by LoadSession, if any.
func GetUserSessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	s := GetSessionFromContext(ctx)
	return s, s != nil
}

// GetSessionFromContext returns the session placed by LoadSession, or nil. The nil
// session reports StateUnauthenticated.
func GetSessionFromContext(ctx context.Context) *domainauth.Session {
	s, _ := ctx.Value(sessionKey{}).(*domainauth.Session)
	return s
}
