package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/snowdash/internal/domain/auth"
	"github.com/target/snowdash/internal/ports"
)

func TestMockBasicExchanger(t *testing.T) {
	ex := NewMockBasicExchanger(map[string]string{"abel.tuter": "secret"})
	ctx := context.Background()

	id, cred, err := ex.Exchange(ctx, "abel.tuter", "secret")
	require.NoError(t, err)
	assert.Equal(t, "abel.tuter", id.Username)
	assert.Equal(t, domainauth.ModeBasic, cred.Kind)
	assert.Equal(t, "Basic YWJlbC50dXRlcjpzZWNyZXQ=", cred.AuthorizationHeader())

	_, _, err = ex.Exchange(ctx, "abel.tuter", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 2, ex.Calls())
}

func TestMockOAuthProvider_Begin_Defaults(t *testing.T) {
	provider := NewMockOAuthProvider()
	ctx := context.Background()

	input := ports.BeginInput{RedirectURL: "http://localhost:8080/auth/callback"}
	authURL, state, err := provider.Begin(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "https://mock.service-now.com/oauth_auth.do", authURL)
	assert.Equal(t, "state-1", state)

	_, state2, err := provider.Begin(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "state-2", state2)
}

func TestMockOAuthProvider_ExchangeAndRefresh(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	provider := NewMockOAuthProvider()
	provider.Now = func() time.Time { return now }
	ctx := context.Background()

	id, cred, err := provider.Exchange(ctx, ports.ExchangeInput{Code: "abc", State: "state-1"})
	require.NoError(t, err)
	assert.Equal(t, "mock.user", id.Username)
	require.NotNil(t, cred.OAuth)
	assert.Equal(t, "access-abc", cred.OAuth.AccessToken)
	assert.Equal(t, now.Add(30*time.Minute), cred.OAuth.ExpiresAt)

	next, err := provider.Refresh(ctx, *cred.OAuth)
	require.NoError(t, err)
	assert.Equal(t, "refreshed-1", next.AccessToken)
	assert.Equal(t, "refresh-abc", next.RefreshToken)
	assert.Equal(t, 1, provider.RefreshCalls())

	_, err = provider.Refresh(ctx, domainauth.OAuthCredential{AccessToken: "x"})
	require.Error(t, err)
}

func TestMemoryRevocationStore(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryRevocationStore().WithNow(func() time.Time { return now })
	ctx := context.Background()

	require.Error(t, store.Revoke(ctx, "", now.Add(time.Hour)))

	require.NoError(t, store.Revoke(ctx, "s1", now.Add(time.Hour)))
	revoked, err := store.IsRevoked(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Already expired tokens need no entry.
	require.NoError(t, store.Revoke(ctx, "s2", now.Add(-time.Minute)))
	revoked, err = store.IsRevoked(ctx, "s2")
	require.NoError(t, err)
	assert.False(t, revoked)

	now = now.Add(2 * time.Hour)
	revoked, err = store.IsRevoked(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, revoked)
}
