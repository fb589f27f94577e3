package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/target/snowdash/internal/domain/auth"
	"github.com/target/snowdash/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.BasicExchanger  = (*MockBasicExchanger)(nil)
	_ ports.OAuthProvider   = (*MockOAuthProvider)(nil)
	_ ports.RevocationStore = (*MemoryRevocationStore)(nil)
)

// ErrInvalidCredentials is returned by MockBasicExchanger for unknown users or bad passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

// MockBasicExchanger accepts a fixed set of username/password pairs.
type MockBasicExchanger struct {
	ExchangeFunc func(ctx context.Context, username, password string) (domainauth.Identity, domainauth.Credential, error)

	// Users maps username to password.
	Users map[string]string

	mu    sync.Mutex
	calls int
}

// NewMockBasicExchanger creates an exchanger accepting the given username/password pairs.
func NewMockBasicExchanger(users map[string]string) *MockBasicExchanger {
	return &MockBasicExchanger{Users: users}
}

// Calls returns how many times Exchange was invoked.
func (m *MockBasicExchanger) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockBasicExchanger) Exchange(
	ctx context.Context,
	username, password string,
) (domainauth.Identity, domainauth.Credential, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, username, password)
	}

	want, ok := m.Users[username]
	if !ok || want != password {
		return domainauth.Identity{}, domainauth.Credential{}, ErrInvalidCredentials
	}

	id := domainauth.Identity{
		ID:          "sys-" + username,
		DisplayName: username,
		Email:       username + "@servicenow.com",
		Username:    username,
	}
	enc := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return id, domainauth.NewBasicCredential(enc), nil
}

// MockOAuthProvider simulates the ServiceNow OAuth endpoints with deterministic state handling.
type MockOAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, domainauth.Credential, error)
	RefreshFunc  func(ctx context.Context, cred domainauth.OAuthCredential) (domainauth.OAuthCredential, error)

	// Deterministic values for predictable testing
	AuthURL     string
	StatePrefix string
	DefaultUser domainauth.Identity
	TokenTTL    time.Duration
	Now         func() time.Time

	mu           sync.Mutex
	beginCalls   int
	refreshCalls int
}

// NewMockOAuthProvider creates a MockOAuthProvider with sensible defaults.
func NewMockOAuthProvider() *MockOAuthProvider {
	return &MockOAuthProvider{
		AuthURL:     "https://mock.service-now.com/oauth_auth.do",
		StatePrefix: "state",
		DefaultUser: domainauth.Identity{
			ID:          "mock-user-1",
			DisplayName: "Mock User",
			Email:       "mock.user@example.com",
			Username:    "mock.user",
		},
		TokenTTL: 30 * time.Minute,
	}
}

func (m *MockOAuthProvider) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// RefreshCalls returns how many times Refresh was invoked.
func (m *MockOAuthProvider) RefreshCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCalls
}

func (m *MockOAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	m.mu.Lock()
	m.beginCalls++
	n := m.beginCalls
	m.mu.Unlock()

	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock.service-now.com/oauth_auth.do"
	}
	prefix := m.StatePrefix
	if prefix == "" {
		prefix = "state"
	}
	return authURL, fmt.Sprintf("%s-%d", prefix, n), nil
}

func (m *MockOAuthProvider) Exchange(
	ctx context.Context,
	in ports.ExchangeInput,
) (domainauth.Identity, domainauth.Credential, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	if in.Code == "" {
		return domainauth.Identity{}, domainauth.Credential{}, errors.New("missing code")
	}

	cred := domainauth.NewOAuthCredential(domainauth.OAuthCredential{
		AccessToken:  "access-" + in.Code,
		RefreshToken: "refresh-" + in.Code,
		ExpiresAt:    m.now().Add(m.TokenTTL),
	})
	return m.DefaultUser, cred, nil
}

func (m *MockOAuthProvider) Refresh(
	ctx context.Context,
	cred domainauth.OAuthCredential,
) (domainauth.OAuthCredential, error) {
	m.mu.Lock()
	m.refreshCalls++
	n := m.refreshCalls
	m.mu.Unlock()

	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, cred)
	}
	if cred.RefreshToken == "" {
		return domainauth.OAuthCredential{}, errors.New("missing refresh token")
	}
	return domainauth.OAuthCredential{
		AccessToken:  fmt.Sprintf("refreshed-%d", n),
		RefreshToken: cred.RefreshToken,
		ExpiresAt:    m.now().Add(m.TokenTTL),
	}, nil
}

// MemoryRevocationStore is an in-memory revocation list. It is also used as the
// fallback store when Redis is disabled, so it is safe for concurrent use.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore creates an empty store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time), now: time.Now}
}

// WithNow overrides the clock used to expire entries.
func (m *MemoryRevocationStore) WithNow(now func() time.Time) *MemoryRevocationStore {
	m.now = now
	return m
}

func (m *MemoryRevocationStore) Revoke(_ context.Context, id string, until time.Time) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !until.After(m.now()) {
		return nil
	}
	m.revoked[id] = until
	return nil
}

func (m *MemoryRevocationStore) IsRevoked(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.revoked[id]
	if !ok {
		return false, nil
	}
	if !until.After(m.now()) {
		delete(m.revoked, id)
		return false, nil
	}
	return true, nil
}
