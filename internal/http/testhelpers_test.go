package httpx

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/target/snowdash/internal/adapters/jwtsession"
	"github.com/target/snowdash/internal/data/cryptoutil"
	domainauth "github.com/target/snowdash/internal/domain/auth"
	"github.com/target/snowdash/internal/domain/record"
	mocks "github.com/target/snowdash/internal/mocks/auth"
	"github.com/target/snowdash/internal/service"
)

// createTestRenderer parses the real templates from disk.
func createTestRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	tr, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: os.DirFS(TemplatePathFromTest)})
	require.NoError(t, err)
	return tr
}

func newTestCodec(t *testing.T, now func() time.Time) *jwtsession.Codec {
	t.Helper()
	enc, err := cryptoutil.NewAESGCMEncryptor(bytes.Repeat([]byte{7}, cryptoutil.KeySize))
	require.NoError(t, err)
	codec, err := jwtsession.New(jwtsession.Config{
		SigningKey: []byte("http-test-signing-key-at-least-32-bytes"),
		Encryptor:  enc,
		Now:        now,
	})
	require.NoError(t, err)
	return codec
}

// authFixture is a real AuthService wired to in-memory exchangers.
type authFixture struct {
	svc         *service.AuthService
	basic       *mocks.MockBasicExchanger
	oauth       *mocks.MockOAuthProvider
	revocations *mocks.MemoryRevocationStore
}

func newBasicAuth(t *testing.T) authFixture {
	t.Helper()
	basic := mocks.NewMockBasicExchanger(map[string]string{"abel.tuter": "secret"})
	rev := mocks.NewMemoryRevocationStore()
	svc := service.NewAuthService(service.AuthServiceOptions{
		Exchangers: service.Exchangers{Mode: domainauth.ModeBasic, Basic: basic},
		Sessions:   service.SessionConfig{Codec: newTestCodec(t, time.Now), Revocations: rev, TTL: time.Hour},
	})
	return authFixture{svc: svc, basic: basic, revocations: rev}
}

func newOAuthAuth(t *testing.T) authFixture {
	t.Helper()
	provider := mocks.NewMockOAuthProvider()
	rev := mocks.NewMemoryRevocationStore()
	svc := service.NewAuthService(service.AuthServiceOptions{
		Exchangers: service.Exchangers{Mode: domainauth.ModeOAuth, OAuth: provider},
		Sessions:   service.SessionConfig{Codec: newTestCodec(t, time.Now), Revocations: rev, TTL: time.Hour},
	})
	return authFixture{svc: svc, oauth: provider, revocations: rev}
}

// signIn issues a Basic session and returns its cookie.
func (f authFixture) signIn(t *testing.T) *http.Cookie {
	t.Helper()
	res, err := f.svc.SignInBasic(context.Background(), service.SignInInput{Username: "abel.tuter", Password: "secret"})
	require.NoError(t, err)
	return &http.Cookie{Name: DefaultSessionCookieName, Value: res.Token}
}

func testSession() *domainauth.Session {
	return &domainauth.Session{
		ID: "sess-1",
		Identity: domainauth.Identity{
			ID:          "sys-abel",
			DisplayName: "Abel Tuter",
			Email:       "abel.tuter@example.com",
			Username:    "abel.tuter",
		},
		Credential: domainauth.NewBasicCredential("YWJlbC50dXRlcjpzZWNyZXQ="),
		IssuedAt:   time.Now(),
		ExpiresAt:  time.Now().Add(time.Hour),
	}
}

func withSession(r *http.Request, sess *domainauth.Session) *http.Request {
	return r.WithContext(SetSessionInContext(r.Context(), sess))
}

// fakeRecords is a canned RecordServiceInterface.
type fakeRecords struct {
	Rows       []record.Record
	ProfileRow record.Record
	Err        error

	LastParams service.ListParams
	Calls      int
}

func (f *fakeRecords) list(p service.ListParams) ([]record.Record, error) {
	f.Calls++
	f.LastParams = p
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Rows, nil
}

func (f *fakeRecords) ListIncidents(_ context.Context, _ *domainauth.Session, p service.ListParams) ([]record.Record, error) {
	return f.list(p)
}

func (f *fakeRecords) ListRequestItems(_ context.Context, _ *domainauth.Session, p service.ListParams) ([]record.Record, error) {
	return f.list(p)
}

func (f *fakeRecords) ListUsers(_ context.Context, _ *domainauth.Session, p service.ListParams) ([]record.Record, error) {
	return f.list(p)
}

func (f *fakeRecords) Profile(_ context.Context, _ *domainauth.Session) (record.Record, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.ProfileRow, nil
}

func incidentRow(sysID, number string) record.Record {
	return record.Record{
		"sys_id":            record.String(sysID),
		"number":            record.String(number),
		"short_description": record.String("Email is down"),
		"priority":          record.String("1"),
		"state":             record.String("2"),
		"created_on":        record.String("2025-03-01 09:00:00"),
		"updated_on":        record.String("2025-03-01 10:00:00"),
	}
}

func userRow() record.Record {
	return record.Record{
		"sys_id":     record.String("sys-abel"),
		"user_name":  record.String("abel.tuter"),
		"first_name": record.String("Abel"),
		"last_name":  record.String("Tuter"),
		"email":      record.String("abel.tuter@example.com"),
		"active":     record.String("true"),
	}
}
