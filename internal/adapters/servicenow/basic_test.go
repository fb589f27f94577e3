package servicenow

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/snowdash/internal/domain/auth"
	apperrors "github.com/target/snowdash/internal/errors"
)

// fakeInstance accepts exactly one username/password pair.
func fakeInstance(t *testing.T, user, pass string, rows []map[string]any) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"User Not Authenticated"}}`))
			return
		}
		assert.Equal(t, "/api/now/table/sys_user", r.URL.Path)
		assert.Equal(t, "user_name="+user, r.URL.Query().Get("sysparm_query"))
		assert.Equal(t, "1", r.URL.Query().Get("sysparm_limit"))
		writeResult(t, w, http.StatusOK, rows)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestBasicExchanger_Success(t *testing.T) {
	srv, hits := fakeInstance(t, "abel.tuter", "s3cret", []map[string]any{{
		"sys_id":     "62826bf03710200044e0bfc8bcbe5df1",
		"user_name":  "abel.tuter",
		"email":      "abel.tuter@example.com",
		"first_name": "Abel",
		"last_name":  "Tuter",
	}})

	ex, err := NewBasicExchanger(BasicExchangerConfig{InstanceURL: srv.URL})
	require.NoError(t, err)

	id, cred, err := ex.Exchange(context.Background(), "abel.tuter", "s3cret")
	require.NoError(t, err)

	assert.Equal(t, "abel.tuter", id.Username)
	assert.Equal(t, "62826bf03710200044e0bfc8bcbe5df1", id.ID)
	assert.Equal(t, "Abel Tuter", id.DisplayName)
	assert.Equal(t, "abel.tuter@example.com", id.Email)

	assert.Equal(t, domainauth.ModeBasic, cred.Kind)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("abel.tuter:s3cret")), cred.Basic.Encoded)
	assert.Equal(t, int32(1), hits.Load())
}

func TestBasicExchanger_EmailFallback(t *testing.T) {
	srv, _ := fakeInstance(t, "beth", "pw", []map[string]any{{"sys_id": "u2", "user_name": "beth"}})
	ex, err := NewBasicExchanger(BasicExchangerConfig{InstanceURL: srv.URL})
	require.NoError(t, err)

	id, _, err := ex.Exchange(context.Background(), "beth", "pw")
	require.NoError(t, err)
	assert.Equal(t, "beth@servicenow.com", id.Email)
	assert.Equal(t, "beth", id.DisplayName)
}

func TestBasicExchanger_Failures(t *testing.T) {
	srv, hits := fakeInstance(t, "abel.tuter", "s3cret", []map[string]any{{"sys_id": "u1"}})
	emptySrv, _ := fakeInstance(t, "ghost", "pw", []map[string]any{})

	tests := []struct {
		name     string
		url      string
		user     string
		pass     string
		wantHits bool
	}{
		{name: "wrong password", url: srv.URL, user: "abel.tuter", pass: "nope", wantHits: true},
		{name: "no rows", url: emptySrv.URL, user: "ghost", pass: "pw"},
		{name: "empty password", url: srv.URL, user: "abel.tuter", pass: ""},
		{name: "query injection", url: srv.URL, user: "x^ORactive=true", pass: "pw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := NewBasicExchanger(BasicExchangerConfig{InstanceURL: tt.url})
			require.NoError(t, err)

			before := hits.Load()
			id, cred, err := ex.Exchange(context.Background(), tt.user, tt.pass)
			require.Error(t, err)
			assert.True(t, apperrors.IsAuthFailure(err))
			assert.Equal(t, domainauth.Identity{}, id)
			assert.False(t, cred.Valid())
			if tt.wantHits {
				assert.Equal(t, before+1, hits.Load(), "exactly one upstream call, no retry")
			}
		})
	}
}

func TestBasicExchanger_UnreachableInstance(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	ex, err := NewBasicExchanger(BasicExchangerConfig{InstanceURL: addr})
	require.NoError(t, err)

	_, _, err = ex.Exchange(context.Background(), "abel.tuter", "s3cret")
	assert.True(t, apperrors.IsAuthFailure(err))
}

func TestNewBasicExchanger_RequiresInstance(t *testing.T) {
	_, err := NewBasicExchanger(BasicExchangerConfig{})
	require.Error(t, err)
}
