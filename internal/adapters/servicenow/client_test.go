package servicenow

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/snowdash/internal/domain/auth"
	"github.com/target/snowdash/internal/domain/record"
	"github.com/target/snowdash/internal/ports"
)

func newTestClient(t *testing.T, h http.HandlerFunc, cred domainauth.Credential) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{InstanceURL: srv.URL + "/", Credential: cred})
	require.NoError(t, err)
	return c
}

func writeResult(t *testing.T, w http.ResponseWriter, status int, result any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{"result": result}))
}

func TestNew_Validation(t *testing.T) {
	cred := domainauth.NewBasicCredential("abc")

	_, err := New(Config{Credential: cred})
	require.Error(t, err)

	_, err = New(Config{InstanceURL: "example.service-now.com", Credential: cred})
	require.Error(t, err)

	_, err = New(Config{InstanceURL: "https://example.service-now.com"})
	require.Error(t, err)
}

func TestClient_List(t *testing.T) {
	var gotReq *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		writeResult(t, w, http.StatusOK, []map[string]any{
			{"sys_id": "a1", "number": "INC0000001"},
			{"sys_id": "a2", "number": "INC0000002"},
		})
	}, domainauth.NewOAuthCredential(domainauth.OAuthCredential{AccessToken: "tok"}))

	rows, err := c.List(context.Background(), "incident", ports.ListOptions{
		Limit:  5,
		Offset: 10,
		Query:  "active=true^ORDERBYDESCsys_created_on",
		Fields: "sys_id,number",
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a1", rows[0].SysID())

	require.NotNil(t, gotReq)
	assert.Equal(t, http.MethodGet, gotReq.Method)
	assert.Equal(t, "/api/now/table/incident", gotReq.URL.Path)
	q := gotReq.URL.Query()
	assert.Equal(t, "5", q.Get("sysparm_limit"))
	assert.Equal(t, "10", q.Get("sysparm_offset"))
	assert.Equal(t, "active=true^ORDERBYDESCsys_created_on", q.Get("sysparm_query"))
	assert.Equal(t, "sys_id,number", q.Get("sysparm_fields"))
	assert.Equal(t, "Bearer tok", gotReq.Header.Get("Authorization"))
	assert.Equal(t, "application/json", gotReq.Header.Get("Accept"))
}

func TestClient_ListOmitsEmptyParams(t *testing.T) {
	var rawQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		writeResult(t, w, http.StatusOK, []any{})
	}, domainauth.NewBasicCredential("YWJjOmRlZg=="))

	rows, err := c.List(context.Background(), "sc_req_item", ports.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, rawQuery)
}

func TestClient_BasicCredentialSendsBasicHeader(t *testing.T) {
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		writeResult(t, w, http.StatusOK, []any{})
	}, domainauth.NewBasicCredential("YWJjOmRlZg=="))

	_, err := c.List(context.Background(), "incident", ports.ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, "Basic YWJjOmRlZg==", auth)
}

func TestClient_UpstreamErrorEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"User Not Authenticated","detail":"Required to provide Auth information"},"status":"failure"}`)
	}, domainauth.NewBasicCredential("abc"))

	_, err := c.List(context.Background(), "incident", ports.ListOptions{})
	require.Error(t, err)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusUnauthorized, ue.Status)
	assert.Equal(t, "User Not Authenticated", ue.Message)
	assert.Equal(t, "Required to provide Auth information", ue.Detail)
}

func TestClient_UpstreamErrorPlainBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "instance hibernating", http.StatusServiceUnavailable)
	}, domainauth.NewBasicCredential("abc"))

	_, err := c.Get(context.Background(), "incident", "a1")
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusServiceUnavailable, ue.Status)
	assert.Equal(t, "instance hibernating", ue.Message)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{InstanceURL: url, Credential: domainauth.NewBasicCredential("abc")})
	require.NoError(t, err)

	_, err = c.List(context.Background(), "incident", ports.ListOptions{})
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 0, ue.Status)
	assert.NotNil(t, ue.Cause)
}

func TestClient_ContextPropagated(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}, domainauth.NewBasicCredential("abc"))
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.List(ctx, "incident", ports.ListOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_CRUD(t *testing.T) {
	type seen struct {
		method string
		path   string
		body   map[string]any
	}
	var calls []seen

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		s := seen{method: r.Method, path: r.URL.Path}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&s.body)
		}
		calls = append(calls, s)

		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPost:
			writeResult(t, w, http.StatusCreated, map[string]any{"sys_id": "new1", "short_description": "Printer jam"})
		default:
			writeResult(t, w, http.StatusOK, map[string]any{"sys_id": "a1", "state": "2"})
		}
	}, domainauth.NewBasicCredential("abc"))

	ctx := context.Background()

	created, err := c.Create(ctx, "incident", record.Record{"short_description": record.String("Printer jam")})
	require.NoError(t, err)
	assert.Equal(t, "new1", created.SysID())

	got, err := c.Get(ctx, "incident", "a1")
	require.NoError(t, err)
	assert.Equal(t, "2", got.Text("state"))

	updated, err := c.Update(ctx, "incident", "a1", record.Record{"state": record.String("2")})
	require.NoError(t, err)
	assert.Equal(t, "a1", updated.SysID())

	require.NoError(t, c.Delete(ctx, "incident", "a1"))

	require.Len(t, calls, 4)
	assert.Equal(t, http.MethodPost, calls[0].method)
	assert.Equal(t, "/api/now/table/incident", calls[0].path)
	assert.Equal(t, "Printer jam", calls[0].body["short_description"])
	assert.Equal(t, "/api/now/table/incident/a1", calls[1].path)
	assert.Equal(t, http.MethodPatch, calls[2].method)
	assert.Equal(t, http.MethodDelete, calls[3].method)
}

func TestClient_RequiresSysID(t *testing.T) {
	c, err := New(Config{InstanceURL: "https://example.service-now.com", Credential: domainauth.NewBasicCredential("abc")})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "incident", "")
	require.Error(t, err)
	require.Error(t, c.Delete(context.Background(), "incident", ""))
}

func TestClient_RejectsBadTableName(t *testing.T) {
	c, err := New(Config{InstanceURL: "https://example.service-now.com", Credential: domainauth.NewBasicCredential("abc")})
	require.NoError(t, err)

	_, err = c.List(context.Background(), "../now/ui", ports.ListOptions{})
	require.Error(t, err)
}

func TestClient_UserProfile(t *testing.T) {
	var query string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("sysparm_query")
		assert.Equal(t, "/api/now/table/sys_user", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("sysparm_limit"))
		writeResult(t, w, http.StatusOK, []map[string]any{{"sys_id": "u1", "user_name": "abel.tuter"}})
	}, domainauth.NewBasicCredential("abc"))

	rec, err := c.UserProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abel.tuter", rec.Text("user_name"))
	assert.Equal(t, "sys_id=javascript:gs.getUserID()", query)
}

func TestClient_UserProfileEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeResult(t, w, http.StatusOK, []any{})
	}, domainauth.NewBasicCredential("abc"))

	_, err := c.UserProfile(context.Background())
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusNotFound, ue.Status)
}

func TestFactory_ForCredential(t *testing.T) {
	f := &Factory{InstanceURL: "https://example.service-now.com"}

	api, err := f.ForCredential(domainauth.NewBasicCredential("abc"))
	require.NoError(t, err)
	assert.NotNil(t, api)

	_, err = f.ForCredential(domainauth.Credential{})
	require.Error(t, err)
}
