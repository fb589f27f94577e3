package testutil

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// FakeUser is a sys_user row accepted by FakeServiceNow.
type FakeUser struct {
	SysID     string
	UserName  string
	Password  string
	FirstName string
	LastName  string
	Email     string
}

func (u FakeUser) row() map[string]any {
	return map[string]any{
		"sys_id":     u.SysID,
		"user_name":  u.UserName,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"name":       strings.TrimSpace(u.FirstName + " " + u.LastName),
		"email":      u.Email,
		"active":     "true",
	}
}

// FakeServiceNow emulates the slice of a ServiceNow instance snowdash talks
// to: the table API (Basic or Bearer auth) and the OAuth endpoints.
type FakeServiceNow struct {
	*httptest.Server

	mu      sync.Mutex
	users   []FakeUser
	tables  map[string][]map[string]any
	tokens  map[string]string // access token -> user_name
	refresh map[string]string // refresh token -> user_name
	codes   map[string]string // authorization code -> user_name

	// FailRefresh makes the refresh_token grant return invalid_grant.
	FailRefresh atomic.Bool
	// OverReturn makes table lists ignore sysparm_limit.
	OverReturn atomic.Bool

	TableCalls   atomic.Int32
	RefreshCalls atomic.Int32
	tokenSeq     atomic.Int32
}

// NewFakeServiceNow starts a fake instance. Close it with t.Cleanup(f.Close).
func NewFakeServiceNow(users ...FakeUser) *FakeServiceNow {
	f := &FakeServiceNow{
		users:   users,
		tables:  map[string][]map[string]any{},
		tokens:  map[string]string{},
		refresh: map[string]string{},
		codes:   map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/now/table/{table}", f.handleList)
	mux.HandleFunc("POST /oauth_token.do", f.handleToken)
	mux.HandleFunc("GET /oauth_userinfo.do", f.handleUserInfo)
	f.Server = httptest.NewServer(mux)
	return f
}

// SetTable replaces the rows served for table.
func (f *FakeServiceNow) SetTable(table string, rows []map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = rows
}

// IssueCode registers an authorization code that signs in userName.
func (f *FakeServiceNow) IssueCode(code, userName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[code] = userName
}

// ExpireAccessTokens invalidates every issued access token.
func (f *FakeServiceNow) ExpireAccessTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = map[string]string{}
}

func (f *FakeServiceNow) findUser(userName string) (FakeUser, bool) {
	for _, u := range f.users {
		if u.UserName == userName {
			return u, true
		}
	}
	return FakeUser{}, false
}

func (f *FakeServiceNow) authenticate(r *http.Request) (FakeUser, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	authz := r.Header.Get("Authorization")
	switch {
	case strings.HasPrefix(authz, "Basic "):
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authz, "Basic "))
		if err != nil {
			return FakeUser{}, false
		}
		name, pass, ok := strings.Cut(string(raw), ":")
		if !ok {
			return FakeUser{}, false
		}
		u, found := f.findUser(name)
		return u, found && u.Password == pass
	case strings.HasPrefix(authz, "Bearer "):
		name, ok := f.tokens[strings.TrimPrefix(authz, "Bearer ")]
		if !ok {
			return FakeUser{}, false
		}
		return f.findUser(name)
	default:
		return FakeUser{}, false
	}
}

func writeFakeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func unauthenticated(w http.ResponseWriter) {
	writeFakeJSON(w, http.StatusUnauthorized, map[string]any{
		"error":  map[string]string{"message": "User Not Authenticated", "detail": "Required to provide Auth information"},
		"status": "failure",
	})
}

func (f *FakeServiceNow) handleList(w http.ResponseWriter, r *http.Request) {
	f.TableCalls.Add(1)
	user, ok := f.authenticate(r)
	if !ok {
		unauthenticated(w)
		return
	}

	table := r.PathValue("table")
	q := r.URL.Query()
	query := q.Get("sysparm_query")

	var rows []map[string]any
	if table == "sys_user" {
		switch {
		case query == "sys_id=javascript:gs.getUserID()":
			rows = []map[string]any{user.row()}
		case strings.HasPrefix(query, "user_name="):
			f.mu.Lock()
			if u, found := f.findUser(strings.TrimPrefix(query, "user_name=")); found {
				rows = []map[string]any{u.row()}
			}
			f.mu.Unlock()
		default:
			f.mu.Lock()
			for _, u := range f.users {
				rows = append(rows, u.row())
			}
			f.mu.Unlock()
		}
	} else {
		f.mu.Lock()
		rows = append(rows, f.tables[table]...)
		f.mu.Unlock()
	}

	offset, _ := strconv.Atoi(q.Get("sysparm_offset"))
	if offset > 0 {
		if offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[offset:]
		}
	}
	if limit, err := strconv.Atoi(q.Get("sysparm_limit")); err == nil && limit >= 0 && limit < len(rows) && !f.OverReturn.Load() {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []map[string]any{}
	}

	writeFakeJSON(w, http.StatusOK, map[string]any{"result": rows})
}

func (f *FakeServiceNow) issueTokens(userName string) map[string]any {
	n := f.tokenSeq.Add(1)
	access := "access-" + strconv.Itoa(int(n))
	refresh := "refresh-" + strconv.Itoa(int(n))
	f.tokens[access] = userName
	f.refresh[refresh] = userName
	return map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "Bearer",
		"scope":         "useraccount",
		"expires_in":    1799,
	}
}

func (f *FakeServiceNow) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		name, ok := f.codes[r.PostForm.Get("code")]
		if !ok {
			writeFakeJSON(w, http.StatusUnauthorized, map[string]string{"error": "access_denied", "error_description": "invalid code"})
			return
		}
		delete(f.codes, r.PostForm.Get("code"))
		writeFakeJSON(w, http.StatusOK, f.issueTokens(name))
	case "refresh_token":
		f.RefreshCalls.Add(1)
		name, ok := f.refresh[r.PostForm.Get("refresh_token")]
		if !ok || f.FailRefresh.Load() {
			writeFakeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_grant"})
			return
		}
		writeFakeJSON(w, http.StatusOK, f.issueTokens(name))
	default:
		writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func (f *FakeServiceNow) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	user, ok := f.authenticate(r)
	if !ok {
		unauthenticated(w)
		return
	}
	writeFakeJSON(w, http.StatusOK, map[string]any{
		"sub":       user.SysID,
		"sys_id":    user.SysID,
		"user_name": user.UserName,
		"name":      strings.TrimSpace(user.FirstName + " " + user.LastName),
		"email":     user.Email,
	})
}
