package httpx

import (
	"context"
	"log/slog"
	"net/http"

	domainauth "github.com/target/snowdash/internal/domain/auth"
	"github.com/target/snowdash/internal/domain/record"
	"github.com/target/snowdash/internal/service"
)

// RecordServiceInterface is the read surface the API and UI handlers need.
type RecordServiceInterface interface {
	ListIncidents(ctx context.Context, sess *domainauth.Session, p service.ListParams) ([]record.Record, error)
	ListRequestItems(ctx context.Context, sess *domainauth.Session, p service.ListParams) ([]record.Record, error)
	ListUsers(ctx context.Context, sess *domainauth.Session, p service.ListParams) ([]record.Record, error)
	Profile(ctx context.Context, sess *domainauth.Session) (record.Record, error)
}

var _ RecordServiceInterface = (*service.RecordService)(nil)

// APIHandlers serves the /api/servicenow JSON endpoints.
type APIHandlers struct {
	Records RecordServiceInterface
	Logger  *slog.Logger
}

func (h *APIHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type listFunc func(ctx context.Context, sess *domainauth.Session, p service.ListParams) ([]record.Record, error)

// listEndpoint describes one table list endpoint.
type listEndpoint struct {
	Key      string
	Fallback string
	List     listFunc
}

func (h *APIHandlers) serveList(w http.ResponseWriter, r *http.Request, ep listEndpoint) {
	params, err := parseListParams(r)
	if err != nil {
		WriteAppError(w, err, ep.Fallback)
		return
	}

	rows, err := ep.List(r.Context(), GetSessionFromContext(r.Context()), params)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "servicenow list failed", "endpoint", ep.Key, "error", err)
		WriteAppError(w, err, ep.Fallback)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{ep.Key: rows})
}

// Incidents lists incident records.
// GET /api/servicenow/incidents?limit=&offset=&query=&fields=.
func (h *APIHandlers) Incidents(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, listEndpoint{
		Key:      "incidents",
		Fallback: "Failed to fetch incidents",
		List:     h.Records.ListIncidents,
	})
}

// RequestItems lists sc_req_item records.
// GET /api/servicenow/request-items?limit=&offset=&query=&fields=.
func (h *APIHandlers) RequestItems(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, listEndpoint{
		Key:      "requestItems",
		Fallback: "Failed to fetch request items",
		List:     h.Records.ListRequestItems,
	})
}

// Users lists sys_user records.
// GET /api/servicenow/users?limit=&offset=&query=&fields=.
func (h *APIHandlers) Users(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, listEndpoint{
		Key:      "users",
		Fallback: "Failed to fetch users",
		List:     h.Records.ListUsers,
	})
}

// Profile returns the signed-in user's sys_user row.
// GET /api/servicenow/profile.
func (h *APIHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Records.Profile(r.Context(), GetSessionFromContext(r.Context()))
	if err != nil {
		h.logger().ErrorContext(r.Context(), "servicenow profile failed", "error", err)
		WriteAppError(w, err, "Failed to fetch user profile")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"profile": rec})
}
