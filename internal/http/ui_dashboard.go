package httpx

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/target/snowdash/internal/errors"
)

// dashboardTab is one tab of the dashboard.
type dashboardTab struct {
	Key    string
	Label  string
	Href   string
	Active bool
}

// tabSource binds a tab to its list call, card kind and failure copy.
type tabSource struct {
	Label    string
	Kind     string
	List     listFunc
	Fallback string
}

func (h *UIHandlers) tabSources() map[string]tabSource {
	return map[string]tabSource{
		TabIncidents:    {Label: "Incidents", Kind: "incident", List: h.Records.ListIncidents, Fallback: "Failed to fetch incidents"},
		TabRequestItems: {Label: "Request Items", Kind: "ritm", List: h.Records.ListRequestItems, Fallback: "Failed to fetch request items"},
		TabUsers:        {Label: "Users", Kind: "user", List: h.Records.ListUsers, Fallback: "Failed to fetch users"},
	}
}

var tabOrder = []string{TabIncidents, TabRequestItems, TabUsers}

// Index serves the dashboard with incident, request item and user tabs.
// GET /?tab=incidents|request-items|users&limit=&offset=&query=.
func (h *UIHandlers) Index(w http.ResponseWriter, r *http.Request) {
	sources := h.tabSources()
	active := r.URL.Query().Get("tab")
	if _, ok := sources[active]; !ok {
		active = TabIncidents
	}

	tabs := make([]dashboardTab, 0, len(tabOrder))
	for _, key := range tabOrder {
		tabs = append(tabs, dashboardTab{
			Key:    key,
			Label:  sources[key].Label,
			Href:   "/?tab=" + key,
			Active: key == active,
		})
	}

	src := sources[active]
	h.Page(w, r, PageSpec{
		Meta: PageMeta{Title: "Dashboard - snowdash", PageTitle: "ServiceNow Dashboard", CurrentPage: PageDashboard},
		Fetch: func(ctx context.Context, b *TemplateDataBuilder) error {
			b.With("Tabs", tabs).With("ActiveTab", active).With("ListKind", src.Kind)
			return h.fetchList(ctx, fetchListParams{R: r, B: b, Source: src, BasePath: "/"})
		},
	})
}

// Incidents serves the incident card list.
// GET /incidents.
func (h *UIHandlers) Incidents(w http.ResponseWriter, r *http.Request) {
	src := h.tabSources()[TabIncidents]
	h.Page(w, r, PageSpec{
		Meta: PageMeta{Title: "Incidents - snowdash", PageTitle: "Incidents", CurrentPage: PageIncidents},
		Fetch: func(ctx context.Context, b *TemplateDataBuilder) error {
			b.With("ListKind", src.Kind)
			return h.fetchList(ctx, fetchListParams{R: r, B: b, Source: src, BasePath: "/incidents"})
		},
	})
}

// RequestItems serves the RITM card list. It is the post-login landing page.
// GET /ritms.
func (h *UIHandlers) RequestItems(w http.ResponseWriter, r *http.Request) {
	src := h.tabSources()[TabRequestItems]
	h.Page(w, r, PageSpec{
		Meta: PageMeta{Title: "Request Items - snowdash", PageTitle: "Request Items", CurrentPage: PageRequestItems},
		Fetch: func(ctx context.Context, b *TemplateDataBuilder) error {
			b.With("ListKind", src.Kind)
			return h.fetchList(ctx, fetchListParams{R: r, B: b, Source: src, BasePath: "/ritms"})
		},
	})
}

// Profile serves the signed-in user's card.
// GET /profile.
func (h *UIHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	h.Page(w, r, PageSpec{
		Meta: PageMeta{Title: "Profile - snowdash", PageTitle: "My Profile", CurrentPage: PageProfile},
		Fetch: func(ctx context.Context, b *TemplateDataBuilder) error {
			rec, err := h.Records.Profile(ctx, GetSessionFromContext(ctx))
			if err != nil {
				h.logger().ErrorContext(ctx, "profile fetch failed", "error", err)
				b.WithError(userMessage(err, "Failed to fetch user profile"))
				return err
			}
			b.With("Profile", rec)
			return nil
		},
	})
}

// fetchListParams groups inputs for fetchList.
type fetchListParams struct {
	R        *http.Request
	B        *TemplateDataBuilder
	Source   tabSource
	BasePath string
}

func (h *UIHandlers) fetchList(ctx context.Context, p fetchListParams) error {
	params, err := parseListParams(p.R)
	if err != nil {
		p.B.WithError(userMessage(err, p.Source.Fallback))
		return err
	}

	rows, err := p.Source.List(ctx, GetSessionFromContext(ctx), params)
	if err != nil {
		h.logger().ErrorContext(ctx, "record list failed", "kind", p.Source.Kind, "error", err)
		p.B.WithError(userMessage(err, p.Source.Fallback))
		return err
	}

	p.B.With("Records", rows).
		With("Query", params.Query).
		WithPagination(p.BasePath, pageWindow{Limit: params.EffectiveLimit(), Offset: params.Offset, Count: len(rows)})
	return nil
}

// userMessage picks the copy shown in a page's error state.
func userMessage(err error, fallback string) string {
	switch {
	case apperrors.IsValidation(err):
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Message != "" {
			return appErr.Message
		}
	case apperrors.IsTimeout(err):
		return "ServiceNow did not respond in time"
	}
	return fallback
}

