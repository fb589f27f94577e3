package httpx

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/target/snowdash/internal/domain/record"
	"github.com/target/snowdash/internal/http/ui/viewmodel"
	"github.com/target/snowdash/internal/present"
)

// PageMeta contains metadata for page rendering.
type PageMeta struct {
	Title       string
	PageTitle   string
	CurrentPage string
}

// buildLayout constructs shared layout metadata from the request/session context.
func buildLayout(r *http.Request, meta PageMeta) viewmodel.Layout {
	layout := viewmodel.Layout{
		Title:       meta.Title,
		PageTitle:   meta.PageTitle,
		CurrentPage: meta.CurrentPage,
		CSRFToken:   GetCSRFToken(r),
	}

	if sess, ok := GetUserSessionFromContext(r.Context()); ok && sess.HasCredential() {
		id := sess.Identity
		layout.IsAuthenticated = true
		layout.AuthMode = string(sess.Credential.Kind)
		layout.User = &viewmodel.User{
			DisplayName: id.DisplayName,
			Username:    id.Username,
			Email:       id.Email,
			Initials:    identityInitials(id.DisplayName, id.Username),
		}
	}

	return layout
}

// identityInitials derives avatar initials for the header, which has no sys_user row at hand.
func identityInitials(displayName, username string) string {
	parts := strings.Fields(displayName)
	rec := record.Record{"user_name": record.String(username)}
	if len(parts) > 0 {
		rec["first_name"] = record.String(parts[0])
	}
	if len(parts) > 1 {
		rec["last_name"] = record.String(parts[len(parts)-1])
	}
	return present.Initials(rec)
}

func basePageData(r *http.Request, meta PageMeta) map[string]any {
	layout := buildLayout(r, meta)
	data := map[string]any{
		"Title":           layout.Title,
		"PageTitle":       layout.PageTitle,
		"CurrentPage":     layout.CurrentPage,
		"IsAuthenticated": layout.IsAuthenticated,
		"AuthMode":        layout.AuthMode,
	}

	if layout.CSRFToken != "" {
		data["CSRFToken"] = layout.CSRFToken
	}
	if layout.User != nil {
		data["User"] = layout.User
	}

	return data
}

// TemplateDataBuilder provides a fluent API for building template data maps.
type TemplateDataBuilder struct {
	data map[string]any
	r    *http.Request
}

// NewTemplateData creates a new TemplateDataBuilder initialized with basePageData.
func NewTemplateData(r *http.Request, meta PageMeta) *TemplateDataBuilder {
	return &TemplateDataBuilder{
		data: basePageData(r, meta),
		r:    r,
	}
}

// pageWindow is the limit/offset window of a rendered list and its row count.
type pageWindow struct {
	Limit  int
	Offset int
	Count  int
}

// WithPagination adds offset pagination and builds PrevURL/NextURL preserving other params.
func (b *TemplateDataBuilder) WithPagination(basePath string, win pageWindow) *TemplateDataBuilder {
	p := viewmodel.Pagination{
		Limit:   win.Limit,
		Offset:  win.Offset,
		HasPrev: win.Offset > 0,
		HasNext: win.Limit > 0 && win.Count >= win.Limit,
	}
	if win.Count > 0 {
		p.StartIndex = win.Offset + 1
		p.EndIndex = win.Offset + win.Count
	}
	if p.HasPrev {
		p.PrevURL = buildOffsetURL(basePath, b.r.URL.Query(), pageWindow{Limit: win.Limit, Offset: max(win.Offset-win.Limit, 0)})
	}
	if p.HasNext {
		p.NextURL = buildOffsetURL(basePath, b.r.URL.Query(), pageWindow{Limit: win.Limit, Offset: win.Offset + win.Limit})
	}
	b.data["Pagination"] = p
	return b
}

// WithError marks the page failed with msg as the user-facing message.
func (b *TemplateDataBuilder) WithError(msg string) *TemplateDataBuilder {
	b.data["Error"] = true
	b.data["ErrorMessage"] = msg
	return b
}

// markFailed flags the page as failed, keeping any message already attached.
func (b *TemplateDataBuilder) markFailed(fallback string) {
	if _, ok := b.data["ErrorMessage"]; ok {
		b.data["Error"] = true
		return
	}
	b.WithError(fallback)
}

// With adds a custom field to the template data.
func (b *TemplateDataBuilder) With(key string, value any) *TemplateDataBuilder {
	b.data[key] = value
	return b
}

// Build returns the final template data map.
func (b *TemplateDataBuilder) Build() map[string]any {
	return b.data
}

// buildOffsetURL returns basePath with limit and offset set. Other params survive
// except htmx bookkeeping (hx-*, hx_*) and whitespace-only values.
func buildOffsetURL(basePath string, q url.Values, win pageWindow) string {
	out := url.Values{}
	for k, vals := range q {
		if strings.HasPrefix(k, "hx-") || strings.HasPrefix(k, "hx_") || k == "limit" || k == "offset" {
			continue
		}
		for _, v := range vals {
			if strings.TrimSpace(v) != "" {
				out.Add(k, v)
			}
		}
	}
	out.Set("limit", strconv.Itoa(win.Limit))
	if win.Offset > 0 {
		out.Set("offset", strconv.Itoa(win.Offset))
	}
	return basePath + "?" + out.Encode()
}
