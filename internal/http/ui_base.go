package httpx

import (
	"context"
	"html"
	"log/slog"
	"net/http"
)

// UIHandlers serves browser-facing routes.
type UIHandlers struct {
	T       *TemplateRenderer
	Records RecordServiceInterface
	// IsDev renders template failures into the page instead of a bare 500.
	IsDev  bool
	Logger *slog.Logger
}

func (h *UIHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// PageSpec is a page's metadata plus an optional fetch that fills the template data.
// A fetch error marks the page as failed; the page still renders with the message
// the fetch attached (or a generic one).
type PageSpec struct {
	Meta  PageMeta
	Fetch func(ctx context.Context, b *TemplateDataBuilder) error
}

const genericPageError = "An unexpected error occurred. Please try again."

// Page renders spec as a full document, or as an htmx content swap when the request wants a partial.
func (h *UIHandlers) Page(w http.ResponseWriter, r *http.Request, spec PageSpec) {
	b := NewTemplateData(r, spec.Meta)
	if spec.Fetch != nil {
		if err := spec.Fetch(r.Context(), b); err != nil {
			b.markFailed(genericPageError)
		}
	}
	data := b.Build()

	var err error
	stage := "full page render"
	if WantsPartial(r) {
		stage = "partial content render"
		err = h.T.RenderSwap(w, SwapOpts{
			Title:       spec.Meta.Title,
			HeaderTitle: spec.Meta.PageTitle,
			Template:    ContentTemplateFor(spec.Meta.CurrentPage),
			Data:        data,
		})
	} else {
		err = h.T.RenderFull(w, r, data)
	}
	if err != nil {
		h.renderTemplateFailure(w, r, err, stage)
	}
}

// renderTemplateFailure logs err and answers 500; in dev mode the error is shown in the page.
func (h *UIHandlers) renderTemplateFailure(w http.ResponseWriter, r *http.Request, err error, stage string) {
	h.logger().ErrorContext(r.Context(), "template rendering failed",
		"error", err, "stage", stage, "method", r.Method, "path", r.URL.Path)

	if !h.IsDev {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`<div class="alert alert-error"><h2>Template Rendering Error</h2>` +
		`<p><strong>Stage:</strong> ` + html.EscapeString(stage) + `</p>` +
		`<p><strong>Path:</strong> ` + html.EscapeString(r.URL.Path) + `</p>` +
		`<pre>` + html.EscapeString(err.Error()) + `</pre></div>`))
}

// NotFound answers 404: an HTML page for browsers, {"error":"Not Found"} otherwise.
func (h *UIHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	if h.T == nil || !IsBrowserRequest(r) {
		WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
		return
	}

	data := NewTemplateData(r, PageMeta{Title: "Page Not Found - snowdash"}).
		With("RedirectURI", safeRedirectPath(r.URL.RequestURI(), "/")).
		Build()
	if err := h.T.Render(w, RenderOpts{Template: "not-found-page", Data: data, Status: http.StatusNotFound}); err != nil {
		http.Error(w, "not found", http.StatusNotFound)
	}
}
