package httpx

import (
	"bytes"
	"errors"
	"html"
	"html/template"
	"io/fs"
	"log/slog"
	"maps"
	"net/http"

	corefuncs "github.com/target/snowdash/internal/http/templates/core"
	recordfuncs "github.com/target/snowdash/internal/http/templates/records"
)

// templatePatterns are parsed, in order, from the template filesystem.
var templatePatterns = []string{"*.tmpl", "pages/*.tmpl", "partials/*.tmpl"}

// TemplateRenderer renders HTML templates for UI responses.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// TemplateRendererConfig configures NewTemplateRenderer. TemplateFS is required.
type TemplateRendererConfig struct {
	TemplateFS fs.FS
	Logger     *slog.Logger
}

// NewTemplateRenderer parses every template up front so a broken template fails startup.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &TemplateRenderer{logger: logger}
	t, err := template.New("root").Funcs(r.funcs()).ParseFS(cfg.TemplateFS, templatePatterns...)
	if err != nil {
		logger.Error("template parsing failed", "error", err)
		return nil, err
	}
	r.t = t
	return r, nil
}

// funcs closes over r so renderSection can reach the parsed set once it exists.
func (r *TemplateRenderer) funcs() template.FuncMap {
	fm := template.FuncMap{}
	maps.Copy(fm, corefuncs.Funcs(corefuncs.Deps{Template: &r.t, ContentTemplateFor: ContentTemplateFor}))
	maps.Copy(fm, recordfuncs.Funcs())
	return fm
}

// RenderOpts selects a template, its data and the response status (200 when zero).
type RenderOpts struct {
	Template string
	Data     any
	Status   int
}

// RenderFull renders the layout template, which embeds the page content.
func (r *TemplateRenderer) RenderFull(w http.ResponseWriter, _ *http.Request, data any) error {
	return r.Render(w, RenderOpts{Template: "layout", Data: data})
}

// Render executes a named template and writes it with the given status.
// Nothing is written when execution fails.
func (r *TemplateRenderer) Render(w http.ResponseWriter, opts RenderOpts) error {
	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, opts.Template, opts.Data); err != nil {
		r.logger.Error("template execution failed", "template", opts.Template, "error", err)
		return err
	}
	return r.write(w, opts.Status, opts.Template, &buf)
}

// SwapOpts describes an htmx content swap: the document title, the out-of-band
// header title and the content template.
type SwapOpts struct {
	Title       string
	HeaderTitle string
	Template    string
	Data        any
}

// RenderSwap writes the content template preceded by a <title> (htmx updates
// document.title from it) and an out-of-band replacement for #header-title.
func (r *TemplateRenderer) RenderSwap(w http.ResponseWriter, opts SwapOpts) error {
	var buf bytes.Buffer
	buf.WriteString("<title>" + html.EscapeString(opts.Title) + "</title>")
	buf.WriteString(`<h1 id="header-title" class="header-title" hx-swap-oob="outerHTML">` +
		html.EscapeString(opts.HeaderTitle) + "</h1>")
	if err := r.t.ExecuteTemplate(&buf, opts.Template, opts.Data); err != nil {
		r.logger.Error("template execution failed", "template", opts.Template, "error", err)
		return err
	}
	return r.write(w, http.StatusOK, opts.Template, &buf)
}

func (r *TemplateRenderer) write(w http.ResponseWriter, status int, name string, buf *bytes.Buffer) error {
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Warn("writing rendered template failed", "template", name, "error", err)
		return err
	}
	return nil
}
