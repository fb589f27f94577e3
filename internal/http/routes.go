package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	snowdash "github.com/target/snowdash"
)

const staticRoot = "frontend/static"

// RouterServices holds what the router needs. Auth and Records are required.
type RouterServices struct {
	Auth    AuthServiceInterface
	Records RecordServiceInterface
	Cookies CookieConfig
	// IsDev serves templates and static files from disk.
	IsDev  bool
	Logger *slog.Logger
}

// route is one mux registration; protected routes sit behind RequireSession.
type route struct {
	pattern   string
	handler   http.HandlerFunc
	protected bool
}

// NewRouter builds the application handler. Requests pass BrowserDetection,
// LoadSession and CSRFProtection, in that order, before reaching the mux.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	renderer, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS: templateFS(services.IsDev, logger),
		Logger:     logger,
	})
	if err != nil {
		// The JSON API and auth endpoints keep working without HTML pages.
		logger.Error("HTML pages disabled: template renderer unavailable", "error", err)
	}

	auth := &AuthHandlers{Svc: services.Auth, Cookies: services.Cookies, Renderer: renderer, Logger: services.Logger}
	api := &APIHandlers{Records: services.Records, Logger: services.Logger}

	routes := []route{
		{pattern: "GET /healthz", handler: healthHandler},
		{pattern: "HEAD /healthz", handler: healthHandler},
		{pattern: "GET /auth/signin", handler: auth.SignInPage},
		{pattern: "POST /auth/signin", handler: auth.SignIn},
		{pattern: "GET /auth/login", handler: auth.Login},
		{pattern: "GET /auth/callback", handler: auth.Callback},
		{pattern: "POST /auth/logout", handler: auth.Logout},
		{pattern: "GET /auth/status", handler: auth.Status},
		{pattern: "GET /auth/error", handler: auth.ErrorPage},
		{pattern: "GET /api/servicenow/incidents", handler: api.Incidents, protected: true},
		{pattern: "GET /api/servicenow/request-items", handler: api.RequestItems, protected: true},
		{pattern: "GET /api/servicenow/users", handler: api.Users, protected: true},
		{pattern: "GET /api/servicenow/profile", handler: api.Profile, protected: true},
	}

	var ui *UIHandlers
	if renderer != nil {
		ui = &UIHandlers{T: renderer, Records: services.Records, IsDev: services.IsDev, Logger: services.Logger}
		routes = append(routes,
			route{pattern: "GET /{$}", handler: ui.Index, protected: true},
			route{pattern: "GET /incidents", handler: ui.Incidents, protected: true},
			route{pattern: "GET /ritms", handler: ui.RequestItems, protected: true},
			route{pattern: "GET /profile", handler: ui.Profile, protected: true},
		)
	}

	mux := http.NewServeMux()
	requireSession := RequireSession()
	for _, rt := range routes {
		var h http.Handler = rt.handler
		if rt.protected {
			h = requireSession(h)
		}
		mux.Handle(rt.pattern, h)
	}
	mux.Handle("GET /static/", staticHandler(services.IsDev, logger))

	var handler http.Handler = notFoundFallback(mux, ui)
	handler = CSRFProtection(CSRFConfig{CookieDomain: services.Cookies.Domain})(handler)
	handler = LoadSession(SessionMiddlewareConfig{Auth: services.Auth, Cookies: services.Cookies, Logger: logger})(handler)
	return BrowserDetection()(handler)
}

// templateFS reads templates from disk in dev mode and from the embedded FS otherwise.
func templateFS(isDev bool, logger *slog.Logger) fs.FS {
	if isDev {
		return os.DirFS(TemplatePathFromRoot)
	}
	sub, err := fs.Sub(snowdash.TemplateFS, TemplatePathFromRoot)
	if err != nil {
		logger.Warn("embedded templates unavailable, reading from disk", "error", err)
		return os.DirFS(TemplatePathFromRoot)
	}
	return sub
}

// staticHandler serves /static/*. Embedded assets are cacheable for an hour; disk
// assets in dev mode are never cached.
func staticHandler(isDev bool, logger *slog.Logger) http.Handler {
	files := http.FileSystem(http.Dir(staticRoot))
	cache := "no-cache, no-store, must-revalidate"
	if !isDev {
		if sub, err := fs.Sub(snowdash.StaticFS, staticRoot); err != nil {
			logger.Warn("embedded static assets unavailable, reading from disk", "error", err)
		} else {
			files = http.FS(sub)
			cache = "public, max-age=3600"
		}
	}

	fileServer := http.StripPrefix("/static/", http.FileServer(files))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", cache)
		fileServer.ServeHTTP(w, r)
	})
}

// notFoundFallback replaces the mux's plain-text 404 for unmatched paths with the
// HTML page or JSON error. Method mismatches keep the mux's 405 and Allow header,
// and handlers that answer 404 themselves are left alone.
func notFoundFallback(mux *http.ServeMux, ui *UIHandlers) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := mux.Handler(r); pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}

		mux.ServeHTTP(&notFoundInterceptor{ResponseWriter: w, onNotFound: func() {
			if ui != nil {
				ui.NotFound(w, r)
				return
			}
			WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
		}}, r)
	})
}

// notFoundInterceptor swallows a 404 written by the mux and runs onNotFound instead.
// Any other status passes straight through.
type notFoundInterceptor struct {
	http.ResponseWriter
	onNotFound  func()
	intercepted bool
}

func (w *notFoundInterceptor) WriteHeader(status int) {
	if status == http.StatusNotFound {
		w.intercepted = true
		// The mux already set text/plain for its own body.
		w.Header().Del("Content-Type")
		w.onNotFound()
		return
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *notFoundInterceptor) Write(b []byte) (int, error) {
	if w.intercepted {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}
