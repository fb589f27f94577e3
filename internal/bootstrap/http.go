package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/snowdash/config"
	httpx "github.com/target/snowdash/internal/http"
)

// shutdownTimeout bounds how long in-flight requests may take after a shutdown signal.
const shutdownTimeout = 15 * time.Second

// HTTPHandlerConfig contains configuration for the HTTP handler chain.
type HTTPHandlerConfig struct {
	Config  *config.AppConfig
	Auth    httpx.AuthServiceInterface
	Records httpx.RecordServiceInterface
	Logger  *slog.Logger
}

// BuildHTTPHandler builds the router and wraps it with the outer middleware.
// Order: Recover -> Logging -> SecurityHeaders -> Compression -> Router.
func BuildHTTPHandler(cfg HTTPHandlerConfig) http.Handler {
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := httpx.NewRouter(httpx.RouterServices{
		Auth:    cfg.Auth,
		Records: cfg.Records,
		Cookies: httpx.CookieConfig{
			SessionName: appCfg.Session.CookieName,
			Domain:      appCfg.HTTP.CookieDomain,
		},
		IsDev:  appCfg.IsDev,
		Logger: logger,
	})

	// Compression sits innermost so logging captures compressed sizes.
	h := router
	if appCfg.HTTP.CompressionEnabled {
		logger.Info("HTTP compression enabled", "level", appCfg.HTTP.CompressionLevel)
		h = httpx.Compression(httpx.CompressionConfig{Level: appCfg.HTTP.CompressionLevel})(h)
	}

	h = httpx.SecurityHeaders()(h)
	h = httpx.Logging(logger)(h)
	h = httpx.Recover(logger)(h)

	return h
}

// NewHTTPServer returns a server with the standard timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ServeHTTP runs server on ln until ctx is cancelled, then shuts it down gracefully.
// A listener error ends both goroutines.
func ServeHTTP(ctx context.Context, server *http.Server, ln net.Listener, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("HTTP server stopped")
		return nil
	})

	return g.Wait()
}
