package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/target/snowdash/config"
	"github.com/target/snowdash/internal/adapters/servicenow"
	"github.com/target/snowdash/internal/observability/statsd"
	"github.com/target/snowdash/internal/service"
)

// App holds the wired application: the HTTP handler plus the resources it owns.
type App struct {
	Handler     http.Handler
	Auth        *service.AuthService
	Records     *service.RecordService
	revocations RevocationBackend
	metrics     *statsd.Client
	logger      *slog.Logger
}

// AppDeps contains the inputs to NewApp. Now and HTTPClient are optional overrides.
type AppDeps struct {
	Config     *config.AppConfig
	Logger     *slog.Logger
	HTTPClient *http.Client
	Now        func() time.Time
}

// NewApp wires configuration into services and the HTTP handler chain.
func NewApp(ctx context.Context, deps AppDeps) (*App, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, errors.New("app config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hc := deps.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.ServiceNow.Timeout}
	}

	metrics := BuildMetrics(cfg.Observability.Metrics, logger)

	codec, err := BuildSessionCodec(SessionCodecConfig{
		Session: cfg.Session,
		IsDev:   cfg.IsDev,
		Logger:  logger,
		Now:     deps.Now,
	})
	if err != nil {
		_ = metrics.Close()
		return nil, err
	}

	revocations, err := BuildRevocationStore(ctx, cfg.Redis, logger)
	if err != nil {
		_ = metrics.Close()
		return nil, err
	}

	authSvc, err := BuildAuthService(AuthConfig{
		Config:      cfg,
		HTTPClient:  hc,
		Codec:       codec,
		Revocations: revocations.Store,
		Metrics:     metrics,
		Logger:      logger,
		Now:         deps.Now,
	})
	if err != nil {
		_ = revocations.Close()
		_ = metrics.Close()
		return nil, err
	}

	records := service.NewRecordService(service.RecordServiceOptions{
		Clients: &servicenow.Factory{
			InstanceURL: cfg.ServiceNow.InstanceURL,
			HTTPClient:  hc,
			Metrics:     metrics,
		},
		Logger: logger,
	})

	handler := BuildHTTPHandler(HTTPHandlerConfig{
		Config:  cfg,
		Auth:    authSvc,
		Records: records,
		Logger:  logger,
	})

	return &App{
		Handler:     handler,
		Auth:        authSvc,
		Records:     records,
		revocations: revocations,
		metrics:     metrics,
		logger:      logger,
	}, nil
}

// Close releases Redis and StatsD connections.
func (a *App) Close() {
	if err := a.revocations.Close(); err != nil {
		a.logger.Error("close redis failed", "error", err)
	}
	if err := a.metrics.Close(); err != nil {
		a.logger.Error("close statsd failed", "error", err)
	}
}

// Run wires the application and serves HTTP until ctx is cancelled.
func Run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	app, err := NewApp(ctx, AppDeps{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer app.Close()

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.HTTP.Addr, err)
	}

	return ServeHTTP(ctx, NewHTTPServer(cfg.HTTP.Addr, app.Handler), ln, app.logger)
}
