package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/snowdash/config"
	"github.com/target/snowdash/internal/adapters/servicenow"
	"github.com/target/snowdash/internal/adapters/snoauth"
	domainauth "github.com/target/snowdash/internal/domain/auth"
	"github.com/target/snowdash/internal/observability/statsd"
	"github.com/target/snowdash/internal/ports"
	"github.com/target/snowdash/internal/service"
)

// AuthConfig contains configuration for the auth service.
type AuthConfig struct {
	Config      *config.AppConfig
	HTTPClient  *http.Client
	Codec       ports.SessionCodec
	Revocations ports.RevocationStore
	Metrics     statsd.Sink
	Logger      *slog.Logger
	Now         func() time.Time
}

// BuildAuthService wires the credential exchanger for the configured auth mode
// into an AuthService. Only one mode is active per deployment.
func BuildAuthService(cfg AuthConfig) (*service.AuthService, error) {
	exchangers, err := buildExchangers(cfg)
	if err != nil {
		return nil, err
	}

	return service.NewAuthService(service.AuthServiceOptions{
		Exchangers: exchangers,
		Sessions: service.SessionConfig{
			Codec:       cfg.Codec,
			Revocations: cfg.Revocations,
			TTL:         cfg.Config.Session.TTL,
		},
		Observability: service.AuthObservability{
			Logger:  cfg.Logger,
			Metrics: cfg.Metrics,
			Now:     cfg.Now,
		},
	}), nil
}

func buildExchangers(cfg AuthConfig) (service.Exchangers, error) {
	app := cfg.Config
	switch app.Auth.Mode {
	case config.AuthModeOAuth:
		prov, err := snoauth.NewProvider(snoauth.ProviderConfig{
			InstanceURL:  app.ServiceNow.InstanceURL,
			ClientID:     app.Auth.OAuth.ClientID,
			ClientSecret: app.Auth.OAuth.ClientSecret,
			RedirectURL:  app.Auth.OAuth.RedirectURL,
			Scope:        app.Auth.OAuth.Scope,
			HTTPClient:   cfg.HTTPClient,
			Logger:       cfg.Logger,
		})
		if err != nil {
			return service.Exchangers{}, fmt.Errorf("create servicenow oauth provider: %w", err)
		}
		return service.Exchangers{Mode: domainauth.ModeOAuth, OAuth: prov}, nil

	case config.AuthModeBasic, "":
		ex, err := servicenow.NewBasicExchanger(servicenow.BasicExchangerConfig{
			InstanceURL: app.ServiceNow.InstanceURL,
			HTTPClient:  cfg.HTTPClient,
			Metrics:     cfg.Metrics,
			Logger:      cfg.Logger,
		})
		if err != nil {
			return service.Exchangers{}, fmt.Errorf("create basic exchanger: %w", err)
		}
		return service.Exchangers{Mode: domainauth.ModeBasic, Basic: ex}, nil

	default:
		return service.Exchangers{}, fmt.Errorf("unsupported auth mode %q", app.Auth.Mode)
	}
}
