package bootstrap

import (
	"log/slog"

	"github.com/target/snowdash/config"
	"github.com/target/snowdash/internal/observability/statsd"
)

// BuildMetrics returns a StatsD client. A disabled config yields a client whose
// methods are no-ops, so callers never need a nil check.
func BuildMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) *statsd.Client {
	client, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.IsEnabled(),
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Warn("statsd unavailable; metrics disabled", "error", err)
		client, _ = statsd.NewClient(statsd.Config{Logger: logger})
		return client
	}
	if client.Enabled() {
		logger.Info("metrics enabled", "statsd_address", cfg.StatsdAddress)
	}
	return client
}
