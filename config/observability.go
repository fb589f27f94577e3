package config

import (
	"fmt"
	"net"
	"strings"
)

// ObservabilityConfig holds the metrics settings.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig
}

func (c *ObservabilityConfig) Sanitize()      { c.Metrics.Sanitize() }
func (c *ObservabilityConfig) Validate() error { return c.Metrics.Validate() }

// ObservabilityMetricsConfig points the StatsD client at an agent. StatsdAddress is
// host:port (UDP) or unix:///path (unixgram).
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string `env:"OBSERVABILITY_METRICS_PREFIX"         envDefault:"snowdash"`
}

// Sanitize trims fields and turns metrics off when no address remains.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	c.Prefix = strings.Trim(strings.TrimSpace(c.Prefix), ".")
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
}

// Validate checks the address shape when metrics are enabled.
func (c *ObservabilityMetricsConfig) Validate() error {
	if !c.IsEnabled() {
		return nil
	}
	if path, ok := strings.CutPrefix(c.StatsdAddress, "unix://"); ok {
		if path == "" {
			return fmt.Errorf("OBSERVABILITY_METRICS_STATSD_ADDRESS %q has an empty socket path", c.StatsdAddress)
		}
		return nil
	}
	if _, _, err := net.SplitHostPort(c.StatsdAddress); err != nil {
		return fmt.Errorf("OBSERVABILITY_METRICS_STATSD_ADDRESS %q: %w", c.StatsdAddress, err)
	}
	return nil
}

// IsEnabled reports whether metrics should be emitted.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}
