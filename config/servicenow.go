package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const defaultServiceNowTimeout = 30 * time.Second

// ServiceNowConfig points the dashboard at one ServiceNow instance.
type ServiceNowConfig struct {
	// InstanceURL is the instance base URL, e.g. https://dev12345.service-now.com.
	InstanceURL string `env:"INSTANCE_URL"`

	// Timeout bounds every outbound call, including OAuth token requests.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Sanitize trims the instance URL and restores the default timeout.
func (c *ServiceNowConfig) Sanitize() {
	c.InstanceURL = strings.TrimRight(strings.TrimSpace(c.InstanceURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultServiceNowTimeout
	}
}

// Validate requires an absolute http(s) instance URL.
func (c *ServiceNowConfig) Validate() error {
	if c.InstanceURL == "" {
		return errors.New("SERVICENOW_INSTANCE_URL is required")
	}
	u, err := url.Parse(c.InstanceURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("SERVICENOW_INSTANCE_URL must be an absolute http(s) URL, got %q", c.InstanceURL)
	}
	return nil
}
