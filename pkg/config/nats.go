package config

import (
	"fmt"
	"strings"
	"time"
)

// NATSConfig configures the optional notice publisher. Notices go to Subject on JetStream.
type NATSConfig struct {
	Enabled bool          `koanf:"enabled"`
	Url     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
	Subject string        `koanf:"subject"`
}

func (c *NATSConfig) String() string {
	return fmt.Sprintf("\n--- NATS ---\n  enabled: %v\n  url: %s\n  timeout: %s\n  subject: %s\n",
		c.Enabled, c.Url, c.Timeout, c.Subject)
}

func (c *NATSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Url == "" {
		return fmt.Errorf("NATS URL is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats dial timeout is not configured")
	}
	// publishing needs a concrete subject
	if c.Subject == "" || strings.ContainsAny(c.Subject, "*> \t") {
		return fmt.Errorf("invalid NATS subject %q", c.Subject)
	}
	return nil
}
