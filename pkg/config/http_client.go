package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type HTTPClientConfig struct {
	BaseURL string        `koanf:"baseurl"`
	Timeout time.Duration `koanf:"timeout"`
}

// String returns a string representation of the HTTP client configuration.
func (c *HTTPClientConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Backend ---\n")
	b.WriteString(fmt.Sprintf("  baseurl: %s\n", c.BaseURL))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *HTTPClientConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("backend base URL is not configured")
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("invalid backend base URL %q: %w", c.BaseURL, err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("backend timeout is not configured")
	}
	return nil
}
