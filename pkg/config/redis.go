package config

import (
	"fmt"
	"strings"
	"time"
)

type RedisConfig struct {
	URL       string        `koanf:"url"`
	Namespace string        `koanf:"namespace"`
	TTL       time.Duration `koanf:"ttl"`
}

// String returns a string representation of the Redis configuration.
func (c *RedisConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Redis ---\n")
	b.WriteString(fmt.Sprintf("  url: %s\n", c.URL))
	b.WriteString(fmt.Sprintf("  namespace: %s\n", c.Namespace))
	b.WriteString(fmt.Sprintf("  ttl: %s\n", c.TTL))
	return b.String()
}

func (c *RedisConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("redis URL is not configured")
	}
	if c.TTL < 0 {
		return fmt.Errorf("redis ttl must not be negative")
	}
	return nil
}
