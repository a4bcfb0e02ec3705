package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

const (
	SessionStoreMemory = "memory"
	SessionStoreFile   = "file"
	SessionStoreRedis  = "redis"
)

type Config struct {
	HTTPServer     config.HTTPConfig           `koanf:"server"`
	Log            config.LogConfig            `koanf:"log"`
	PProf          config.PProfConfig          `koanf:"pprof"`
	Telemetry      config.TelemetryConfig      `koanf:"telemetry"`
	Shutdown       config.ShutdownConfig       `koanf:"shutdown"`
	Backend        config.HTTPClientConfig     `koanf:"backend"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
	Nats           config.NATSConfig           `koanf:"nats"`
	Session        SessionConfig               `koanf:"session"`
	Notices        NoticesConfig               `koanf:"notices"`
}

// SessionConfig selects where the bearer token is persisted.
type SessionConfig struct {
	Store   string             `koanf:"store"`
	File    string             `koanf:"file"`
	Profile string             `koanf:"profile"`
	Redis   config.RedisConfig `koanf:"redis"`
}

type NoticesConfig struct {
	// Limit caps the notices kept for the /notices endpoint.
	Limit int `koanf:"limit"`
}

func (c *SessionConfig) Validate() error {
	switch c.Store {
	case SessionStoreMemory, SessionStoreFile:
		return nil
	case SessionStoreRedis:
		if c.Profile == "" {
			return fmt.Errorf("session.profile is required for the redis store")
		}
		return c.Redis.Validate()
	default:
		return fmt.Errorf("unsupported session store: %q", c.Store)
	}
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Backend.String())
	b.WriteString(c.CircuitBreaker.String())

	b.WriteString("\n--- Session ---\n")
	b.WriteString(fmt.Sprintf("  session.store: %s\n", c.Session.Store))
	b.WriteString(fmt.Sprintf("  session.file: %s\n", c.Session.File))
	b.WriteString(fmt.Sprintf("  session.profile: %s\n", c.Session.Profile))
	if c.Session.Store == SessionStoreRedis {
		b.WriteString(fmt.Sprintf("  session.redis.url: %s\n", maskURL(c.Session.Redis.URL)))
		b.WriteString(fmt.Sprintf("  session.redis.namespace: %s\n", c.Session.Redis.Namespace))
		b.WriteString(fmt.Sprintf("  session.redis.ttl: %s\n", c.Session.Redis.TTL))
	}

	b.WriteString(c.Nats.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())

	b.WriteString("\n--- Notices ---\n")
	b.WriteString(fmt.Sprintf("  notices.limit: %d\n", c.Notices.Limit))
	return b.String()
}

func maskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	// Mask the credentials in front of the host
	parts := strings.Split(url, "@")
	if len(parts) == 2 {
		return "****@" + parts[1]
	}
	return url
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.Log,
		&c.PProf,
		&c.Telemetry,
		&c.Shutdown,
		&c.Backend,
		&c.CircuitBreaker,
		&c.Nats,
		&c.Session,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if c.Notices.Limit < 0 {
		return fmt.Errorf("notices.limit must not be negative")
	}
	return nil
}

// Defaults are the lowest-priority configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"server.host":                        "localhost",
		"server.port":                        8080,
		"server.maxHeaderBytes":              1 << 20,
		"server.timeout.read":                "5s",
		"server.timeout.write":               "10s",
		"server.timeout.idle":                "60s",
		"server.timeout.readHeader":          "2s",
		"log.level":                          "info",
		"log.format":                         "json",
		"shutdown.timeout":                   "10s",
		"pprof.addr":                         "localhost:6060",
		"telemetry.sampleratio":              1.0,
		"backend.baseurl":                    "http://localhost:8000/api",
		"backend.timeout":                    "10s",
		"circuitbreaker.enabled":             true,
		"circuitbreaker.maxrequests":         1,
		"circuitbreaker.consecutivefailures": 5,
		"circuitbreaker.errorratepercent":    50,
		"circuitbreaker.opentimeout":         "30s",
		"nats.subject":                       "storefront.notices",
		"nats.timeout":                       "5s",
		"session.store":                      SessionStoreFile,
		"session.profile":                    "default",
		"session.redis.namespace":            "storefront",
		"notices.limit":                      50,
	}
}
