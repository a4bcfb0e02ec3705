package config

import (
	"fmt"
	"strings"
	"time"
)

type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
	// SampleRatio is the share of root traces kept, in [0, 1]. Child spans follow their parent.
	SampleRatio float64      `koanf:"sampleratio"`
	Traces      TracesConfig `koanf:"traces"`
}

type TracesConfig struct {
	OtlpHttp OtlpHttpConfig `koanf:"otlphttp"`
}

type OtlpHttpConfig struct {
	Endpoint string        `koanf:"endpoint"`
	Insecure bool          `koanf:"insecure"`
	Timeout  time.Duration `koanf:"timeout"`
}

func (c *TelemetryConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Telemetry ---\n")
	fmt.Fprintf(&b, "  enabled: %v, sampleratio: %.2f\n", c.Enabled, c.SampleRatio)
	o := c.Traces.OtlpHttp
	fmt.Fprintf(&b, "  otlphttp: endpoint=%s insecure=%v timeout=%s\n", o.Endpoint, o.Insecure, o.Timeout)
	return b.String()
}

func (c *TelemetryConfig) Validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0, 1], got %v", c.SampleRatio)
	}
	if !c.Enabled {
		return nil
	}
	switch {
	case c.Traces.OtlpHttp.Endpoint == "":
		return fmt.Errorf("OTel endpoint is not configured")
	case c.Traces.OtlpHttp.Timeout <= 0:
		return fmt.Errorf("telemetry timeout must be greater than 0")
	}
	return nil
}
