package observability

import (
	"fmt"
	"time"
)

// Config selects which OTLP exporters run.
type Config struct {
	Tracing    bool    `yaml:"tracing" mapstructure:"tracing"`
	Metrics    bool    `yaml:"metrics" mapstructure:"metrics"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
	Interval   string  `yaml:"interval" mapstructure:"interval"`
}

// ApplyDefaults fills empty fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
		c.Insecure = true
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.Interval == "" {
		c.Interval = "15s"
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be within [0, 1] (got: %v)", c.SampleRate)
	}
	if _, err := time.ParseDuration(c.Interval); err != nil {
		return fmt.Errorf("observability.interval: %w", err)
	}
	return nil
}

// ExportInterval returns the parsed metric export interval.
func (c *Config) ExportInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}
