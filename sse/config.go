package sse

import (
	"fmt"
	"time"
)

// Config tunes the event stream.
type Config struct {
	// KeepAlive is the interval between comment frames on idle streams.
	KeepAlive string `yaml:"keep_alive" mapstructure:"keep_alive"`
	// ClientBuffer is how many events a slow client, or the Redis
	// publisher, may fall behind before events are dropped.
	ClientBuffer int `yaml:"client_buffer" mapstructure:"client_buffer"`
	// Channel is the Redis pub/sub channel used when Redis is enabled.
	Channel string `yaml:"channel" mapstructure:"channel"`
}

// ApplyDefaults fills empty fields.
func (c *Config) ApplyDefaults() {
	if c.KeepAlive == "" {
		c.KeepAlive = "30s"
	}
	if c.ClientBuffer <= 0 {
		c.ClientBuffer = 64
	}
	if c.Channel == "" {
		c.Channel = "vidpipe:events"
	}
}

// Validate checks the keep-alive interval.
func (c *Config) Validate() error {
	if d, err := time.ParseDuration(c.KeepAlive); err != nil || d <= 0 {
		return fmt.Errorf("events.keep_alive must be a positive duration (got: %q)", c.KeepAlive)
	}
	return nil
}

// KeepAliveDuration returns KeepAlive parsed.
func (c *Config) KeepAliveDuration() time.Duration {
	d, _ := time.ParseDuration(c.KeepAlive)
	return d
}
