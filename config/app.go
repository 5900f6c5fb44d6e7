package config

import (
	"fmt"

	"github.com/kbukum/vidpipe/compute"
	"github.com/kbukum/vidpipe/database"
	"github.com/kbukum/vidpipe/kafka"
	"github.com/kbukum/vidpipe/observability"
	"github.com/kbukum/vidpipe/output"
	"github.com/kbukum/vidpipe/queue"
	"github.com/kbukum/vidpipe/redis"
	"github.com/kbukum/vidpipe/server"
	"github.com/kbukum/vidpipe/sse"
	"github.com/kbukum/vidpipe/storage"
)

// AppConfig is the full vidpipe configuration.
type AppConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Kafka         kafka.Config         `yaml:"kafka" mapstructure:"kafka"`
	Storage       storage.Config       `yaml:"storage" mapstructure:"storage"`
	Compute       compute.Config       `yaml:"compute" mapstructure:"compute"`
	Queue         queue.Config         `yaml:"queue" mapstructure:"queue"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Output        output.Config        `yaml:"output" mapstructure:"output"`
	Events        sse.Config           `yaml:"events" mapstructure:"events"`
}

// ApplyDefaults fills every section.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Compute.ApplyDefaults()
	c.Queue.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Output.ApplyDefaults()
	c.Events.ApplyDefaults()
	if c.Queue.Backend == queue.BackendRedis {
		c.Redis.Enabled = true
	}
	if c.Queue.Backend == queue.BackendKafka {
		c.Kafka.Enabled = true
	}
}

// Validate checks each section. Redis and Kafka are only checked when enabled.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	sections := []struct {
		name string
		v    interface{ Validate() error }
		on   bool
	}{
		{"database", &c.Database, true},
		{"server", &c.Server, true},
		{"redis", &c.Redis, c.Redis.Enabled},
		{"kafka", &c.Kafka, c.Kafka.Enabled},
		{"storage", &c.Storage, true},
		{"compute", &c.Compute, true},
		{"queue", &c.Queue, true},
		{"observability", &c.Observability, true},
		{"output", &c.Output, true},
		{"events", &c.Events, true},
	}
	for _, s := range sections {
		if !s.on {
			continue
		}
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("config.%s: %w", s.name, err)
		}
	}
	return nil
}
