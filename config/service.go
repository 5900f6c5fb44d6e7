package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/vidpipe/logger"
)

var environments = []string{"development", "staging", "production"}

// ServiceConfig holds the fields every vidpipe process needs. It is
// embedded with mapstructure:",squash" so its keys sit at the top level.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults fills empty fields.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "vidpipe"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the service fields.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	if !slices.Contains(environments, c.Environment) {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", environments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// GetServiceConfig returns c. Structs embedding ServiceConfig promote it.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig { return c }
