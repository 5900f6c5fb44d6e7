package storage

import (
	"errors"
	"fmt"
)

// Providers.
const (
	ProviderS3    = "s3"
	ProviderLocal = "local"
)

const DefaultRegion = "us-east-1"

// Config selects and configures the signing backend.
type Config struct {
	Provider string `yaml:"provider" mapstructure:"provider"`

	// S3 settings.
	Bucket         string `yaml:"bucket" mapstructure:"bucket"`
	Region         string `yaml:"region" mapstructure:"region"`
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey      string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style" mapstructure:"force_path_style"`

	// Local settings. BaseURL is where a file server exposes BasePath;
	// SigningKey keys the URL signature.
	BasePath   string `yaml:"base_path" mapstructure:"base_path"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	SigningKey string `yaml:"signing_key" mapstructure:"signing_key"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderLocal
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.BasePath == "" {
		c.BasePath = "./data/media"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080/media"
	}
}

// Validate checks the settings for the selected provider.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderS3:
		var errs []error
		if c.Bucket == "" {
			errs = append(errs, errors.New("bucket is required"))
		}
		if c.Region == "" {
			errs = append(errs, errors.New("region is required"))
		}
		if (c.AccessKey == "") != (c.SecretKey == "") {
			errs = append(errs, errors.New("access_key and secret_key must be set together"))
		}
		if len(errs) > 0 {
			return fmt.Errorf("storage: invalid s3 config: %w", errors.Join(errs...))
		}
	case ProviderLocal:
		if c.BaseURL == "" {
			return errors.New("storage: base_url is required for local provider")
		}
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
	return nil
}
