package compute

import (
	"fmt"
	"time"

	"github.com/kbukum/vidpipe/resilience"
)

// Backends.
const (
	BackendHTTP   = "http"
	BackendLambda = "lambda"
)

// Config selects the compute backend and maps executor types to functions.
type Config struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	// CallbackURL is sent with every invocation so compute knows where to
	// report completion.
	CallbackURL string `yaml:"callback_url" mapstructure:"callback_url"`
	// Functions maps an executor type to the function name to invoke.
	Functions map[string]string `yaml:"functions" mapstructure:"functions"`

	// HTTP backend. Function names are appended to BaseURL.
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	BearerToken string `yaml:"bearer_token" mapstructure:"bearer_token"`
	Timeout     string `yaml:"timeout" mapstructure:"timeout"`

	// Lambda backend.
	Region    string `yaml:"region" mapstructure:"region"`
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`

	// BreakerFailures consecutive backend failures open the circuit for
	// BreakerCooldown. Zero disables the breaker.
	BreakerFailures int    `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerCooldown string `yaml:"breaker_cooldown" mapstructure:"breaker_cooldown"`
}

// DefaultFunctions names each compute function after its executor type.
func DefaultFunctions() map[string]string {
	return map[string]string{
		"merge-videos":          "merge-videos",
		"generate-voiceover":    "generate-voiceover",
		"generate-talking-head": "generate-talking-head",
		"mix-audio":             "mix-audio",
		"compose-video":         "compose-video",
	}
}

// ApplyDefaults fills zero-valued fields. Configured functions override
// the defaults key by key.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendHTTP
	}
	if c.CallbackURL == "" {
		c.CallbackURL = "http://localhost:8080/api/v1/callbacks"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.BreakerCooldown == "" {
		c.BreakerCooldown = "30s"
	}
	fns := DefaultFunctions()
	for k, v := range c.Functions {
		fns[k] = v
	}
	c.Functions = fns
}

// Validate checks the settings for the selected backend.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendHTTP:
		if c.BaseURL == "" {
			return fmt.Errorf("compute.base_url is required for the http backend")
		}
	case BackendLambda:
		if c.Region == "" {
			return fmt.Errorf("compute.region is required for the lambda backend")
		}
	default:
		return fmt.Errorf("compute.backend must be one of http, lambda (got: %s)", c.Backend)
	}
	if c.CallbackURL == "" {
		return fmt.Errorf("compute.callback_url is required")
	}
	for name, v := range map[string]string{"timeout": c.Timeout, "breaker_cooldown": c.BreakerCooldown} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("compute.%s must be a positive duration (got: %q)", name, v)
		}
	}
	for typ, fn := range c.Functions {
		if fn == "" {
			return fmt.Errorf("compute.functions.%s is empty", typ)
		}
	}
	return nil
}

// Function returns the function configured for an executor type.
func (c *Config) Function(executorType string) (string, bool) {
	fn, ok := c.Functions[executorType]
	return fn, ok
}

// TimeoutDuration returns Timeout parsed.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// CooldownDuration returns BreakerCooldown parsed.
func (c *Config) CooldownDuration() time.Duration {
	d, _ := time.ParseDuration(c.BreakerCooldown)
	return d
}

// Breaker returns the circuit breaker settings for submissions, or nil
// when BreakerFailures is zero.
func (c *Config) Breaker() *resilience.CircuitBreakerConfig {
	if c.BreakerFailures <= 0 {
		return nil
	}
	bc := resilience.DefaultCircuitBreakerConfig("compute")
	bc.MaxFailures = c.BreakerFailures
	if d := c.CooldownDuration(); d > 0 {
		bc.Cooldown = d
	}
	return &bc
}
