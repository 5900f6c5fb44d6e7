package queue

import (
	"fmt"
	"time"
)

// Backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendKafka  = "kafka"
)

// Config selects the queue backend and worker pool size.
type Config struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	// Workers is the number of goroutines draining the queue. Zero
	// disables in-process workers for serve.
	Workers int `yaml:"workers" mapstructure:"workers"`
	// Buffer is the channel capacity of the memory backend.
	Buffer       int    `yaml:"buffer" mapstructure:"buffer"`
	RedisKey     string `yaml:"redis_key" mapstructure:"redis_key"`
	Topic        string `yaml:"topic" mapstructure:"topic"`
	BlockTimeout string `yaml:"block_timeout" mapstructure:"block_timeout"`
	// TaskTimeout bounds a single handler call.
	TaskTimeout string `yaml:"task_timeout" mapstructure:"task_timeout"`
}

// ApplyDefaults fills empty fields. Workers is left alone so zero can
// mean "no workers".
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.Buffer <= 0 {
		c.Buffer = 1024
	}
	if c.RedisKey == "" {
		c.RedisKey = "vidpipe:tasks"
	}
	if c.Topic == "" {
		c.Topic = "vidpipe.tasks"
	}
	if c.BlockTimeout == "" {
		c.BlockTimeout = "5s"
	}
	if c.TaskTimeout == "" {
		c.TaskTimeout = "2m"
	}
}

// Validate checks the backend and durations.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendRedis, BackendKafka:
	default:
		return fmt.Errorf("queue.backend must be one of memory, redis, kafka (got: %s)", c.Backend)
	}
	if c.Workers < 0 {
		return fmt.Errorf("queue.workers must be >= 0")
	}
	for name, v := range map[string]string{"block_timeout": c.BlockTimeout, "task_timeout": c.TaskTimeout} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("queue.%s must be a positive duration (got: %q)", name, v)
		}
	}
	return nil
}

// BlockDuration returns BlockTimeout parsed.
func (c *Config) BlockDuration() time.Duration {
	d, _ := time.ParseDuration(c.BlockTimeout)
	return d
}

// TaskDuration returns TaskTimeout parsed.
func (c *Config) TaskDuration() time.Duration {
	d, _ := time.ParseDuration(c.TaskTimeout)
	return d
}
