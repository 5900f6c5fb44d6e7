package kafka

import (
	"fmt"
	"time"
)

// Config holds broker, security and client tuning settings.
type Config struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	GroupID string   `yaml:"group_id" mapstructure:"group_id"`

	// CallbackTopic carries completion callbacks from compute.
	CallbackTopic string `yaml:"callback_topic" mapstructure:"callback_topic"`

	EnableTLS     bool   `yaml:"enable_tls" mapstructure:"enable_tls"`
	TLSSkipVerify bool   `yaml:"tls_skip_verify" mapstructure:"tls_skip_verify"`
	TLSCAFile     string `yaml:"tls_ca_file" mapstructure:"tls_ca_file"`
	TLSCertFile   string `yaml:"tls_cert_file" mapstructure:"tls_cert_file"`
	TLSKeyFile    string `yaml:"tls_key_file" mapstructure:"tls_key_file"`

	EnableSASL    bool   `yaml:"enable_sasl" mapstructure:"enable_sasl"`
	SASLMechanism string `yaml:"sasl_mechanism" mapstructure:"sasl_mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username      string `yaml:"username" mapstructure:"username"`
	Password      string `yaml:"password" mapstructure:"password"`

	Compression  string `yaml:"compression" mapstructure:"compression"` // none, gzip, snappy, lz4, zstd
	Retries      int    `yaml:"retries" mapstructure:"retries"`
	BatchSize    int    `yaml:"batch_size" mapstructure:"batch_size"`
	BatchTimeout string `yaml:"batch_timeout" mapstructure:"batch_timeout"`
	WriteTimeout string `yaml:"write_timeout" mapstructure:"write_timeout"`
	RequiredAcks int    `yaml:"required_acks" mapstructure:"required_acks"`

	SessionTimeout    string `yaml:"session_timeout" mapstructure:"session_timeout"`
	HeartbeatInterval string `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	DialTimeout       string `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	IdleTimeout       string `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MetadataTTL       string `yaml:"metadata_ttl" mapstructure:"metadata_ttl"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.GroupID == "" {
		c.GroupID = "vidpipe"
	}
	if c.CallbackTopic == "" {
		c.CallbackTopic = "vidpipe.callbacks"
	}
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.BatchSize <= 0 {
		// Tasks are latency sensitive; do not hold them back for a batch.
		c.BatchSize = 1
	}
	if c.BatchTimeout == "" {
		c.BatchTimeout = "10ms"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "10s"
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1
	}
	if c.SessionTimeout == "" {
		c.SessionTimeout = "30s"
	}
	if c.HeartbeatInterval == "" {
		c.HeartbeatInterval = "3s"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "10s"
	}
	if c.IdleTimeout == "" {
		c.IdleTimeout = "30s"
	}
	if c.MetadataTTL == "" {
		c.MetadataTTL = "6s"
	}
	if c.EnableSASL && c.SASLMechanism == "" {
		c.SASLMechanism = "PLAIN"
	}
}

// Validate checks the settings. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	if c.GroupID == "" {
		return fmt.Errorf("kafka group_id is required")
	}
	for _, d := range []struct{ name, val string }{
		{"batch_timeout", c.BatchTimeout},
		{"write_timeout", c.WriteTimeout},
		{"session_timeout", c.SessionTimeout},
		{"heartbeat_interval", c.HeartbeatInterval},
		{"dial_timeout", c.DialTimeout},
		{"idle_timeout", c.IdleTimeout},
		{"metadata_ttl", c.MetadataTTL},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.val, err)
		}
	}
	if c.EnableSASL {
		switch c.SASLMechanism {
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return fmt.Errorf("unsupported SASL mechanism: %s", c.SASLMechanism)
		}
		if c.Username == "" {
			return fmt.Errorf("SASL username is required")
		}
	}
	switch c.Compression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		return fmt.Errorf("unsupported compression: %s", c.Compression)
	}
	if c.Retries <= 0 {
		return fmt.Errorf("retries must be > 0")
	}
	return nil
}

// ParseDuration parses s, returning zero when it is empty or malformed.
// Validate has already rejected malformed values.
func ParseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
