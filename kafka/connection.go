package kafka

import (
	"crypto/tls"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/kbukum/vidpipe/security"
)

// security holds the TLS and SASL settings shared by writers and readers.
type connSecurity struct {
	tls  *tls.Config
	sasl sasl.Mechanism
}

func newSecurity(cfg *Config) (connSecurity, error) {
	var s connSecurity
	tc, err := cfg.TLS().Build()
	if err != nil {
		return s, fmt.Errorf("kafka TLS: %w", err)
	}
	s.tls = tc
	if cfg.EnableSASL {
		m, err := saslMechanism(cfg)
		if err != nil {
			return s, fmt.Errorf("kafka SASL: %w", err)
		}
		s.sasl = m
	}
	return s, nil
}

// NewTransport builds the transport used by producers.
func NewTransport(cfg *Config) (*kafkago.Transport, error) {
	sec, err := newSecurity(cfg)
	if err != nil {
		return nil, err
	}
	return &kafkago.Transport{
		DialTimeout: ParseDuration(cfg.DialTimeout),
		IdleTimeout: ParseDuration(cfg.IdleTimeout),
		MetadataTTL: ParseDuration(cfg.MetadataTTL),
		TLS:         sec.tls,
		SASL:        sec.sasl,
	}, nil
}

// NewDialer builds the dialer used by consumers and health checks.
func NewDialer(cfg *Config) (*kafkago.Dialer, error) {
	sec, err := newSecurity(cfg)
	if err != nil {
		return nil, err
	}
	return &kafkago.Dialer{
		Timeout:       ParseDuration(cfg.DialTimeout),
		DualStack:     true,
		TLS:           sec.tls,
		SASLMechanism: sec.sasl,
	}, nil
}

// TLS maps the flat tls_* keys onto the shared TLS builder.
func (c *Config) TLS() security.TLSConfig {
	return security.TLSConfig{
		Enabled:    c.EnableTLS,
		SkipVerify: c.TLSSkipVerify,
		CAFile:     c.TLSCAFile,
		CertFile:   c.TLSCertFile,
		KeyFile:    c.TLSKeyFile,
	}
}

func saslMechanism(cfg *Config) (sasl.Mechanism, error) {
	switch cfg.SASLMechanism {
	case "PLAIN":
		return plain.Mechanism{Username: cfg.Username, Password: cfg.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	}
	return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASLMechanism)
}

// Compression maps a codec name to its kafka-go value. Unknown names
// fall back to snappy.
func Compression(name string) kafkago.Compression {
	switch name {
	case "none":
		return 0
	case "gzip":
		return kafkago.Gzip
	case "lz4":
		return kafkago.Lz4
	case "zstd":
		return kafkago.Zstd
	}
	return kafkago.Snappy
}
