// Package output turns a node's result into a time-limited download URL.
package output

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/storage"
	"github.com/kbukum/vidpipe/store"
)

// DefaultTTL is how long signed URLs stay valid when not configured.
const DefaultTTL = time.Hour

// Config controls URL signing.
type Config struct {
	URLTTL string `yaml:"url_ttl" mapstructure:"url_ttl"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.URLTTL == "" {
		c.URLTTL = DefaultTTL.String()
	}
}

// Validate checks the TTL.
func (c *Config) Validate() error {
	d, err := time.ParseDuration(c.URLTTL)
	if err != nil {
		return fmt.Errorf("output.url_ttl: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("output.url_ttl must be positive")
	}
	return nil
}

// TTL returns the parsed TTL, or DefaultTTL when unset or invalid.
func (c *Config) TTL() time.Duration {
	d, err := time.ParseDuration(c.URLTTL)
	if err != nil || d <= 0 {
		return DefaultTTL
	}
	return d
}

// URL is a signed download location.
type URL struct {
	NodeID    string    `json:"node_id"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Resolver signs node outputs. It never writes.
type Resolver struct {
	store  store.Store
	signer storage.SignedURLProvider
	ttl    time.Duration
	now    func() time.Time
}

// NewResolver creates a Resolver.
func NewResolver(s store.Store, signer storage.SignedURLProvider, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{store: s, signer: signer, ttl: ttl, now: time.Now}
}

// Key returns the storage key for n: the output's key, else an asset
// node's source.
func Key(n *pipeline.Node) (string, bool) {
	if key := pipeline.StorageKey(n.Output); key != "" {
		return key, true
	}
	if n.Type == "asset" {
		if src, ok := pipeline.AsString(n.Asset["source"]); ok && src != "" {
			return src, true
		}
	}
	return "", false
}

// Resolve signs the output of nodeID. Nodes without a key yield NO_OUTPUT.
func (r *Resolver) Resolve(ctx context.Context, nodeID string) (*URL, error) {
	n, err := r.store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	key, ok := Key(n)
	if !ok {
		return nil, errors.NoOutput(nodeID)
	}
	signed, err := r.signer.SignedURL(ctx, key, r.ttl)
	if err != nil {
		return nil, errors.ExternalServiceError("storage", err)
	}
	return &URL{NodeID: nodeID, Key: key, URL: signed, ExpiresAt: r.now().Add(r.ttl).UTC()}, nil
}
