package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/vidpipe/component"
	"github.com/kbukum/vidpipe/logger"
)

// Component builds the signer on Start.
type Component struct {
	cfg    Config
	log    *logger.Logger
	signer SignedURLProvider
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a storage component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("storage")}
}

// Signer returns the signer, or nil before Start. The returned value
// defers to the component so it may be captured before Start.
func (c *Component) Signer() SignedURLProvider { return lazySigner{c} }

type lazySigner struct{ c *Component }

func (l lazySigner) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.c.signer == nil {
		return "", fmt.Errorf("storage: not started")
	}
	return l.c.signer.SignedURL(ctx, key, ttl)
}

// Provider returns the started provider, or nil before Start.
func (c *Component) Provider() SignedURLProvider { return c.signer }

func (c *Component) Name() string { return "storage" }

func (c *Component) Start(ctx context.Context) error {
	s, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.signer = s
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	c.signer = nil
	return nil
}

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch s := c.signer.(type) {
	case nil:
		h.Status, h.Message = component.StatusUnhealthy, "storage not initialized"
	case Checker:
		if err := s.Check(ctx); err != nil {
			// Signing works offline; a failed probe only degrades.
			h.Status, h.Message = component.StatusDegraded, err.Error()
		}
	}
	return h
}

func (c *Component) Describe() component.Description {
	details := "provider=" + c.cfg.Provider
	if c.cfg.Provider == ProviderS3 {
		details += fmt.Sprintf(" bucket=%s region=%s", c.cfg.Bucket, c.cfg.Region)
	}
	return component.Description{Name: "Storage", Type: "storage", Details: details}
}
