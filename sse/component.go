package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/vidpipe/component"
)

// Component runs a Hub under the registry.
type Component struct {
	hub *Hub
	wg  sync.WaitGroup
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent wraps hub.
func NewComponent(hub *Hub) *Component {
	return &Component{hub: hub}
}

func (c *Component) Name() string { return "sse" }

func (c *Component) Start(_ context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.hub.Run()
	}()
	return nil
}

// Stop closes every stream and waits for the hub loop to exit.
func (c *Component) Stop(_ context.Context) error {
	c.hub.Stop()
	c.wg.Wait()
	return nil
}

func (c *Component) Health(_ context.Context) component.Health {
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d streams open", c.hub.ClientCount()),
	}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Event stream",
		Type:    "sse",
		Details: fmt.Sprintf("keep-alive %s", c.hub.cfg.KeepAlive),
	}
}
