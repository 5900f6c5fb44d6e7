package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/vidpipe/component"
	"github.com/kbukum/vidpipe/logger"
)

// Closer is satisfied by the producer.
type Closer interface {
	Close() error
}

// Runner is a consumer bound to its handler.
type Runner interface {
	Consume(ctx context.Context) error
	Close() error
	Topic() string
}

// Component owns an optional producer and any number of consumer runners.
// Producers and runners are injected before Start.
type Component struct {
	cfg Config
	log *logger.Logger

	mu       sync.Mutex
	producer Closer
	runners  []Runner
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a Kafka component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("kafka")}
}

// SetProducer registers the producer closed on Stop.
func (c *Component) SetProducer(p Closer) {
	c.mu.Lock()
	c.producer = p
	c.mu.Unlock()
}

// AddRunner registers a consumer started on Start.
func (c *Component) AddRunner(r Runner) {
	c.mu.Lock()
	c.runners = append(c.runners, r)
	c.mu.Unlock()
}

func (c *Component) Name() string { return "kafka" }

// Start launches one goroutine per runner.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	for _, r := range c.runners {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := r.Consume(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				c.log.Error("Consumer stopped with error", map[string]interface{}{
					"topic":           r.Topic(),
					logger.FieldError: err.Error(),
				})
			}
		}()
	}
	c.running = true
	c.log.Info("Kafka component started", map[string]interface{}{"consumers": len(c.runners)})
	return nil
}

// Stop cancels the runners, waits for them and closes everything.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.log.Info("Kafka component stopping")
	c.cancel()
	c.wg.Wait()

	var errs []error
	for _, r := range c.runners {
		errs = append(errs, r.Close())
	}
	c.runners = nil
	if c.producer != nil {
		errs = append(errs, c.producer.Close())
		c.producer = nil
	}
	c.running = false
	return errors.Join(errs...)
}

// Health dials the first broker and reads cluster metadata.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	h := component.Health{Name: c.Name(), Status: component.StatusUnhealthy}
	if !running {
		h.Message = "kafka not started"
		return h
	}
	dialer, err := NewDialer(&c.cfg)
	if err != nil {
		h.Message = err.Error()
		return h
	}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Brokers[0])
	if err != nil {
		h.Message = fmt.Sprintf("broker unreachable: %v", err)
		return h
	}
	defer conn.Close()
	if _, err := conn.Brokers(); err != nil {
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("broker metadata: %v", err)
		return h
	}
	h.Status = component.StatusHealthy
	return h
}

func (c *Component) Describe() component.Description {
	c.mu.Lock()
	defer c.mu.Unlock()
	details := fmt.Sprintf("brokers=%v group=%s", c.cfg.Brokers, c.cfg.GroupID)
	for _, r := range c.runners {
		details += " consume=" + r.Topic()
	}
	if c.producer != nil {
		details += " producer=yes"
	}
	return component.Description{Name: "Kafka", Type: "kafka", Details: details}
}
