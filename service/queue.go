package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kbukum/vidpipe/component"
	"github.com/kbukum/vidpipe/config"
	"github.com/kbukum/vidpipe/kafka/producer"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/queue"
	"github.com/kbukum/vidpipe/queue/kafkaq"
	"github.com/kbukum/vidpipe/queue/memory"
	"github.com/kbukum/vidpipe/queue/redisq"
)

func newQueue(cfg *config.AppConfig, infra *Infra, prod *producer.Producer, log *logger.Logger) (queue.Queue, error) {
	switch cfg.Queue.Backend {
	case queue.BackendRedis:
		if infra.Redis == nil || infra.Redis.Client() == nil {
			return nil, fmt.Errorf("queue.backend redis needs redis enabled")
		}
		return redisq.New(infra.Redis.Client(), cfg.Queue.RedisKey, cfg.Queue.BlockDuration()), nil
	case queue.BackendKafka:
		if prod == nil {
			return nil, fmt.Errorf("queue.backend kafka needs kafka enabled")
		}
		q, err := kafkaq.New(cfg.Kafka, cfg.Queue.Topic, prod, log)
		if err != nil {
			return nil, fmt.Errorf("kafka queue: %w", err)
		}
		return q, nil
	default:
		return memory.New(cfg.Queue.Buffer), nil
	}
}

// queueComponent closes the queue on Stop. It is registered before the
// worker so the worker drains first.
type queueComponent struct {
	backend string
	q       queue.Queue
	closed  atomic.Bool
}

var (
	_ component.Component   = (*queueComponent)(nil)
	_ component.Describable = (*queueComponent)(nil)
)

func newQueueComponent(backend string, q queue.Queue) *queueComponent {
	return &queueComponent{backend: backend, q: q}
}

func (c *queueComponent) Name() string { return "task-queue" }

func (c *queueComponent) Start(context.Context) error {
	c.closed.Store(false)
	return nil
}

func (c *queueComponent) Stop(context.Context) error {
	c.closed.Store(true)
	return c.q.Close()
}

func (c *queueComponent) Health(context.Context) component.Health {
	if c.closed.Load() {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "closed"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *queueComponent) Describe() component.Description {
	details := "backend=" + c.backend
	if m, ok := c.q.(*memory.Queue); ok {
		details += fmt.Sprintf(" depth=%d", m.Len())
	}
	return component.Description{Name: "Task Queue", Type: "queue", Details: details}
}
