package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/vidpipe/component"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/redis"
)

// Publisher sends node events to a Redis channel. It satisfies
// lifecycle.Notifier and is used instead of a Hub when Redis is enabled,
// so events from every process reach the serving Relay. NodeChanged only
// queues the event; a background loop publishes it.
type Publisher struct {
	client  *redis.Client
	channel string
	log     *logger.Logger
	events  chan Event

	quit chan struct{}
	done chan struct{}
	mu   sync.Mutex
}

var _ component.Component = (*Publisher)(nil)

// NewPublisher creates a Publisher that holds up to buffer unsent events.
// Events past that are dropped.
func NewPublisher(client *redis.Client, channel string, buffer int, log *logger.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Publisher{
		client:  client,
		channel: channel,
		log:     log.WithComponent("sse-publisher"),
		events:  make(chan Event, buffer),
	}
}

func (p *Publisher) NodeChanged(_ context.Context, n *pipeline.Node, op string) {
	select {
	case p.events <- NodeEvent(n, op, time.Now()):
	default:
		p.log.Warn("Event buffer full, dropping node event", map[string]interface{}{
			logger.FieldNodeID:    n.ID,
			logger.FieldOperation: op,
		})
	}
}

func (p *Publisher) Name() string { return "sse-publisher" }

// Start publishes queued events in the background.
func (p *Publisher) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quit != nil {
		return nil
	}
	p.quit = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.quit, p.done)
	return nil
}

func (p *Publisher) run(quit, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev := <-p.events:
			p.publish(ev)
		case <-quit:
			for {
				select {
				case ev := <-p.events:
					p.publish(ev)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) publish(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.client.PublishJSON(ctx, p.channel, ev); err != nil {
		p.log.Warn("Publishing node event failed", map[string]interface{}{
			logger.FieldNodeID: ev.NodeID,
			"error":            err.Error(),
		})
	}
}

// Stop flushes queued events and waits for the loop, or for ctx.
func (p *Publisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	quit, done := p.quit, p.done
	p.quit = nil
	p.mu.Unlock()
	if quit == nil {
		return nil
	}
	close(quit)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) Health(ctx context.Context) component.Health {
	if len(p.events) == cap(p.events) {
		return component.Health{Name: p.Name(), Status: component.StatusDegraded, Message: "event buffer full"}
	}
	if err := p.client.Ping(ctx); err != nil {
		return component.Health{Name: p.Name(), Status: component.StatusUnhealthy, Message: err.Error()}
	}
	return component.Health{Name: p.Name(), Status: component.StatusHealthy}
}

// Relay forwards events from a Redis channel into a Hub.
type Relay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     *logger.Logger

	ps   *goredis.PubSub
	done chan struct{}
	mu   sync.Mutex
}

var _ component.Component = (*Relay)(nil)

// NewRelay creates a Relay.
func NewRelay(client *redis.Client, channel string, hub *Hub, log *logger.Logger) *Relay {
	return &Relay{client: client, channel: channel, hub: hub, log: log.WithComponent("sse-relay")}
}

func (r *Relay) Name() string { return "sse-relay" }

// Start subscribes and forwards in the background.
func (r *Relay) Start(ctx context.Context) error {
	ps, err := r.client.Subscribe(ctx, r.channel)
	if err != nil {
		return fmt.Errorf("sse relay: %w", err)
	}
	r.mu.Lock()
	r.ps = ps
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.forward(ps.Channel(), r.done)
	r.log.Info("Relaying node events", map[string]interface{}{"channel": r.channel})
	return nil
}

func (r *Relay) forward(msgs <-chan *goredis.Message, done chan struct{}) {
	defer close(done)
	for msg := range msgs {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil || ev.PipelineID == "" {
			r.log.Warn("Dropping malformed node event", map[string]interface{}{"payload": msg.Payload})
			continue
		}
		r.hub.Publish(ev.PipelineID, []byte(msg.Payload))
	}
}

// Stop unsubscribes and waits for the forwarder to drain.
func (r *Relay) Stop(_ context.Context) error {
	r.mu.Lock()
	ps, done := r.ps, r.done
	r.ps = nil
	r.mu.Unlock()
	if ps == nil {
		return nil
	}
	err := ps.Close()
	<-done
	return err
}

func (r *Relay) Health(ctx context.Context) component.Health {
	r.mu.Lock()
	running := r.ps != nil
	r.mu.Unlock()
	if !running {
		return component.Health{Name: r.Name(), Status: component.StatusUnhealthy, Message: "not subscribed"}
	}
	if err := r.client.Ping(ctx); err != nil {
		return component.Health{Name: r.Name(), Status: component.StatusUnhealthy, Message: err.Error()}
	}
	return component.Health{Name: r.Name(), Status: component.StatusHealthy}
}
