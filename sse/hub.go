package sse

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/pipeline"
)

// ErrClosed is returned by Subscribe after the hub has stopped.
var ErrClosed = errors.New("sse: hub closed")

// Client is one open stream. Its events channel is closed when the
// client is unsubscribed or the hub stops.
type Client struct {
	id         string
	pipelineID string
	events     chan []byte
}

// ID returns "<pipeline>:<random>".
func (c *Client) ID() string { return c.id }

// Events delivers encoded Event payloads.
func (c *Client) Events() <-chan []byte { return c.events }

func (c *Client) send(data []byte) bool {
	select {
	case c.events <- data:
		return true
	default:
		return false
	}
}

type message struct {
	pattern string
	data    []byte
}

// Hub routes events to clients subscribed to a pipeline. Run owns the
// client set; other goroutines talk to it over channels.
type Hub struct {
	cfg        Config
	log        *logger.Logger
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

// NewHub creates a hub. Call Run to start routing.
func NewHub(cfg Config, log *logger.Logger) *Hub {
	cfg.ApplyDefaults()
	return &Hub{
		cfg:        cfg,
		log:        log.WithComponent("sse"),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
	}
}

// Run routes registrations and broadcasts until Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.events)
			}
			h.mu.Unlock()
		case m := <-h.broadcast:
			h.deliver(m)
		}
	}
}

// Stop makes Run close every client and return. Safe to call twice.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.events)
		delete(h.clients, id)
	}
}

// Subscribe opens a client for pipelineID.
func (h *Hub) Subscribe(pipelineID string) (*Client, error) {
	c := &Client{
		id:         pipelineID + ":" + uuid.NewString(),
		pipelineID: pipelineID,
		events:     make(chan []byte, h.cfg.ClientBuffer),
	}
	select {
	case h.register <- c:
		return c, nil
	case <-h.done:
		return nil, ErrClosed
	}
}

// Unsubscribe closes c. It is a no-op after Stop.
func (h *Hub) Unsubscribe(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues data for every client of pipelineID. It never blocks;
// when the hub is saturated the event is dropped.
func (h *Hub) Publish(pipelineID string, data []byte) {
	select {
	case h.broadcast <- message{pattern: pipelineID + ":*", data: data}:
	case <-h.done:
	default:
		h.log.Warn("Event dropped, hub saturated", map[string]interface{}{logger.FieldPipelineID: pipelineID})
	}
}

// NodeChanged publishes a node Event. It satisfies lifecycle.Notifier.
func (h *Hub) NodeChanged(_ context.Context, n *pipeline.Node, op string) {
	data, err := json.Marshal(NodeEvent(n, op, time.Now()))
	if err != nil {
		h.log.Error("Encoding node event failed", map[string]interface{}{"error": err.Error()})
		return
	}
	h.Publish(n.PipelineID, data)
}

func (h *Hub) deliver(m message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		ok, err := filepath.Match(m.pattern, id)
		if err != nil || !ok {
			continue
		}
		if !c.send(m.data) {
			h.log.Warn("Slow client, event dropped", map[string]interface{}{"client_id": id})
		}
	}
}

// ClientCount returns the number of open streams.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
