// Package producer publishes JSON messages through a kafka-go Writer.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/vidpipe/kafka"
	"github.com/kbukum/vidpipe/logger"
)

// Writer is the subset of *kafkago.Writer the producer uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Producer writes messages with bounded retries on transient errors.
type Producer struct {
	writer  Writer
	retries int
	log     *logger.Logger

	mu     sync.RWMutex
	closed bool
}

// New builds a producer for cfg.Brokers. Topics are set per message.
func New(cfg kafka.Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}
	transport, err := kafka.NewTransport(&cfg)
	if err != nil {
		return nil, err
	}

	plog := log.WithComponent("kafka.producer")
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Transport:              transport,
		Balancer:               &kafkago.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           kafka.ParseDuration(cfg.BatchTimeout),
		WriteTimeout:           kafka.ParseDuration(cfg.WriteTimeout),
		RequiredAcks:           kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:            kafka.Compression(cfg.Compression),
		AllowAutoTopicCreation: true,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			plog.Error("writer: " + fmt.Sprintf(msg, args...))
		}),
	}

	plog.Info("Kafka producer initialized", map[string]interface{}{
		"brokers":     cfg.Brokers,
		"compression": cfg.Compression,
	})
	return NewWithWriter(w, cfg.Retries, plog), nil
}

// NewWithWriter wraps an existing writer.
func NewWithWriter(w Writer, retries int, log *logger.Logger) *Producer {
	if retries <= 0 {
		retries = 1
	}
	return &Producer{writer: w, retries: retries, log: log}
}

// WriteMessages sends msgs, retrying transient failures with linear backoff.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("producer is closed")
	}

	var lastErr error
	for attempt := 1; attempt <= p.retries; attempt++ {
		lastErr = p.writer.WriteMessages(ctx, msgs...)
		if lastErr == nil {
			return nil
		}
		if !kafka.IsRetryable(lastErr) || attempt == p.retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("kafka write: %w", lastErr)
}

// SendJSON encodes value and writes it to topic under key.
func (p *Producer) SendJSON(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return p.WriteMessages(ctx, kafkago.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   data,
		Headers: []kafkago.Header{{Key: "content-type", Value: []byte("application/json")}},
	})
}

// Close flushes and closes the writer. Safe to call more than once.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.log.Info("Kafka producer closing")
	return p.writer.Close()
}
