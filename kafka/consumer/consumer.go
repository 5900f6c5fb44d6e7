// Package consumer reads a topic as part of a consumer group and hands
// each message to a handler.
package consumer

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/vidpipe/kafka"
	"github.com/kbukum/vidpipe/logger"
)

// Handler processes one message. A returned error is logged and the
// offset is still committed; handlers that want redelivery must not
// return until they have succeeded.
type Handler func(ctx context.Context, msg kafkago.Message) error

// Reader is the subset of *kafkago.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

const maxBackoff = 30 * time.Second

// Consumer wraps a Reader with read backoff and logging.
type Consumer struct {
	reader   Reader
	topic    string
	log      *logger.Logger
	failures int
	backoff  func(failures int) time.Duration
}

// New creates a group consumer for topic.
func New(cfg kafka.Config, topic string, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}
	dialer, err := kafka.NewDialer(&cfg)
	if err != nil {
		return nil, err
	}

	clog := log.WithComponent("kafka.consumer").WithFields(map[string]interface{}{
		"topic":    topic,
		"group_id": cfg.GroupID,
	})
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       kafkago.FirstOffset,
		MinBytes:          1,
		MaxBytes:          10e6,
		SessionTimeout:    kafka.ParseDuration(cfg.SessionTimeout),
		HeartbeatInterval: kafka.ParseDuration(cfg.HeartbeatInterval),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: " + fmt.Sprintf(msg, args...))
		}),
	})
	clog.Info("Kafka consumer initialized", map[string]interface{}{"brokers": cfg.Brokers})
	return NewWithReader(r, topic, clog), nil
}

// NewWithReader wraps an existing reader.
func NewWithReader(r Reader, topic string, log *logger.Logger) *Consumer {
	return &Consumer{reader: r, topic: topic, log: log, backoff: linearBackoff}
}

func linearBackoff(failures int) time.Duration {
	d := time.Duration(failures) * time.Second
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Consume fetches messages until ctx is cancelled. Each message is
// committed after handler returns.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	c.log.Info("Starting consume loop")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := c.waitAfterFailure(ctx, err); err != nil {
				return err
			}
			continue
		}
		c.failures = 0

		if err := handler(ctx, msg); err != nil {
			c.log.Error("Message processing failed", map[string]interface{}{
				logger.FieldError: err.Error(),
				"partition":       msg.Partition,
				"offset":          msg.Offset,
			})
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Warn("Commit failed", map[string]interface{}{
				logger.FieldError: err.Error(),
				"offset":          msg.Offset,
			})
		}
	}
}

func (c *Consumer) waitAfterFailure(ctx context.Context, err error) error {
	c.failures++
	if c.failures <= 3 {
		c.log.Error("Kafka read error", map[string]interface{}{
			logger.FieldError: err.Error(),
			"failures":        c.failures,
		})
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.backoff(c.failures)):
		return nil
	}
}

// Topic returns the consumed topic.
func (c *Consumer) Topic() string { return c.topic }

// Close closes the reader.
func (c *Consumer) Close() error {
	c.log.Info("Kafka consumer closing")
	return c.reader.Close()
}

// Runner binds a consumer to its handler so the kafka component can run it.
type Runner struct {
	*Consumer
	handler Handler
}

// Bind pairs c with handler.
func Bind(c *Consumer, handler Handler) *Runner {
	return &Runner{Consumer: c, handler: handler}
}

// Consume runs the bound handler.
func (r *Runner) Consume(ctx context.Context) error {
	return r.Consumer.Consume(ctx, r.handler)
}
