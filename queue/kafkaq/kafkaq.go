// Package kafkaq is a queue.Queue on a Kafka topic. Tasks are keyed by
// node id so attempts for one node stay on one partition; workers share
// the configured consumer group.
package kafkaq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/vidpipe/kafka"
	"github.com/kbukum/vidpipe/kafka/consumer"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/queue"
)

// Sender publishes JSON messages. *producer.Producer satisfies it.
type Sender interface {
	SendJSON(ctx context.Context, topic, key string, value any) error
}

// Queue publishes through a Sender and reads through a group Reader.
type Queue struct {
	sender Sender
	reader consumer.Reader
	topic  string
	log    *logger.Logger
	closed atomic.Bool
}

var _ queue.Queue = (*Queue)(nil)

// New creates a queue on topic. The reader joins cfg.GroupID.
func New(cfg kafka.Config, topic string, sender Sender, log *logger.Logger) (*Queue, error) {
	cfg.ApplyDefaults()
	dialer, err := kafka.NewDialer(&cfg)
	if err != nil {
		return nil, err
	}
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       kafkago.FirstOffset,
		SessionTimeout:    kafka.ParseDuration(cfg.SessionTimeout),
		HeartbeatInterval: kafka.ParseDuration(cfg.HeartbeatInterval),
	})
	return NewWithReader(sender, r, topic, log), nil
}

// NewWithReader wires an existing reader.
func NewWithReader(sender Sender, r consumer.Reader, topic string, log *logger.Logger) *Queue {
	return &Queue{sender: sender, reader: r, topic: topic, log: log.WithComponent("queue.kafka")}
}

func (q *Queue) Enqueue(ctx context.Context, t queue.Task) error {
	if q.closed.Load() {
		return queue.ErrClosed
	}
	if err := q.sender.SendJSON(ctx, q.topic, t.NodeID, t); err != nil {
		return fmt.Errorf("kafkaq enqueue: %w", err)
	}
	return nil
}

// Dequeue fetches the next task and commits it before returning.
// Undecodable messages are committed and skipped.
func (q *Queue) Dequeue(ctx context.Context) (queue.Task, error) {
	for {
		if q.closed.Load() {
			return queue.Task{}, queue.ErrClosed
		}
		msg, err := q.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return queue.Task{}, ctx.Err()
			}
			return queue.Task{}, fmt.Errorf("kafkaq dequeue: %w", err)
		}
		if err := q.reader.CommitMessages(ctx, msg); err != nil {
			return queue.Task{}, fmt.Errorf("kafkaq commit: %w", err)
		}

		var t queue.Task
		if err := json.Unmarshal(msg.Value, &t); err != nil || t.NodeID == "" {
			q.log.Warn("Skipping malformed task", map[string]interface{}{
				"partition": msg.Partition,
				"offset":    msg.Offset,
			})
			continue
		}
		return t, nil
	}
}

// Close closes the reader. The sender belongs to the kafka component.
func (q *Queue) Close() error {
	if q.closed.Swap(true) {
		return nil
	}
	return q.reader.Close()
}
