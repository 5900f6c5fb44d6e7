package callback

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/kafka/consumer"
	"github.com/kbukum/vidpipe/validation"
)

// KindProgress marks a topic message as a progress report. Messages
// without a kind are completion reports.
const KindProgress = "progress"

// Message is the envelope read from the callbacks topic.
type Message struct {
	Kind string `json:"kind,omitempty"`
	Callback
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MessageHandler decodes callbacks from Kafka. Stale reports are
// acknowledged and dropped; other failures are returned for the consumer
// to log.
func (r *Router) MessageHandler() consumer.Handler {
	return func(ctx context.Context, msg kafkago.Message) error {
		var m Message
		if err := json.Unmarshal(msg.Value, &m); err != nil {
			return fmt.Errorf("decoding callback at offset %d: %w", msg.Offset, err)
		}

		if m.Kind == KindProgress {
			p := Progress{NodeID: m.NodeID, ProcessUUID: m.ProcessUUID, Metadata: m.Metadata}
			if err := validation.Struct(p); err != nil {
				return err
			}
			_, err := r.HandleProgress(ctx, p)
			return err
		}

		if err := validation.Struct(m.Callback); err != nil {
			return err
		}
		_, err := r.Handle(ctx, m.Callback)
		if errors.IsCode(err, errors.ErrCodeStaleCallback) {
			return nil
		}
		return err
	}
}
