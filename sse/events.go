package sse

import (
	"time"

	"github.com/kbukum/vidpipe/pipeline"
)

// SSE event names.
const (
	EventConnected = "connected"
	EventNode      = "node"
)

// Event describes one applied lifecycle operation on a node.
type Event struct {
	PipelineID  string          `json:"pipeline_id"`
	NodeID      string          `json:"node_id"`
	Status      pipeline.Status `json:"status"`
	Operation   string          `json:"operation"`
	ProcessUUID string          `json:"process_uuid,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	At          time.Time       `json:"at"`
}

// NodeEvent snapshots n after op.
func NodeEvent(n *pipeline.Node, op string, at time.Time) Event {
	return Event{
		PipelineID:  n.PipelineID,
		NodeID:      n.ID,
		Status:      n.Status,
		Operation:   op,
		ProcessUUID: n.ProcessUUID(),
		Metadata:    map[string]any(pipeline.CloneDoc(n.Metadata)),
		At:          at.UTC(),
	}
}
