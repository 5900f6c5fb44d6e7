package queue

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/vidpipe/pipeline"
)

// ErrClosed is returned by Enqueue and Dequeue once the queue is closed.
var ErrClosed = errors.New("queue: closed")

// Task asks a worker to run the executor for one node.
type Task struct {
	ID           string    `json:"id"`
	NodeID       string    `json:"node_id"`
	PipelineID   string    `json:"pipeline_id"`
	ExecutorType string    `json:"executor_type"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// NewTask builds a task for n.
func NewTask(n *pipeline.Node, now time.Time) Task {
	return Task{
		ID:           pipeline.NewID(),
		NodeID:       n.ID,
		PipelineID:   n.PipelineID,
		ExecutorType: n.Type,
		EnqueuedAt:   now.UTC(),
	}
}

// Queue is a FIFO of tasks shared by producers and workers.
type Queue interface {
	Enqueue(ctx context.Context, t Task) error
	// Dequeue blocks until a task is available, ctx ends or the queue closes.
	Dequeue(ctx context.Context) (Task, error)
	Close() error
}

// Handler runs one task.
type Handler func(ctx context.Context, t Task) error
