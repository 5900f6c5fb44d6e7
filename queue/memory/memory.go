// Package memory is an in-process queue.Queue over a buffered channel.
// Tasks are lost when the process exits.
package memory

import (
	"context"
	"sync"

	"github.com/kbukum/vidpipe/queue"
)

// Queue is a bounded FIFO. Enqueue blocks while the buffer is full.
type Queue struct {
	tasks  chan queue.Task
	done   chan struct{}
	closer sync.Once
}

var _ queue.Queue = (*Queue)(nil)

// New creates a queue holding up to size tasks.
func New(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{tasks: make(chan queue.Task, size), done: make(chan struct{})}
}

func (q *Queue) Enqueue(ctx context.Context, t queue.Task) error {
	select {
	case <-q.done:
		return queue.ErrClosed
	default:
	}
	select {
	case q.tasks <- t:
		return nil
	case <-q.done:
		return queue.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Dequeue(ctx context.Context) (queue.Task, error) {
	select {
	case t := <-q.tasks:
		return t, nil
	case <-q.done:
		return queue.Task{}, queue.ErrClosed
	case <-ctx.Done():
		return queue.Task{}, ctx.Err()
	}
}

// Len returns the number of buffered tasks.
func (q *Queue) Len() int { return len(q.tasks) }

// Close wakes all waiters. Buffered tasks are dropped.
func (q *Queue) Close() error {
	q.closer.Do(func() { close(q.done) })
	return nil
}
