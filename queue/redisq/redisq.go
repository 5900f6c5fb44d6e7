// Package redisq is a queue.Queue on a Redis list. Producers LPUSH JSON
// tasks; workers BRPOP them, so the list is FIFO and shared by every
// process pointed at the same key. BRPOP removes the entry, so a task is
// gone from Redis before its handler runs.
package redisq

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kbukum/vidpipe/queue"
	"github.com/kbukum/vidpipe/redis"
)

// Queue pushes and pops tasks on one list key.
type Queue struct {
	client *redis.Client
	key    string
	block  time.Duration
	closed atomic.Bool
}

var _ queue.Queue = (*Queue)(nil)

// New creates a queue on key. block bounds each BRPOP so Dequeue can
// notice Close between waits.
func New(client *redis.Client, key string, block time.Duration) *Queue {
	if block <= 0 {
		block = 5 * time.Second
	}
	return &Queue{client: client, key: key, block: block}
}

func (q *Queue) Enqueue(ctx context.Context, t queue.Task) error {
	if q.closed.Load() {
		return queue.ErrClosed
	}
	if err := q.client.PushJSON(ctx, q.key, t); err != nil {
		return fmt.Errorf("redisq enqueue: %w", err)
	}
	return nil
}

func (q *Queue) Dequeue(ctx context.Context) (queue.Task, error) {
	for {
		if q.closed.Load() {
			return queue.Task{}, queue.ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return queue.Task{}, err
		}
		var t queue.Task
		ok, err := q.client.PopJSON(ctx, q.key, q.block, &t)
		if err != nil {
			if ctx.Err() != nil {
				return queue.Task{}, ctx.Err()
			}
			return queue.Task{}, fmt.Errorf("redisq dequeue: %w", err)
		}
		if ok {
			return t, nil
		}
	}
}

// Len returns the number of waiting tasks.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.Len(ctx, q.key)
}

// Close stops Enqueue and Dequeue. The client belongs to the redis
// component and stays open.
func (q *Queue) Close() error {
	q.closed.Store(true)
	return nil
}
