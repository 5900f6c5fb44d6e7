package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/vidpipe/component"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/observability"
	"github.com/kbukum/vidpipe/resilience"
)

// dequeueBackoff paces a worker whose Dequeue keeps failing.
var dequeueBackoff = resilience.RetryConfig{
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
	BackoffFactor:  2,
	Jitter:         0.2,
}

// Worker drains a Queue with a fixed pool of goroutines.
type Worker struct {
	queue       Queue
	handler     Handler
	workers     int
	taskTimeout time.Duration
	metrics     *observability.Metrics
	log         *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	running bool
}

var _ component.Component = (*Worker)(nil)

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithMetrics records task counts and durations.
func WithMetrics(m *observability.Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// WithTaskTimeout bounds each handler call.
func WithTaskTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) { w.taskTimeout = d }
}

// NewWorker creates a worker pool of the given size over q.
func NewWorker(q Queue, h Handler, workers int, log *logger.Logger, opts ...WorkerOption) *Worker {
	if workers <= 0 {
		workers = 1
	}
	w := &Worker{
		queue:   q,
		handler: h,
		workers: workers,
		log:     log.WithComponent("queue.worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Name() string { return "queue-worker" }

// Start launches the pool. The pool outlives ctx; Stop ends it.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < w.workers; i++ {
		g.Go(func() error { return w.loop(gctx, i) })
	}
	w.cancel, w.group, w.running = cancel, g, true
	w.log.Info("Queue worker started", map[string]interface{}{"workers": w.workers})
	return nil
}

// Stop cancels the pool and waits for in-flight tasks to return.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.cancel()
	done := make(chan error, 1)
	go func() { done <- w.group.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("queue worker stop: %w", ctx.Err())
	}
	w.running = false
	w.log.Info("Queue worker stopped")
	return err
}

func (w *Worker) Health(_ context.Context) component.Health {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return component.Health{Name: w.Name(), Status: component.StatusUnhealthy, Message: "not running"}
	}
	return component.Health{Name: w.Name(), Status: component.StatusHealthy}
}

func (w *Worker) Describe() component.Description {
	return component.Description{
		Name:    "Queue Worker",
		Type:    "worker",
		Details: fmt.Sprintf("workers=%d", w.workers),
	}
}

func (w *Worker) loop(ctx context.Context, id int) error {
	log := w.log.WithFields(map[string]interface{}{"worker": id})
	failures := 0
	for {
		t, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrClosed) {
				return nil
			}
			failures++
			wait := resilience.Backoff(failures, dequeueBackoff)
			log.Warn("Dequeue failed", map[string]interface{}{
				logger.FieldError: err.Error(),
				"retry_in":        wait.String(),
			})
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		failures = 0
		w.Process(ctx, t)
	}
}

// Process runs the handler for one task with tracing, metrics and panic
// recovery. Failures are logged; the task is not retried.
func (w *Worker) Process(ctx context.Context, t Task) {
	if w.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.taskTimeout)
		defer cancel()
	}
	ctx, op := observability.StartOperation(ctx, "queue.task",
		attribute.String(observability.AttrNodeID, t.NodeID),
		attribute.String(observability.AttrPipelineID, t.PipelineID),
		attribute.String(observability.AttrNodeType, t.ExecutorType),
	)
	w.metrics.TaskStarted(ctx)

	err := w.call(ctx, t)

	w.metrics.TaskFinished(ctx, t.ExecutorType, err, op.Duration())
	op.End(err)

	fields := map[string]interface{}{
		logger.FieldNodeID:     t.NodeID,
		logger.FieldPipelineID: t.PipelineID,
		logger.FieldExecutor:   t.ExecutorType,
		logger.FieldDuration:   op.Duration().Milliseconds(),
		"task_id":              t.ID,
		"queued_ms":            time.Since(t.EnqueuedAt).Milliseconds(),
	}
	if err != nil {
		fields[logger.FieldError] = err.Error()
		w.log.WithContext(ctx).Error("Task failed", fields)
		return
	}
	w.log.WithContext(ctx).Debug("Task done", fields)
}

func (w *Worker) call(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return w.handler(ctx, t)
}
