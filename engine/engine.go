package engine

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/kbukum/vidpipe/lifecycle"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/queue"
	"github.com/kbukum/vidpipe/resilience"
	"github.com/kbukum/vidpipe/store"
	"github.com/kbukum/vidpipe/validation"
)

// Executors reports which node types can run.
type Executors interface {
	Has(nodeType string) bool
}

// Failer fails an execution attempt. lifecycle.Manager implements it.
type Failer interface {
	ExecutionFailed(ctx context.Context, nodeID, message, token string) (lifecycle.Outcome, error)
}

// Engine coordinates the store, validator, queue and lifecycle.
type Engine struct {
	store     store.Store
	validator *validation.Validator
	executors Executors
	queue     queue.Queue
	failer    Failer
	gate      *Gate
	log       *logger.Logger
	now       func() time.Time
	retry     resilience.RetryConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithEnqueueRetry sets how enqueue failures are retried.
func WithEnqueueRetry(cfg resilience.RetryConfig) Option {
	return func(e *Engine) { e.retry = cfg }
}

// Deps are the collaborators an Engine needs.
type Deps struct {
	Store     store.Store
	Validator *validation.Validator
	Executors Executors
	Queue     queue.Queue
	Lifecycle Failer
	Logger    *logger.Logger
}

// New creates an Engine.
func New(d Deps, opts ...Option) *Engine {
	e := &Engine{
		store:     d.Store,
		validator: d.Validator,
		executors: d.Executors,
		queue:     d.Queue,
		failer:    d.Lifecycle,
		gate:      NewGate(d.Store),
		log:       d.Logger.WithComponent("engine"),
		now:       time.Now,
		retry:     resilience.DefaultRetryConfig(),
	}
	e.retry.InitialBackoff = 50 * time.Millisecond
	e.retry.MaxBackoff = time.Second
	e.retry.RetryIf = retryEnqueue
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func retryEnqueue(err error) bool {
	return !stderrors.Is(err, queue.ErrClosed) && resilience.DefaultRetryIf(err)
}
