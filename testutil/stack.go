package testutil

import (
	"context"
	"testing"

	"github.com/kbukum/vidpipe/callback"
	"github.com/kbukum/vidpipe/component"
	"github.com/kbukum/vidpipe/compute"
	"github.com/kbukum/vidpipe/engine"
	"github.com/kbukum/vidpipe/executor"
	"github.com/kbukum/vidpipe/lifecycle"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/queue"
	"github.com/kbukum/vidpipe/queue/memory"
	"github.com/kbukum/vidpipe/schema"
	"github.com/kbukum/vidpipe/store/memstore"
	"github.com/kbukum/vidpipe/validation"
)

// Stack is an engine over memstore and a memory queue, with the built-in
// executors submitting to a recording Invoker. Tokens are U1, U2, ...
type Stack struct {
	Store     *memstore.Store
	Queue     *memory.Queue
	Lifecycle *lifecycle.Manager
	Executors *executor.Registry
	Invoker   *Invoker
	Schemas   *schema.Registry
	Engine    *engine.Engine
	Callbacks *callback.Router

	handle queue.Handler
}

// NewStack builds a Stack. The queue is closed on cleanup.
func NewStack(t testing.TB, opts ...engine.Option) *Stack {
	t.Helper()
	s := &Stack{
		Store:   memstore.New(),
		Queue:   memory.New(64),
		Invoker: &Invoker{},
		Schemas: schema.MustBuiltin(),
	}
	s.Lifecycle = lifecycle.New(s.Store, logger.Nop(), lifecycle.WithTokenSource(SeqTokens("U")))
	cfg := compute.Config{CallbackURL: "http://engine.test/api/v1/callbacks", Functions: compute.DefaultFunctions()}
	s.Executors = executor.NewBuiltin(cfg, s.Invoker, s.Lifecycle, s.Store, logger.Nop())
	s.Engine = engine.New(engine.Deps{
		Store:     s.Store,
		Validator: validation.New(s.Schemas),
		Executors: s.Executors,
		Queue:     s.Queue,
		Lifecycle: s.Lifecycle,
		Logger:    logger.Nop(),
	}, opts...)
	s.Callbacks = callback.NewRouter(s.Store, s.Lifecycle, logger.Nop(), nil)
	s.handle = executor.Handler(s.Store, s.Executors)
	t.Cleanup(func() { _ = s.Queue.Close() })
	return s
}

// Drain runs every queued task inline and fails the test on handler errors.
func (s *Stack) Drain(t testing.TB) {
	t.Helper()
	for s.Queue.Len() > 0 {
		task, err := s.Queue.Dequeue(context.Background())
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if err := s.handle(context.Background(), task); err != nil {
			t.Fatalf("task for %s: %v", task.NodeID, err)
		}
	}
}

// Start starts c and stops it when the test ends.
func Start(t testing.TB, c component.Component) {
	t.Helper()
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start %s: %v", c.Name(), err)
	}
	t.Cleanup(func() {
		if err := c.Stop(ctx); err != nil {
			t.Errorf("stop %s: %v", c.Name(), err)
		}
	})
}
