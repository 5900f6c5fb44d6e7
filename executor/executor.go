package executor

import (
	"context"
	"sort"
	"sync"

	"github.com/kbukum/vidpipe/lifecycle"
	"github.com/kbukum/vidpipe/pipeline"
)

// Executor runs the work for one node.
type Executor interface {
	Execute(ctx context.Context, n *pipeline.Node) error
}

// Lifecycle is the part of lifecycle.Manager executors drive.
type Lifecycle interface {
	ExecutionStarted(ctx context.Context, nodeID string, extra map[string]any) (string, error)
	ExecutionUpdated(ctx context.Context, nodeID string, patch map[string]any, token string) (lifecycle.Outcome, error)
	ExecutionSucceeded(ctx context.Context, nodeID, executorType string, result map[string]any, token string) (lifecycle.Outcome, error)
}

var _ Lifecycle = (*lifecycle.Manager)(nil)

// Registry maps node types to executors.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Register sets the executor for nodeType, replacing any previous one.
func (r *Registry) Register(nodeType string, e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[nodeType] = e
}

// Get returns the executor for nodeType.
func (r *Registry) Get(nodeType string) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[nodeType]
	return e, ok
}

// Has reports whether nodeType has an executor.
func (r *Registry) Has(nodeType string) bool {
	_, ok := r.Get(nodeType)
	return ok
}

// Types returns the registered node types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
