// Package store defines persistence for pipelines and nodes.
//
// Node mutations go through UpdateLocked, which holds an exclusive lock on
// the node for the whole read-compare-write so concurrent executions and
// edits of one node serialize. Implementations: gormstore (SQL, SELECT ...
// FOR UPDATE) and memstore (per-node mutex).
package store

import (
	"context"

	"github.com/kbukum/vidpipe/pipeline"
)

// MutateFunc inspects a locked node and edits it in place. It returns
// true when the node must be persisted.
type MutateFunc func(n *pipeline.Node) (bool, error)

// DetachFunc edits a sibling of a node being deleted. remaining holds the
// ids of the nodes left in the pipeline. It returns true when the sibling
// changed.
type DetachFunc func(sibling *pipeline.Node, remaining []string) bool

// Store persists pipelines and nodes. Returned values are copies owned by the caller.
type Store interface {
	CreatePipeline(ctx context.Context, p *pipeline.Pipeline) error
	GetPipeline(ctx context.Context, id string) (*pipeline.Pipeline, error)
	ListPipelines(ctx context.Context) ([]*pipeline.Pipeline, error)
	// UpdatePipeline applies fn to the locked pipeline and persists the result.
	UpdatePipeline(ctx context.Context, id string, fn func(p *pipeline.Pipeline) error) (*pipeline.Pipeline, error)
	// DeletePipeline removes the pipeline and all of its nodes.
	DeletePipeline(ctx context.Context, id string) error

	CreateNode(ctx context.Context, n *pipeline.Node) error
	GetNode(ctx context.Context, id string) (*pipeline.Node, error)
	// GetNodes returns the nodes that exist among ids, in no particular order.
	GetNodes(ctx context.Context, ids []string) ([]*pipeline.Node, error)
	// ListNodes returns a pipeline's nodes ordered by creation.
	ListNodes(ctx context.Context, pipelineID string) ([]*pipeline.Node, error)
	// UpdateLocked runs fn with the node locked and returns the node as fn left it.
	UpdateLocked(ctx context.Context, id string, fn MutateFunc) (*pipeline.Node, error)
	// DeleteNode removes a node and applies detach to each sibling in the same unit of work.
	DeleteNode(ctx context.Context, id string, detach DetachFunc) error
}
