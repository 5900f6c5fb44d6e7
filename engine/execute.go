package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/observability"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/queue"
	"github.com/kbukum/vidpipe/resilience"
)

// Execute gates the node and enqueues a task for its executor. The node
// is returned as read; the worker starts the attempt. Inputs are checked
// once here and not again when the task runs.
func (e *Engine) Execute(ctx context.Context, nodeID string) (n *pipeline.Node, err error) {
	ctx, op := observability.StartOperation(ctx, "engine.execute", attribute.String(observability.AttrNodeID, nodeID))
	defer func() { op.End(err) }()

	n, err = e.store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	op.SetAttributes(
		attribute.String(observability.AttrPipelineID, n.PipelineID),
		attribute.String(observability.AttrNodeType, n.Type),
	)

	if err := e.gate.Check(ctx, n); err != nil {
		return nil, err
	}
	if !e.executors.Has(n.Type) {
		return nil, errors.NoExecutor(n.Type)
	}

	task := queue.NewTask(n, e.now())
	err = resilience.RetryFunc(ctx, e.retry, func() error {
		return e.queue.Enqueue(ctx, task)
	})
	if err != nil {
		return nil, errors.ServiceUnavailable("task queue").WithCause(err)
	}

	e.log.WithContext(ctx).Info("Node enqueued", map[string]interface{}{
		logger.FieldNodeID:     n.ID,
		logger.FieldPipelineID: n.PipelineID,
		logger.FieldExecutor:   n.Type,
		"task_id":              task.ID,
	})
	return n, nil
}

// Fail moves an in-progress node to failed using its current token. It is
// the operator's way out of an attempt whose callback never arrives.
func (e *Engine) Fail(ctx context.Context, nodeID, message string) (*pipeline.Node, error) {
	n, err := e.store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if n.Status != pipeline.StatusInProgress {
		return nil, errors.Conflict("node " + nodeID + " is " + string(n.Status) + ", only in_progress nodes can be failed")
	}
	if message == "" {
		message = "Failed by operator"
	}
	out, err := e.failer.ExecutionFailed(ctx, nodeID, message, n.ProcessUUID())
	if err != nil {
		return nil, err
	}
	if !out.Applied {
		return nil, errors.Conflict("node " + nodeID + " changed while failing it")
	}
	e.log.WithContext(ctx).Warn("Node failed by operator", map[string]interface{}{
		logger.FieldNodeID: nodeID,
		logger.FieldError:  message,
	})
	return out.Node, nil
}
