package executor

import (
	"context"
	"time"

	"github.com/kbukum/vidpipe/compute"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/store"
)

// Metadata keys written when a node is submitted.
const (
	MetaFunction    = "function"
	MetaSubmittedAt = "submitted_at"
	MetaSubmitError = pipeline.MetaSubmitError
)

// Compute submits a node to a compute function and returns once the
// backend has accepted it.
type Compute struct {
	nodeType    string
	function    string
	callbackURL string
	invoker     compute.Invoker
	lc          Lifecycle
	store       store.Store
	log         *logger.Logger
	now         func() time.Time
}

// ComputeConfig wires a Compute executor.
type ComputeConfig struct {
	NodeType    string
	Function    string
	CallbackURL string
	Invoker     compute.Invoker
	Lifecycle   Lifecycle
	Store       store.Store
	Logger      *logger.Logger
}

// NewCompute creates a compute executor.
func NewCompute(cfg ComputeConfig) *Compute {
	return &Compute{
		nodeType:    cfg.NodeType,
		function:    cfg.Function,
		callbackURL: cfg.CallbackURL,
		invoker:     cfg.Invoker,
		lc:          cfg.Lifecycle,
		store:       cfg.Store,
		log:         cfg.Logger.WithComponent("executor"),
		now:         time.Now,
	}
}

// Execute starts a new attempt and submits it. A rejected submission is
// recorded on the node and returned; the node stays in progress until an
// operator fails it or a later attempt supersedes it.
func (c *Compute) Execute(ctx context.Context, n *pipeline.Node) error {
	inputs, err := c.resolveInputs(ctx, n)
	if err != nil {
		return err
	}

	token, err := c.lc.ExecutionStarted(ctx, n.ID, map[string]any{
		MetaFunction:    c.function,
		MetaSubmittedAt: c.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}

	inv := compute.Invocation{
		Function: c.function,
		Payload: map[string]any{
			"node_id":       n.ID,
			"pipeline_id":   n.PipelineID,
			"executor_type": c.nodeType,
			"config":        map[string]any(n.Config),
			"inputs":        inputs,
			"asset":         map[string]any(n.Asset),
			"callback_url":  c.callbackURL,
			"process_uuid":  token,
		},
	}
	if err := c.invoker.Submit(ctx, inv); err != nil {
		if _, uerr := c.lc.ExecutionUpdated(ctx, n.ID, map[string]any{MetaSubmitError: err.Error()}, token); uerr != nil {
			c.log.WithContext(ctx).Warn("Recording submission failure", map[string]interface{}{
				logger.FieldNodeID: n.ID,
				logger.FieldError:  uerr.Error(),
			})
		}
		return err
	}

	c.log.WithContext(ctx).Info("Submitted to compute", map[string]interface{}{
		logger.FieldNodeID:      n.ID,
		logger.FieldExecutor:    c.nodeType,
		logger.FieldProcessUUID: token,
		"function":              c.function,
	})
	return nil
}

// resolveInputs replaces each referenced node id with that node's id and
// output, keeping the slot's shape. Missing nodes resolve to their id only.
func (c *Compute) resolveInputs(ctx context.Context, n *pipeline.Node) (map[string]any, error) {
	refs := n.InputRefs()
	outputs := make(map[string]map[string]any, len(refs))
	if len(refs) > 0 {
		nodes, err := c.store.GetNodes(ctx, refs)
		if err != nil {
			return nil, err
		}
		for _, in := range nodes {
			outputs[in.ID] = in.Output
		}
	}

	resolve := func(v any) any {
		id, ok := pipeline.AsString(v)
		if !ok {
			return v
		}
		entry := map[string]any{"node_id": id}
		if out, ok := outputs[id]; ok && out != nil {
			entry["output"] = out
		}
		return entry
	}

	resolved := make(map[string]any, len(n.Inputs))
	for slot, v := range n.Inputs {
		if items, ok := pipeline.AsSlice(v); ok {
			list := make([]any, len(items))
			for i, item := range items {
				list[i] = resolve(item)
			}
			resolved[slot] = list
			continue
		}
		resolved[slot] = resolve(v)
	}
	return resolved, nil
}
