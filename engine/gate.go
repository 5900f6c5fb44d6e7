package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/store"
)

// Gate decides whether a node may be executed.
type Gate struct {
	store store.Store
}

// NewGate creates a Gate reading input nodes from s.
func NewGate(s store.Store) *Gate {
	return &Gate{store: s}
}

// Check returns nil when n is pending or failed, valid, and every input
// node is completed. Otherwise it returns one NOT_READY error listing all
// unmet conditions. A missing input node counts as not completed.
func (g *Gate) Check(ctx context.Context, n *pipeline.Node) error {
	var reasons []string
	if !n.Status.Executable() {
		reasons = append(reasons, fmt.Sprintf("node is %s", n.Status))
	}
	if !n.IsValid {
		reasons = append(reasons, "node has validation errors: "+errors.FormatFieldErrors(n.ValidationErrors))
	}

	pending, err := g.pendingInputs(ctx, n)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		parts := make([]string, 0, len(pending))
		for _, id := range n.InputRefs() {
			if status, ok := pending[id]; ok {
				parts = append(parts, fmt.Sprintf("%s (%s)", id, status))
			}
		}
		reasons = append(reasons, "inputs not completed: "+strings.Join(parts, ", "))
	}

	if len(reasons) == 0 {
		return nil
	}
	validationErrors := n.ValidationErrors
	if validationErrors == nil {
		validationErrors = map[string]string{}
	}
	return errors.NotReady(n.ID, reasons).WithDetails(map[string]any{
		"validation_errors": validationErrors,
		"pending_inputs":    pending,
	})
}

// pendingInputs maps each referenced node that is not completed to its
// status, or "missing".
func (g *Gate) pendingInputs(ctx context.Context, n *pipeline.Node) (map[string]string, error) {
	pending := map[string]string{}
	refs := n.InputRefs()
	if len(refs) == 0 {
		return pending, nil
	}
	inputs, err := g.store.GetNodes(ctx, refs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*pipeline.Node, len(inputs))
	for _, in := range inputs {
		byID[in.ID] = in
	}
	for _, id := range refs {
		in, ok := byID[id]
		switch {
		case !ok:
			pending[id] = "missing"
		case in.Status != pipeline.StatusCompleted:
			pending[id] = string(in.Status)
		}
	}
	return pending, nil
}
