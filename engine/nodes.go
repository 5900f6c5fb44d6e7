package engine

import (
	"context"
	"encoding/json"
	"reflect"

	"gorm.io/datatypes"

	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/validation"
)

// NodeInput creates a node. ID is optional.
type NodeInput struct {
	ID     string            `json:"id" validate:"omitempty,max=64"`
	Title  string            `json:"title" validate:"max=255"`
	Type   string            `json:"type" validate:"required"`
	Config datatypes.JSONMap `json:"config"`
	Inputs datatypes.JSONMap `json:"inputs"`
	Asset  datatypes.JSONMap `json:"asset"`
}

// NodePatch edits a node. Nil fields are left alone. Type may be sent
// but must match the node's type.
type NodePatch struct {
	Title  *string            `json:"title" validate:"omitempty,max=255"`
	Type   *string            `json:"type"`
	Config *datatypes.JSONMap `json:"config"`
	Inputs *datatypes.JSONMap `json:"inputs"`
	Asset  *datatypes.JSONMap `json:"asset"`
}

// CreateNode validates a new pending node against its siblings and
// stores it. Validation problems are recorded on the node, not returned.
func (e *Engine) CreateNode(ctx context.Context, pipelineID string, in NodeInput) (*pipeline.Node, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := e.store.GetPipeline(ctx, pipelineID); err != nil {
		return nil, err
	}
	siblings, err := e.store.ListNodes(ctx, pipelineID)
	if err != nil {
		return nil, err
	}

	n := &pipeline.Node{
		ID:         in.ID,
		PipelineID: pipelineID,
		Title:      in.Title,
		Type:       in.Type,
		Status:     pipeline.StatusPending,
		Config:     in.Config,
		Inputs:     in.Inputs,
		Asset:      in.Asset,
	}
	if n.ID == "" {
		n.ID = pipeline.NewID()
	}
	n.EnsureDocuments()
	e.validator.Apply(n, ids(siblings, ""))
	if err := e.store.CreateNode(ctx, n); err != nil {
		return nil, err
	}

	// Siblings that already pointed at this id were invalid until now.
	if err := e.revalidate(ctx, n.PipelineID, n.ID); err != nil {
		return nil, err
	}

	e.log.WithContext(ctx).Info("Node created", map[string]interface{}{
		logger.FieldNodeID:     n.ID,
		logger.FieldPipelineID: pipelineID,
		logger.FieldNodeType:   n.Type,
		"is_valid":             n.IsValid,
	})
	return n, nil
}

func (e *Engine) GetNode(ctx context.Context, id string) (*pipeline.Node, error) {
	return e.store.GetNode(ctx, id)
}

func (e *Engine) ListNodes(ctx context.Context, pipelineID string) ([]*pipeline.Node, error) {
	if _, err := e.store.GetPipeline(ctx, pipelineID); err != nil {
		return nil, err
	}
	return e.store.ListNodes(ctx, pipelineID)
}

// UpdateNode applies patch. A changed config or inputs resets the node to
// pending and drops its output; a changed asset only re-validates.
func (e *Engine) UpdateNode(ctx context.Context, id string, patch NodePatch) (*pipeline.Node, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}
	current, err := e.store.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Type != nil && *patch.Type != current.Type {
		return nil, errors.InvalidInput("type", "cannot be changed after creation")
	}
	siblings, err := e.store.ListNodes(ctx, current.PipelineID)
	if err != nil {
		return nil, err
	}
	siblingIDs := ids(siblings, id)

	var structural bool
	n, err := e.store.UpdateLocked(ctx, id, func(n *pipeline.Node) (bool, error) {
		n.EnsureDocuments()
		changed := false
		revalidate := false
		if patch.Title != nil && *patch.Title != n.Title {
			n.Title = *patch.Title
			changed = true
		}
		if patch.Config != nil && !sameDoc(n.Config, *patch.Config) {
			n.Config = emptyIfNil(*patch.Config)
			structural = true
		}
		if patch.Inputs != nil && !sameDoc(n.Inputs, *patch.Inputs) {
			n.Inputs = emptyIfNil(*patch.Inputs)
			structural = true
		}
		if patch.Asset != nil && !sameDoc(n.Asset, *patch.Asset) {
			n.Asset = *patch.Asset
			revalidate = true
		}
		if structural {
			n.Reset()
			revalidate = true
		}
		if revalidate {
			e.validator.Apply(n, siblingIDs)
			changed = true
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	if structural {
		e.log.WithContext(ctx).Info("Node reset after structural edit", map[string]interface{}{
			logger.FieldNodeID: id,
			"is_valid":         n.IsValid,
		})
	}
	return n, nil
}

// DeleteNode removes a node and strips its id from every sibling's inputs.
// Dependents are kept; losing an input is a structural edit, so each one
// is reset to pending and re-validated.
func (e *Engine) DeleteNode(ctx context.Context, id string) error {
	err := e.store.DeleteNode(ctx, id, func(sib *pipeline.Node, remaining []string) bool {
		sib.EnsureDocuments()
		if !sib.DetachInput(id) {
			return false
		}
		sib.Reset()
		e.validator.Apply(sib, without(remaining, sib.ID))
		return true
	})
	if err != nil {
		return err
	}
	e.log.WithContext(ctx).Info("Node deleted", map[string]interface{}{logger.FieldNodeID: id})
	return nil
}

// revalidate refreshes the cached validity of siblings that reference ref.
func (e *Engine) revalidate(ctx context.Context, pipelineID, ref string) error {
	nodes, err := e.store.ListNodes(ctx, pipelineID)
	if err != nil {
		return err
	}
	for _, sib := range nodes {
		if sib.ID == ref || !references(sib, ref) {
			continue
		}
		siblingIDs := ids(nodes, sib.ID)
		if _, err := e.store.UpdateLocked(ctx, sib.ID, func(n *pipeline.Node) (bool, error) {
			e.validator.Apply(n, siblingIDs)
			return true, nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func references(n *pipeline.Node, id string) bool {
	for _, ref := range n.InputRefs() {
		if ref == id {
			return true
		}
	}
	return false
}

// ids returns the ids of nodes, skipping exclude.
func ids(nodes []*pipeline.Node, exclude string) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.ID != exclude {
			out = append(out, n.ID)
		}
	}
	return out
}

func without(list []string, exclude string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != exclude {
			out = append(out, s)
		}
	}
	return out
}

// sameDoc compares documents by JSON value, so numbers read back from the
// database as json.Number equal the float64s of a request body.
func sameDoc(a, b datatypes.JSONMap) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(jsonValue(a), jsonValue(b))
}

func jsonValue(m datatypes.JSONMap) any {
	data, err := json.Marshal(map[string]any(m))
	if err != nil {
		return map[string]any(m)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return map[string]any(m)
	}
	return v
}
