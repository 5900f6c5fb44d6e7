package engine

import (
	"context"

	"gorm.io/datatypes"

	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/validation"
)

// PipelineInput creates a pipeline.
type PipelineInput struct {
	Title    string            `json:"title" validate:"required,max=255"`
	Config   datatypes.JSONMap `json:"config"`
	Metadata datatypes.JSONMap `json:"metadata"`
}

// PipelinePatch edits a pipeline. Nil fields are left alone.
type PipelinePatch struct {
	Title    *string            `json:"title" validate:"omitempty,min=1,max=255"`
	Config   *datatypes.JSONMap `json:"config"`
	Metadata *datatypes.JSONMap `json:"metadata"`
}

// CreatePipeline stores a new pipeline at version 1.
func (e *Engine) CreatePipeline(ctx context.Context, in PipelineInput) (*pipeline.Pipeline, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	p := &pipeline.Pipeline{
		ID:       pipeline.NewID(),
		Title:    in.Title,
		Version:  1,
		Config:   emptyIfNil(in.Config),
		Metadata: emptyIfNil(in.Metadata),
	}
	if err := e.store.CreatePipeline(ctx, p); err != nil {
		return nil, err
	}
	e.log.WithContext(ctx).Info("Pipeline created", map[string]interface{}{logger.FieldPipelineID: p.ID})
	return p, nil
}

func (e *Engine) GetPipeline(ctx context.Context, id string) (*pipeline.Pipeline, error) {
	return e.store.GetPipeline(ctx, id)
}

func (e *Engine) ListPipelines(ctx context.Context) ([]*pipeline.Pipeline, error) {
	return e.store.ListPipelines(ctx)
}

// UpdatePipeline applies patch and bumps the version.
func (e *Engine) UpdatePipeline(ctx context.Context, id string, patch PipelinePatch) (*pipeline.Pipeline, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}
	return e.store.UpdatePipeline(ctx, id, func(p *pipeline.Pipeline) error {
		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Config != nil {
			p.Config = emptyIfNil(*patch.Config)
		}
		if patch.Metadata != nil {
			p.Metadata = emptyIfNil(*patch.Metadata)
		}
		p.Version++
		return nil
	})
}

// DeletePipeline removes a pipeline and its nodes.
func (e *Engine) DeletePipeline(ctx context.Context, id string) error {
	if err := e.store.DeletePipeline(ctx, id); err != nil {
		return err
	}
	e.log.WithContext(ctx).Info("Pipeline deleted", map[string]interface{}{logger.FieldPipelineID: id})
	return nil
}

// Plan groups the pipeline's nodes into execution levels.
func (e *Engine) Plan(ctx context.Context, id string) (*pipeline.Plan, error) {
	if _, err := e.store.GetPipeline(ctx, id); err != nil {
		return nil, err
	}
	nodes, err := e.store.ListNodes(ctx, id)
	if err != nil {
		return nil, err
	}
	levels, err := pipeline.BuildLevels(nodes)
	if err != nil {
		return nil, errors.Validation(err.Error())
	}
	if levels == nil {
		levels = [][]string{}
	}
	return &pipeline.Plan{PipelineID: id, Levels: levels}, nil
}

func emptyIfNil(m datatypes.JSONMap) datatypes.JSONMap {
	if m == nil {
		return datatypes.JSONMap{}
	}
	return m
}
