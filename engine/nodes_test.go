package engine_test

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"github.com/kbukum/vidpipe/engine"
	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/util"
)

func docPtr(d datatypes.JSONMap) *datatypes.JSONMap { return &d }

func TestPipelineCRUD(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()

	if _, err := v.engine.CreatePipeline(ctx, engine.PipelineInput{}); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for missing title, got %v", err)
	}

	p, err := v.engine.UpdatePipeline(ctx, v.pipeID, engine.PipelinePatch{Title: util.Ptr("Episode 1 (final)")})
	if err != nil {
		t.Fatalf("UpdatePipeline: %v", err)
	}
	if p.Version != 2 || p.Title != "Episode 1 (final)" {
		t.Errorf("expected version 2 with new title, got %d %q", p.Version, p.Title)
	}

	v.create(t, asset("a", "raw/a.mp4"))
	if err := v.engine.DeletePipeline(ctx, v.pipeID); err != nil {
		t.Fatalf("DeletePipeline: %v", err)
	}
	if _, err := v.store.GetNode(ctx, "a"); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("nodes must be deleted with their pipeline, got %v", err)
	}
	if _, err := v.engine.ListNodes(ctx, v.pipeID); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestCreateNode(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()

	if _, err := v.engine.CreateNode(ctx, "nope", asset("a", "x")); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND for unknown pipeline, got %v", err)
	}
	if _, err := v.engine.CreateNode(ctx, v.pipeID, engine.NodeInput{}); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for missing type, got %v", err)
	}

	unknown := v.create(t, engine.NodeInput{Type: "render-3d"})
	if unknown.IsValid || unknown.ValidationErrors["type"] != "Unknown node type: render-3d" {
		t.Errorf("unexpected validation %v", unknown.ValidationErrors)
	}
	if unknown.Status != pipeline.StatusPending || unknown.ID == "" {
		t.Errorf("expected pending node with generated id, got %+v", unknown)
	}
}

func TestCreateNode_RevalidatesDependents(t *testing.T) {
	v := newEnv(t)
	v.create(t, asset("a", "raw/a.mp4"))

	m := v.create(t, merge("m", "a", "b"))
	if m.IsValid {
		t.Fatal("expected dangling reference to b")
	}
	v.create(t, asset("b", "raw/b.mp4"))
	if m := v.get(t, "m"); !m.IsValid {
		t.Errorf("expected m valid once b exists, got %v", m.ValidationErrors)
	}
}

func TestUpdateNode(t *testing.T) {
	v := newEnv(t)
	v.completeAssets(t)
	ctx := context.Background()
	v.create(t, merge("m", "a", "b"))

	// Complete m so resets are observable.
	token, _ := v.lc.ExecutionStarted(ctx, "m", nil)
	if _, err := v.lc.ExecutionSucceeded(ctx, "m", "merge-videos", map[string]any{"s3Key": "m.mp4"}, token); err != nil {
		t.Fatal(err)
	}

	n, err := v.engine.UpdateNode(ctx, "m", engine.NodePatch{Title: util.Ptr("Intro + outro")})
	if err != nil {
		t.Fatalf("title edit: %v", err)
	}
	if n.Status != pipeline.StatusCompleted || n.Output["s3Key"] != "m.mp4" {
		t.Errorf("title edit must not reset, got %s %v", n.Status, n.Output)
	}

	if _, err := v.engine.UpdateNode(ctx, "m", engine.NodePatch{Type: util.Ptr("mix-audio")}); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for type change, got %v", err)
	}
	if _, err := v.engine.UpdateNode(ctx, "m", engine.NodePatch{Type: util.Ptr("merge-videos")}); err != nil {
		t.Errorf("same type must be accepted, got %v", err)
	}

	n, err = v.engine.UpdateNode(ctx, "m", engine.NodePatch{Inputs: docPtr(datatypes.JSONMap{"segments": []any{"b", "a"}})})
	if err != nil {
		t.Fatalf("inputs edit: %v", err)
	}
	if n.Status != pipeline.StatusPending || len(n.Output) != 0 || !n.IsValid {
		t.Errorf("expected reset valid node, got %s %v %v", n.Status, n.Output, n.ValidationErrors)
	}

	n, err = v.engine.UpdateNode(ctx, "m", engine.NodePatch{Config: docPtr(datatypes.JSONMap{"provider": "remotion"})})
	if err != nil {
		t.Fatal(err)
	}
	if n.IsValid || n.ValidationErrors["provider"] == "" {
		t.Errorf("expected provider error after config edit, got %v", n.ValidationErrors)
	}
}

func TestUpdateNode_AssetRevalidatesWithoutReset(t *testing.T) {
	v := newEnv(t)
	v.completeAssets(t)
	n, err := v.engine.UpdateNode(context.Background(), "a", engine.NodePatch{
		Asset: docPtr(datatypes.JSONMap{"type": "video", "source": "raw/a-v2.mp4"}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if n.Status != pipeline.StatusCompleted || n.Asset["source"] != "raw/a-v2.mp4" {
		t.Errorf("asset edit must keep status, got %s %v", n.Status, n.Asset)
	}
}

func TestDeleteNode_Detaches(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()
	v.create(t, asset("a", "raw/a.mp4"))
	v.create(t, asset("b", "raw/b.mp4"))
	v.create(t, asset("c", "raw/c.mp4"))
	v.create(t, merge("m", "a", "b", "c"))
	v.create(t, engine.NodeInput{
		ID:     "th",
		Type:   "generate-talking-head",
		Config: datatypes.JSONMap{"provider": "heygen", "avatar_id": "av1"},
		Inputs: datatypes.JSONMap{"audio": "b"},
	})

	if err := v.engine.DeleteNode(ctx, "b"); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	m := v.get(t, "m")
	segs, _ := pipeline.AsSlice(m.Inputs["segments"])
	if len(segs) != 2 || segs[0] != "a" || segs[1] != "c" {
		t.Errorf("expected [a c], got %v", segs)
	}
	if !m.IsValid {
		t.Errorf("m still has two segments, got %v", m.ValidationErrors)
	}

	th := v.get(t, "th")
	if _, ok := th.Inputs["audio"]; ok {
		t.Error("single slot must be cleared")
	}
	if th.IsValid || th.ValidationErrors["audio"] != "is required for generate-talking-head nodes" {
		t.Errorf("expected required audio error, got %v", th.ValidationErrors)
	}
}

func TestDeleteNode_ResetsCompletedDependent(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()
	v.create(t, asset("a", "raw/a.mp4"))
	v.create(t, asset("b", "raw/b.mp4"))
	v.create(t, asset("c", "raw/c.mp4"))
	v.create(t, merge("m", "a", "b"))
	_, _ = v.store.UpdateLocked(ctx, "m", func(n *pipeline.Node) (bool, error) {
		n.Status = pipeline.StatusCompleted
		n.Output = datatypes.JSONMap{"s3Key": "out/ab.mp4"}
		return true, nil
	})
	_, _ = v.store.UpdateLocked(ctx, "c", func(n *pipeline.Node) (bool, error) {
		n.Status = pipeline.StatusCompleted
		n.Output = datatypes.JSONMap{"s3Key": "raw/c.mp4"}
		return true, nil
	})

	if err := v.engine.DeleteNode(ctx, "b"); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	if m := v.get(t, "m"); m.Status != pipeline.StatusPending || len(m.Output) != 0 {
		t.Errorf("dependent not reset: status=%s output=%v", m.Status, m.Output)
	}
	if c := v.get(t, "c"); c.Status != pipeline.StatusCompleted {
		t.Errorf("unrelated node touched: status=%s", c.Status)
	}
}

func TestPlan(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()
	v.create(t, asset("a", "raw/a.mp4"))
	v.create(t, asset("b", "raw/b.mp4"))
	v.create(t, merge("m", "a", "b"))

	plan, err := v.engine.Plan(ctx, v.pipeID)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Levels) != 2 || len(plan.Levels[0]) != 2 || plan.Levels[1][0] != "m" {
		t.Errorf("unexpected levels %v", plan.Levels)
	}

	// a -> m -> a
	if _, err := v.engine.UpdateNode(ctx, "a", engine.NodePatch{Inputs: docPtr(datatypes.JSONMap{"src": "m"})}); err != nil {
		t.Fatal(err)
	}
	if _, err := v.engine.Plan(ctx, v.pipeID); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected cycle error, got %v", err)
	}
}
