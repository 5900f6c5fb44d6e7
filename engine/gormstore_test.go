package engine_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/datatypes"

	"github.com/kbukum/vidpipe/database"
	"github.com/kbukum/vidpipe/engine"
	"github.com/kbukum/vidpipe/executor"
	"github.com/kbukum/vidpipe/lifecycle"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/queue/memory"
	"github.com/kbukum/vidpipe/schema"
	"github.com/kbukum/vidpipe/store/gormstore"
	"github.com/kbukum/vidpipe/validation"
)

var dbSeq atomic.Int64

func newSQLEngine(t *testing.T) (*engine.Engine, *gormstore.Store) {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Driver:     database.DriverSQLite,
		DSN:        fmt.Sprintf("file:engine_%d?mode=memory&cache=shared&_foreign_keys=1", dbSeq.Add(1)),
		MaxRetries: 1,
		LogLevel:   "silent",
	}, logger.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.MigrateUp(ctx); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}

	st := gormstore.New(db)
	q := memory.New(16)
	t.Cleanup(func() { _ = q.Close() })
	eng := engine.New(engine.Deps{
		Store:     st,
		Validator: validation.New(schema.MustBuiltin()),
		Executors: executor.NewRegistry(),
		Queue:     q,
		Lifecycle: lifecycle.New(st, logger.Nop()),
		Logger:    logger.Nop(),
	})
	return eng, st
}

func jsonDoc(t *testing.T, raw string) datatypes.JSONMap {
	t.Helper()
	var m datatypes.JSONMap
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return m
}

// Numbers read back from SQL arrive as json.Number; a request body carrying
// the same values must not count as a change.
func TestUpdateNode_SQLNumericConfigUnchanged(t *testing.T) {
	eng, st := newSQLEngine(t)
	ctx := context.Background()

	p, err := eng.CreatePipeline(ctx, engine.PipelineInput{Title: "Episode 1"})
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	for _, in := range []engine.NodeInput{asset("a", "raw/a.mp4"), asset("b", "raw/b.mp4")} {
		if _, err := eng.CreateNode(ctx, p.ID, in); err != nil {
			t.Fatalf("CreateNode %s: %v", in.ID, err)
		}
	}
	m := merge("m", "a", "b")
	m.Config = jsonDoc(t, `{"provider":"ffmpeg","transition":"fade","transition_duration_ms":500}`)
	if _, err := eng.CreateNode(ctx, p.ID, m); err != nil {
		t.Fatalf("CreateNode m: %v", err)
	}
	if _, err := st.UpdateLocked(ctx, "m", func(n *pipeline.Node) (bool, error) {
		n.Status = pipeline.StatusCompleted
		n.Output = datatypes.JSONMap{"s3Key": "out/ab.mp4"}
		return true, nil
	}); err != nil {
		t.Fatalf("UpdateLocked: %v", err)
	}

	same := jsonDoc(t, `{"provider":"ffmpeg","transition":"fade","transition_duration_ms":500}`)
	n, err := eng.UpdateNode(ctx, "m", engine.NodePatch{Config: &same})
	if err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}
	if n.Status != pipeline.StatusCompleted || n.Output["s3Key"] != "out/ab.mp4" {
		t.Errorf("unchanged config reset node: status=%s output=%v", n.Status, n.Output)
	}

	changed := jsonDoc(t, `{"provider":"ffmpeg","transition":"fade","transition_duration_ms":750}`)
	n, err = eng.UpdateNode(ctx, "m", engine.NodePatch{Config: &changed})
	if err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}
	if n.Status != pipeline.StatusPending {
		t.Errorf("changed config: status=%s, want pending", n.Status)
	}
}
