package executor_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"gorm.io/datatypes"

	"github.com/kbukum/vidpipe/compute"
	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/executor"
	"github.com/kbukum/vidpipe/lifecycle"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/queue"
	"github.com/kbukum/vidpipe/store/memstore"
)

type recordingInvoker struct {
	mu    sync.Mutex
	calls []compute.Invocation
	err   error
}

func (r *recordingInvoker) Submit(_ context.Context, inv compute.Invocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, inv)
	return r.err
}

type fixture struct {
	store   *memstore.Store
	lc      *lifecycle.Manager
	invoker *recordingInvoker
	reg     *executor.Registry
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	if err := s.CreatePipeline(ctx, &pipeline.Pipeline{ID: "p1", Title: "episode"}); err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	nodes := []*pipeline.Node{
		{ID: "a1", PipelineID: "p1", Type: "asset", Status: pipeline.StatusCompleted,
			Asset:  datatypes.JSONMap{"type": "video", "source": "raw/intro.mp4"},
			Output: datatypes.JSONMap{"type": "video", "s3Key": "raw/intro.mp4"}},
		{ID: "a2", PipelineID: "p1", Type: "asset", Status: pipeline.StatusPending,
			Asset: datatypes.JSONMap{"type": "video", "source": "raw/outro.mp4"}},
		{ID: "m1", PipelineID: "p1", Type: "merge-videos", Status: pipeline.StatusPending,
			Config: datatypes.JSONMap{"provider": "ffmpeg"},
			Inputs: datatypes.JSONMap{"segments": []any{"a1", "a2"}}},
	}
	for _, n := range nodes {
		n.EnsureDocuments()
		if err := s.CreateNode(ctx, n); err != nil {
			t.Fatalf("CreateNode %s: %v", n.ID, err)
		}
	}

	lc := lifecycle.New(s, logger.Nop())
	inv := &recordingInvoker{}
	cfg := compute.Config{CallbackURL: "http://engine/api/v1/callbacks", Functions: map[string]string{"merge-videos": "merge-fn"}}
	return &fixture{
		store:   s,
		lc:      lc,
		invoker: inv,
		reg:     executor.NewBuiltin(cfg, inv, lc, s, logger.Nop()),
	}
}

func (f *fixture) node(t *testing.T, id string) *pipeline.Node {
	t.Helper()
	n, err := f.store.GetNode(context.Background(), id)
	if err != nil {
		t.Fatalf("GetNode %s: %v", id, err)
	}
	return n
}

func TestRegistry(t *testing.T) {
	f := setup(t)
	got := f.reg.Types()
	if len(got) != 2 || got[0] != "asset" || got[1] != "merge-videos" {
		t.Fatalf("unexpected types %v", got)
	}
	if f.reg.Has("compose-video") {
		t.Error("unconfigured type must have no executor")
	}
}

func TestCompute_SubmitsWithToken(t *testing.T) {
	f := setup(t)
	e, _ := f.reg.Get("merge-videos")
	if err := e.Execute(context.Background(), f.node(t, "m1")); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	n := f.node(t, "m1")
	if n.Status != pipeline.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", n.Status)
	}
	if n.Metadata[executor.MetaFunction] != "merge-fn" || n.Metadata[executor.MetaSubmittedAt] == nil {
		t.Errorf("expected submission metadata, got %v", n.Metadata)
	}

	if len(f.invoker.calls) != 1 {
		t.Fatalf("expected one submission, got %d", len(f.invoker.calls))
	}
	call := f.invoker.calls[0]
	if call.Function != "merge-fn" {
		t.Errorf("unexpected function %q", call.Function)
	}
	p := call.Payload
	if p["process_uuid"] != n.ProcessUUID() || p["node_id"] != "m1" || p["callback_url"] != "http://engine/api/v1/callbacks" {
		t.Errorf("unexpected payload %v", p)
	}
	videos, ok := p["inputs"].(map[string]any)["segments"].([]any)
	if !ok || len(videos) != 2 {
		t.Fatalf("expected two resolved videos, got %v", p["inputs"])
	}
	first := videos[0].(map[string]any)
	if first["node_id"] != "a1" || first["output"] == nil {
		t.Errorf("expected first input with output, got %v", first)
	}
	if second := videos[1].(map[string]any); second["node_id"] != "a2" || second["output"] != nil {
		t.Errorf("expected second input without output, got %v", second)
	}
}

func TestCompute_SubmissionFailurePropagates(t *testing.T) {
	f := setup(t)
	f.invoker.err = errors.SubmissionFailed("merge-fn", stderrors.New("status 500"))
	e, _ := f.reg.Get("merge-videos")

	err := e.Execute(context.Background(), f.node(t, "m1"))
	if !errors.IsCode(err, errors.ErrCodeSubmissionFailed) {
		t.Fatalf("expected SUBMISSION_FAILED, got %v", err)
	}
	n := f.node(t, "m1")
	if n.Status != pipeline.StatusInProgress {
		t.Errorf("node must stay as started, got %s", n.Status)
	}
	if n.Metadata[executor.MetaSubmitError] == nil {
		t.Error("expected submit_error recorded in metadata")
	}
}

func TestAsset_CompletesLocally(t *testing.T) {
	f := setup(t)
	e, _ := f.reg.Get("asset")
	if err := e.Execute(context.Background(), f.node(t, "a2")); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	n := f.node(t, "a2")
	if n.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %s", n.Status)
	}
	if n.Output["s3Key"] != "raw/outro.mp4" || n.Output["type"] != "video" {
		t.Errorf("unexpected output %v", n.Output)
	}
	if len(f.invoker.calls) != 0 {
		t.Error("asset nodes must not reach compute")
	}
}

func TestHandler(t *testing.T) {
	f := setup(t)
	h := executor.Handler(f.store, f.reg)

	if err := h(context.Background(), queue.Task{NodeID: "a2"}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if f.node(t, "a2").Status != pipeline.StatusCompleted {
		t.Error("expected asset to complete through the handler")
	}

	err := h(context.Background(), queue.Task{NodeID: "missing"})
	if !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND for missing node, got %v", err)
	}

	empty := executor.NewRegistry()
	err = executor.Handler(f.store, empty)(context.Background(), queue.Task{NodeID: "m1"})
	if !errors.IsCode(err, errors.ErrCodeNoExecutor) {
		t.Errorf("expected NO_EXECUTOR, got %v", err)
	}
}
