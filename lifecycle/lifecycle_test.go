package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/store/memstore"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *memstore.Store
	mgr   *Manager
	node  *pipeline.Node
}

func setup(t *testing.T, status pipeline.Status) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	if err := s.CreatePipeline(ctx, &pipeline.Pipeline{ID: "p1", Title: "ep"}); err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	n := &pipeline.Node{ID: "n1", PipelineID: "p1", Type: "merge-videos", Status: status}
	n.EnsureDocuments()
	if err := s.CreateNode(ctx, n); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	var seq int
	mgr := New(s, logger.Nop(),
		WithClock(func() time.Time { return fixedNow }),
		WithTokenSource(func() string { seq++; return fmt.Sprintf("U%d", seq) }),
	)
	return &fixture{store: s, mgr: mgr, node: n}
}

func (f *fixture) get(t *testing.T) *pipeline.Node {
	t.Helper()
	n, err := f.store.GetNode(context.Background(), f.node.ID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	return n
}

func TestExecutionStarted(t *testing.T) {
	for _, status := range []pipeline.Status{pipeline.StatusPending, pipeline.StatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			f := setup(t, status)
			ctx := context.Background()
			_, _ = f.store.UpdateLocked(ctx, "n1", func(n *pipeline.Node) (bool, error) {
				n.Metadata[pipeline.MetaError] = "old failure"
				n.Metadata[pipeline.MetaErrorType] = "Timeout"
				n.Metadata[pipeline.MetaSubmitError] = "connection refused"
				n.Metadata[pipeline.MetaCompletedAt] = "earlier"
				return true, nil
			})

			token, err := f.mgr.ExecutionStarted(ctx, "n1", map[string]any{
				"function":               "merge",
				pipeline.MetaProcessUUID: "forged",
			})
			if err != nil {
				t.Fatalf("ExecutionStarted: %v", err)
			}
			if token != "U1" {
				t.Errorf("expected token U1, got %q", token)
			}

			n := f.get(t)
			if n.Status != pipeline.StatusInProgress {
				t.Errorf("expected in_progress, got %s", n.Status)
			}
			if n.ProcessUUID() != "U1" {
				t.Errorf("expected extra metadata not to override token, got %q", n.ProcessUUID())
			}
			if n.Metadata["function"] != "merge" {
				t.Errorf("expected extra metadata merged, got %v", n.Metadata)
			}
			if n.Metadata[pipeline.MetaStartedAt] != fixedNow.Format(time.RFC3339Nano) {
				t.Errorf("unexpected started_at %v", n.Metadata[pipeline.MetaStartedAt])
			}
			for _, k := range []string{pipeline.MetaError, pipeline.MetaErrorType, pipeline.MetaSubmitError, pipeline.MetaCompletedAt} {
				if _, ok := n.Metadata[k]; ok {
					t.Errorf("expected previous %s to be cleared", k)
				}
			}
		})
	}

	t.Run("completed node is refused", func(t *testing.T) {
		f := setup(t, pipeline.StatusCompleted)
		_, err := f.mgr.ExecutionStarted(context.Background(), "n1", nil)
		if !errors.IsCode(err, errors.ErrCodeConflict) {
			t.Fatalf("expected CONFLICT, got %v", err)
		}
		if f.get(t).Status != pipeline.StatusCompleted {
			t.Error("expected completed node untouched")
		}
	})

	t.Run("missing node", func(t *testing.T) {
		f := setup(t, pipeline.StatusPending)
		if _, err := f.mgr.ExecutionStarted(context.Background(), "nope", nil); !errors.IsCode(err, errors.ErrCodeNotFound) {
			t.Errorf("expected NOT_FOUND, got %v", err)
		}
	})
}

func TestExecutionSucceeded(t *testing.T) {
	f := setup(t, pipeline.StatusPending)
	ctx := context.Background()
	token, _ := f.mgr.ExecutionStarted(ctx, "n1", map[string]any{"progress": 10})

	out, err := f.mgr.ExecutionSucceeded(ctx, "n1", "merge-videos", map[string]any{
		"s3_key":   "renders/final.mp4",
		"duration": 12.5,
	}, token)
	if err != nil {
		t.Fatalf("ExecutionSucceeded: %v", err)
	}
	if !out.Applied {
		t.Fatal("expected current token to apply")
	}

	n := f.get(t)
	if n.Status != pipeline.StatusCompleted {
		t.Errorf("expected completed, got %s", n.Status)
	}
	if n.Output["type"] != "video" || n.Output["s3Key"] != "renders/final.mp4" {
		t.Errorf("unexpected output %v", n.Output)
	}
	if size, _ := pipeline.AsFloat(n.Output["size"]); size != 0 {
		t.Errorf("expected size default 0, got %v", n.Output["size"])
	}
	if n.Metadata[pipeline.MetaCompletedAt] == nil || n.Metadata["progress"] != 10 {
		t.Errorf("expected completed_at set and other metadata kept, got %v", n.Metadata)
	}

	again, err := f.mgr.ExecutionSucceeded(ctx, "n1", "merge-videos", map[string]any{"s3Key": "dup.mp4"}, token)
	if err != nil {
		t.Fatalf("duplicate ExecutionSucceeded: %v", err)
	}
	if again.Applied {
		t.Error("expected duplicate delivery on a completed node to be a no-op")
	}
	if f.get(t).Output["s3Key"] != "renders/final.mp4" {
		t.Error("expected duplicate delivery not to overwrite output")
	}
}

func TestExecutionFailed(t *testing.T) {
	t.Run("current token fails the node", func(t *testing.T) {
		f := setup(t, pipeline.StatusPending)
		ctx := context.Background()
		token, _ := f.mgr.ExecutionStarted(ctx, "n1", nil)
		out, err := f.mgr.ExecutionFailed(ctx, "n1", "encoder crashed", token)
		if err != nil || !out.Applied {
			t.Fatalf("expected applied failure, got %+v %v", out, err)
		}
		n := f.get(t)
		if n.Status != pipeline.StatusFailed || n.Metadata[pipeline.MetaError] != "encoder crashed" {
			t.Errorf("unexpected node %s %v", n.Status, n.Metadata)
		}
	})

	t.Run("empty token is stale when node has a token", func(t *testing.T) {
		f := setup(t, pipeline.StatusPending)
		ctx := context.Background()
		_, _ = f.mgr.ExecutionStarted(ctx, "n1", nil)
		out, err := f.mgr.ExecutionFailed(ctx, "n1", "ghost", "")
		if err != nil || out.Applied {
			t.Fatalf("expected no-op, got %+v %v", out, err)
		}
		if f.get(t).Status != pipeline.StatusInProgress {
			t.Error("expected node to stay in_progress")
		}
	})

	t.Run("empty token on a never-started node", func(t *testing.T) {
		f := setup(t, pipeline.StatusPending)
		out, err := f.mgr.ExecutionFailed(context.Background(), "n1", "ghost", "")
		if err != nil || out.Applied {
			t.Fatalf("expected no-op, got %+v %v", out, err)
		}
		if f.get(t).Status != pipeline.StatusPending {
			t.Error("expected node to stay pending")
		}
	})
}

func TestExecutionFailedWith_SingleWrite(t *testing.T) {
	f := setup(t, pipeline.StatusPending)
	rec := &recordingNotifier{}
	f.mgr.notifier = rec
	ctx := context.Background()
	token, _ := f.mgr.ExecutionStarted(ctx, "n1", nil)

	out, err := f.mgr.ExecutionFailedWith(ctx, "n1", "codec not supported", map[string]any{
		pipeline.MetaErrorType:   "InvalidMedia",
		pipeline.MetaProcessUUID: "forged",
	}, token)
	if err != nil || !out.Applied {
		t.Fatalf("expected applied failure, got %+v %v", out, err)
	}

	n := f.get(t)
	if n.Status != pipeline.StatusFailed || n.Metadata[pipeline.MetaErrorType] != "InvalidMedia" {
		t.Errorf("unexpected node %s %v", n.Status, n.Metadata)
	}
	if n.ProcessUUID() != token {
		t.Errorf("expected extra not to override token, got %q", n.ProcessUUID())
	}
	want := []string{"started:in_progress", "failed:failed"}
	if fmt.Sprint(rec.ops) != fmt.Sprint(want) {
		t.Errorf("ops = %v, want %v", rec.ops, want)
	}
}

// A current token only finalizes an in_progress node. Once the attempt was
// failed, or the node was reset by a structural edit, it changes nothing.
func TestFinalizers_CurrentTokenOutsideInProgress(t *testing.T) {
	t.Run("failed node", func(t *testing.T) {
		f := setup(t, pipeline.StatusPending)
		ctx := context.Background()
		token, _ := f.mgr.ExecutionStarted(ctx, "n1", nil)
		_, _ = f.mgr.ExecutionFailed(ctx, "n1", "cancelled by operator", token)

		out, err := f.mgr.ExecutionSucceeded(ctx, "n1", "merge-videos", map[string]any{"s3Key": "late.mp4"}, token)
		if err != nil {
			t.Fatalf("ExecutionSucceeded: %v", err)
		}
		n := f.get(t)
		if out.Applied || n.Status != pipeline.StatusFailed || len(n.Output) != 0 {
			t.Errorf("expected no-op, got applied=%v status=%s output=%v", out.Applied, n.Status, n.Output)
		}
	})

	t.Run("reset node", func(t *testing.T) {
		f := setup(t, pipeline.StatusPending)
		ctx := context.Background()
		token, _ := f.mgr.ExecutionStarted(ctx, "n1", nil)
		_, _ = f.store.UpdateLocked(ctx, "n1", func(n *pipeline.Node) (bool, error) {
			n.Reset()
			return true, nil
		})

		out, err := f.mgr.ExecutionFailed(ctx, "n1", "late", token)
		if err != nil {
			t.Fatalf("ExecutionFailed: %v", err)
		}
		if out.Applied || f.get(t).Status != pipeline.StatusPending {
			t.Errorf("expected reset node to stay pending, got applied=%v", out.Applied)
		}
	})
}

func TestExecutionUpdated(t *testing.T) {
	f := setup(t, pipeline.StatusPending)
	ctx := context.Background()
	token, _ := f.mgr.ExecutionStarted(ctx, "n1", nil)

	out, err := f.mgr.ExecutionUpdated(ctx, "n1", map[string]any{
		"progress":               50,
		pipeline.MetaProcessUUID: "hijack",
	}, token)
	if err != nil || !out.Applied {
		t.Fatalf("expected applied update, got %+v %v", out, err)
	}
	n := f.get(t)
	if n.Metadata["progress"] != 50 || n.ProcessUUID() != token {
		t.Errorf("unexpected metadata %v", n.Metadata)
	}
	if n.Status != pipeline.StatusInProgress {
		t.Errorf("expected update not to change status, got %s", n.Status)
	}

	stale, _ := f.mgr.ExecutionUpdated(ctx, "n1", map[string]any{"progress": 99}, "other")
	if stale.Applied || f.get(t).Metadata["progress"] != 50 {
		t.Error("expected stale update to be ignored")
	}
}

// Scenario C: a superseded token cannot finalize or touch the node.
func TestTokenMonotonicity(t *testing.T) {
	f := setup(t, pipeline.StatusPending)
	ctx := context.Background()
	u1, _ := f.mgr.ExecutionStarted(ctx, "n1", nil)
	u2, _ := f.mgr.ExecutionStarted(ctx, "n1", map[string]any{"attempt": 2})
	if u1 == u2 {
		t.Fatal("expected distinct tokens")
	}
	before := f.get(t)

	calls := map[string]func() (Outcome, error){
		"succeeded": func() (Outcome, error) {
			return f.mgr.ExecutionSucceeded(ctx, "n1", "merge-videos", map[string]any{"s3Key": "old.mp4"}, u1)
		},
		"failed":  func() (Outcome, error) { return f.mgr.ExecutionFailed(ctx, "n1", "old attempt died", u1) },
		"updated": func() (Outcome, error) { return f.mgr.ExecutionUpdated(ctx, "n1", map[string]any{"attempt": 1}, u1) },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			out, err := call()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Applied {
				t.Error("expected superseded token to be a no-op")
			}
			n := f.get(t)
			if n.Status != pipeline.StatusInProgress || n.ProcessUUID() != u2 {
				t.Errorf("expected in_progress with %s, got %s with %s", u2, n.Status, n.ProcessUUID())
			}
			if n.Metadata["attempt"] != before.Metadata["attempt"] || len(n.Output) != 0 {
				t.Errorf("expected T2 state untouched, got metadata=%v output=%v", n.Metadata, n.Output)
			}
		})
	}
}

func TestConcurrentFinalizers_OneWins(t *testing.T) {
	f := setup(t, pipeline.StatusPending)
	ctx := context.Background()
	token, _ := f.mgr.ExecutionStarted(ctx, "n1", nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out Outcome
			if i%2 == 0 {
				out, _ = f.mgr.ExecutionSucceeded(ctx, "n1", "merge-videos", map[string]any{"s3Key": fmt.Sprintf("k%d", i)}, token)
			} else {
				out, _ = f.mgr.ExecutionFailed(ctx, "n1", "boom", token)
			}
			if out.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if applied != 1 {
		t.Errorf("expected exactly one finalizer to apply, got %d", applied)
	}
}

type recordingNotifier struct {
	mu  sync.Mutex
	ops []string
}

func (r *recordingNotifier) NodeChanged(_ context.Context, n *pipeline.Node, op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op+":"+string(n.Status))
}

func TestNotifier_OnlyAppliedOperations(t *testing.T) {
	f := setup(t, pipeline.StatusPending)
	rec := &recordingNotifier{}
	f.mgr.notifier = rec
	ctx := context.Background()

	token, err := f.mgr.ExecutionStarted(ctx, "n1", nil)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.mgr.ExecutionUpdated(ctx, "n1", map[string]any{"percent": 10}, token)
	_, _ = f.mgr.ExecutionUpdated(ctx, "n1", map[string]any{"percent": 99}, "stale")
	_, _ = f.mgr.ExecutionSucceeded(ctx, "n1", "merge-videos", map[string]any{"s3Key": "a.mp4"}, token)
	_, _ = f.mgr.ExecutionFailed(ctx, "n1", "late", token)

	want := []string{"started:in_progress", "updated:in_progress", "succeeded:completed"}
	if fmt.Sprint(rec.ops) != fmt.Sprint(want) {
		t.Errorf("ops = %v, want %v", rec.ops, want)
	}
}
