package callback_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/vidpipe/callback"
	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/lifecycle"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/store/memstore"
)

type fixture struct {
	store  *memstore.Store
	lc     *lifecycle.Manager
	router *callback.Router
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	if err := s.CreatePipeline(ctx, &pipeline.Pipeline{ID: "p1", Title: "episode"}); err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	n := &pipeline.Node{ID: "n1", PipelineID: "p1", Type: "mix-audio", Status: pipeline.StatusPending}
	n.EnsureDocuments()
	if err := s.CreateNode(ctx, n); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	var seq int
	lc := lifecycle.New(s, logger.Nop(), lifecycle.WithTokenSource(func() string {
		seq++
		return fmt.Sprintf("U%d", seq)
	}))
	return &fixture{store: s, lc: lc, router: callback.NewRouter(s, lc, logger.Nop(), nil)}
}

func (f *fixture) start(t *testing.T) string {
	t.Helper()
	token, err := f.lc.ExecutionStarted(context.Background(), "n1", nil)
	if err != nil {
		t.Fatalf("ExecutionStarted: %v", err)
	}
	return token
}

func (f *fixture) node(t *testing.T) *pipeline.Node {
	t.Helper()
	n, err := f.store.GetNode(context.Background(), "n1")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	return n
}

func TestHandle_Success(t *testing.T) {
	f := setup(t)
	token := f.start(t)

	n, err := f.router.Handle(context.Background(), callback.Callback{
		NodeID:       "n1",
		ExecutorType: "mix-audio",
		ProcessUUID:  token,
		Result:       map[string]any{"s3_key": "mixed.mp3", "duration": 12.5},
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if n.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %s", n.Status)
	}
	if n.Output["s3Key"] != "mixed.mp3" || n.Output["type"] != "audio" {
		t.Errorf("unexpected output %v", n.Output)
	}
}

func TestHandle_ErrorFailsNode(t *testing.T) {
	f := setup(t)
	f.start(t)

	// No process_uuid: the node's own token is used.
	n, err := f.router.Handle(context.Background(), callback.Callback{
		NodeID:    "n1",
		Error:     "codec not supported",
		ErrorType: "InvalidMedia",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if n.Status != pipeline.StatusFailed {
		t.Fatalf("expected failed, got %s", n.Status)
	}
	if n.Metadata[pipeline.MetaError] != "codec not supported" || n.Metadata[callback.MetaErrorType] != "InvalidMedia" {
		t.Errorf("unexpected metadata %v", n.Metadata)
	}
}

type countingNotifier struct{ ops []string }

func (c *countingNotifier) NodeChanged(_ context.Context, _ *pipeline.Node, op string) {
	c.ops = append(c.ops, op)
}

func TestHandle_ErrorTypeIsOneWrite(t *testing.T) {
	f := setup(t)
	rec := &countingNotifier{}
	f.lc = lifecycle.New(f.store, logger.Nop(), lifecycle.WithNotifier(rec))
	f.router = callback.NewRouter(f.store, f.lc, logger.Nop(), nil)
	token := f.start(t)

	if _, err := f.router.Handle(context.Background(), callback.Callback{
		NodeID:      "n1",
		ProcessUUID: token,
		Error:       "out of memory",
		ErrorType:   "ResourceExhausted",
	}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if fmt.Sprint(rec.ops) != "[started failed]" {
		t.Errorf("ops = %v, want one started and one failed", rec.ops)
	}
	if got := f.node(t).Metadata[callback.MetaErrorType]; got != "ResourceExhausted" {
		t.Errorf("error_type = %v", got)
	}
}

func TestHandle_Stale(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, f *fixture) string
	}{
		{"no execution", func(*testing.T, *fixture) string { return "" }},
		{"superseded token", func(t *testing.T, f *fixture) string {
			old := f.start(t)
			_, _ = f.lc.ExecutionFailed(context.Background(), "n1", "timeout", old)
			f.start(t)
			return old
		}},
		{"already completed", func(t *testing.T, f *fixture) string {
			token := f.start(t)
			_, _ = f.lc.ExecutionSucceeded(context.Background(), "n1", "mix-audio", map[string]any{"key": "a.mp3"}, token)
			return token
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t)
			token := tc.prepare(t, f)
			before := f.node(t)

			_, err := f.router.Handle(context.Background(), callback.Callback{
				NodeID:      "n1",
				ProcessUUID: token,
				Result:      map[string]any{"key": "late.mp3"},
			})
			if !errors.IsCode(err, errors.ErrCodeStaleCallback) {
				t.Fatalf("expected STALE_CALLBACK, got %v", err)
			}
			if appErr, _ := errors.AsAppError(err); appErr.HTTPStatus != 409 {
				t.Errorf("expected 409, got %d", appErr.HTTPStatus)
			}
			after := f.node(t)
			if after.Status != before.Status || after.Output["s3Key"] != before.Output["s3Key"] {
				t.Errorf("stale callback changed the node: %v -> %v", before, after)
			}
		})
	}
}

func TestHandle_UnknownNode(t *testing.T) {
	f := setup(t)
	_, err := f.router.Handle(context.Background(), callback.Callback{NodeID: "ghost"})
	if !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestHandleProgress(t *testing.T) {
	f := setup(t)
	token := f.start(t)
	ctx := context.Background()

	out, err := f.router.HandleProgress(ctx, callback.Progress{NodeID: "n1", ProcessUUID: token, Metadata: map[string]any{"progress": 40}})
	if err != nil || !out.Applied {
		t.Fatalf("expected applied progress, got %+v, %v", out, err)
	}
	if f.node(t).Metadata["progress"] != 40 {
		t.Errorf("expected progress 40, got %v", f.node(t).Metadata["progress"])
	}

	out, err = f.router.HandleProgress(ctx, callback.Progress{NodeID: "n1", ProcessUUID: "old", Metadata: map[string]any{"progress": 99}})
	if err != nil || out.Applied {
		t.Fatalf("expected silent no-op, got %+v, %v", out, err)
	}
	if f.node(t).Metadata["progress"] != 40 {
		t.Error("stale progress must not change metadata")
	}
}

func message(t *testing.T, v any) kafkago.Message {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return kafkago.Message{Value: b}
}

func TestMessageHandler(t *testing.T) {
	f := setup(t)
	token := f.start(t)
	h := f.router.MessageHandler()
	ctx := context.Background()

	if err := h(ctx, message(t, map[string]any{"kind": "progress", "node_id": "n1", "process_uuid": token, "metadata": map[string]any{"progress": 10}})); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if err := h(ctx, message(t, map[string]any{"node_id": "n1", "process_uuid": token, "result": map[string]any{"key": "a.mp3"}})); err != nil {
		t.Fatalf("completion: %v", err)
	}
	if f.node(t).Status != pipeline.StatusCompleted {
		t.Fatal("expected completed after completion message")
	}

	// Redelivery of the same message is stale and acknowledged.
	if err := h(ctx, message(t, map[string]any{"node_id": "n1", "process_uuid": token, "result": map[string]any{"key": "a.mp3"}})); err != nil {
		t.Errorf("stale redelivery must be dropped, got %v", err)
	}
	if err := h(ctx, kafkago.Message{Value: []byte("{not json")}); err == nil {
		t.Error("expected decode error")
	}
	if err := h(ctx, message(t, map[string]any{"result": map[string]any{}})); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected validation error for missing node_id, got %v", err)
	}
}
