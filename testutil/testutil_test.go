package testutil_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kbukum/vidpipe/engine"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/testutil"
)

func TestSeqTokens(t *testing.T) {
	next := testutil.SeqTokens("T")
	if a, b := next(), next(); a != "T1" || b != "T2" {
		t.Errorf("tokens = %s, %s", a, b)
	}
}

func TestSigner(t *testing.T) {
	u, err := testutil.Signer{}.SignedURL(context.Background(), "out/a.mp4", time.Minute)
	if err != nil || u != "https://cdn.test/out/a.mp4?ttl=1m0s" {
		t.Errorf("url = %q, %v", u, err)
	}
	boom := errors.New("boom")
	if _, err := (testutil.Signer{Err: boom}).SignedURL(context.Background(), "k", time.Minute); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestStack_RunsAssetToCompletion(t *testing.T) {
	s := testutil.NewStack(t)
	ctx := context.Background()
	p, err := s.Engine.CreatePipeline(ctx, engine.PipelineInput{Title: "t"})
	if err != nil {
		t.Fatal(err)
	}
	n, err := s.Engine.CreateNode(ctx, p.ID, engine.NodeInput{
		Type:  "asset",
		Asset: map[string]any{"type": "image", "source": "img/logo.png"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Engine.Execute(ctx, n.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	s.Drain(t)

	got, err := s.Store.GetNode(ctx, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != pipeline.StatusCompleted || got.ProcessUUID() != "U1" {
		t.Errorf("node = %s token=%s", got.Status, got.ProcessUUID())
	}
	if len(s.Invoker.Calls()) != 0 || s.Invoker.LastToken() != "" {
		t.Error("asset nodes must not reach compute")
	}
}
