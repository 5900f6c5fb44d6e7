// Package storetest is a behavioural test suite shared by store.Store
// implementations.
package storetest

import (
	"context"
	"sync"
	"testing"

	"gorm.io/datatypes"

	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run executes the contract suite against the stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"pipeline crud", testPipelineCRUD},
		{"delete pipeline cascades", testDeletePipelineCascades},
		{"create node requires pipeline", testCreateNodeRequiresPipeline},
		{"list nodes in creation order", testListNodesOrder},
		{"get nodes skips missing", testGetNodes},
		{"update locked persists", testUpdateLockedPersists},
		{"update locked without save", testUpdateLockedNoSave},
		{"update locked error aborts", testUpdateLockedError},
		{"update locked serializes", testUpdateLockedSerializes},
		{"delete node detaches siblings", testDeleteNodeDetaches},
		{"delete missing node", testDeleteMissingNode},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func seedPipeline(t *testing.T, s store.Store) *pipeline.Pipeline {
	t.Helper()
	p := &pipeline.Pipeline{
		ID:       pipeline.NewID(),
		Title:    "episode",
		Version:  1,
		Config:   datatypes.JSONMap{},
		Metadata: datatypes.JSONMap{},
	}
	if err := s.CreatePipeline(context.Background(), p); err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	return p
}

func seedNode(t *testing.T, s store.Store, pipelineID, typ string, inputs datatypes.JSONMap) *pipeline.Node {
	t.Helper()
	n := &pipeline.Node{
		ID:         pipeline.NewID(),
		PipelineID: pipelineID,
		Title:      typ,
		Type:       typ,
		Status:     pipeline.StatusPending,
		Inputs:     inputs,
	}
	n.EnsureDocuments()
	if err := s.CreateNode(context.Background(), n); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	return n
}

func testPipelineCRUD(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := seedPipeline(t, s)

	got, err := s.GetPipeline(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}
	if got.Title != "episode" || got.Version != 1 {
		t.Errorf("unexpected pipeline %+v", got)
	}

	updated, err := s.UpdatePipeline(ctx, p.ID, func(p *pipeline.Pipeline) error {
		p.Title = "renamed"
		p.Version++
		return nil
	})
	if err != nil {
		t.Fatalf("UpdatePipeline: %v", err)
	}
	if updated.Title != "renamed" || updated.Version != 2 {
		t.Errorf("unexpected update result %+v", updated)
	}

	list, err := s.ListPipelines(ctx)
	if err != nil {
		t.Fatalf("ListPipelines: %v", err)
	}
	if len(list) != 1 || list[0].Title != "renamed" {
		t.Errorf("unexpected list %+v", list)
	}

	if _, err := s.GetPipeline(ctx, "missing"); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if _, err := s.UpdatePipeline(ctx, "missing", func(*pipeline.Pipeline) error { return nil }); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND on update, got %v", err)
	}
}

func testDeletePipelineCascades(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := seedPipeline(t, s)
	other := seedPipeline(t, s)
	a := seedNode(t, s, p.ID, "asset", nil)
	kept := seedNode(t, s, other.ID, "asset", nil)

	if err := s.DeletePipeline(ctx, p.ID); err != nil {
		t.Fatalf("DeletePipeline: %v", err)
	}
	if _, err := s.GetNode(ctx, a.ID); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected node to be deleted with its pipeline, got %v", err)
	}
	if _, err := s.GetNode(ctx, kept.ID); err != nil {
		t.Errorf("expected other pipeline's node to survive, got %v", err)
	}
	if err := s.DeletePipeline(ctx, p.ID); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND deleting twice, got %v", err)
	}
}

func testCreateNodeRequiresPipeline(t *testing.T, s store.Store) {
	n := &pipeline.Node{ID: pipeline.NewID(), PipelineID: "missing", Type: "asset", Status: pipeline.StatusPending}
	n.EnsureDocuments()
	if err := s.CreateNode(context.Background(), n); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func testListNodesOrder(t *testing.T, s store.Store) {
	p := seedPipeline(t, s)
	var want []string
	for i := 0; i < 4; i++ {
		want = append(want, seedNode(t, s, p.ID, "asset", nil).ID)
	}

	nodes, err := s.ListNodes(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	if len(nodes) != len(want) {
		t.Fatalf("expected %d nodes, got %d", len(want), len(nodes))
	}
	for i, n := range nodes {
		if n.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], n.ID)
		}
	}
}

func testGetNodes(t *testing.T, s store.Store) {
	p := seedPipeline(t, s)
	a := seedNode(t, s, p.ID, "asset", nil)
	b := seedNode(t, s, p.ID, "asset", nil)

	nodes, err := s.GetNodes(context.Background(), []string{a.ID, "missing", b.ID})
	if err != nil {
		t.Fatalf("GetNodes: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("expected 2 nodes, got %d", len(nodes))
	}
}

func testUpdateLockedPersists(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := seedPipeline(t, s)
	n := seedNode(t, s, p.ID, "merge-videos", nil)

	out, err := s.UpdateLocked(ctx, n.ID, func(n *pipeline.Node) (bool, error) {
		n.Status = pipeline.StatusInProgress
		n.Metadata[pipeline.MetaProcessUUID] = "token-1"
		return true, nil
	})
	if err != nil {
		t.Fatalf("UpdateLocked: %v", err)
	}
	if out.Status != pipeline.StatusInProgress {
		t.Errorf("expected returned node in_progress, got %s", out.Status)
	}

	got, err := s.GetNode(ctx, n.ID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got.Status != pipeline.StatusInProgress || got.ProcessUUID() != "token-1" {
		t.Errorf("expected persisted change, got status=%s token=%q", got.Status, got.ProcessUUID())
	}
}

func testUpdateLockedNoSave(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := seedPipeline(t, s)
	n := seedNode(t, s, p.ID, "asset", nil)

	if _, err := s.UpdateLocked(ctx, n.ID, func(n *pipeline.Node) (bool, error) {
		n.Status = pipeline.StatusFailed
		return false, nil
	}); err != nil {
		t.Fatalf("UpdateLocked: %v", err)
	}

	got, _ := s.GetNode(ctx, n.ID)
	if got.Status != pipeline.StatusPending {
		t.Errorf("expected unsaved change to be discarded, got %s", got.Status)
	}
}

func testUpdateLockedError(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := seedPipeline(t, s)
	n := seedNode(t, s, p.ID, "asset", nil)

	_, err := s.UpdateLocked(ctx, n.ID, func(n *pipeline.Node) (bool, error) {
		n.Status = pipeline.StatusFailed
		return true, errors.Conflict("nope")
	})
	if !errors.IsCode(err, errors.ErrCodeConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	got, _ := s.GetNode(ctx, n.ID)
	if got.Status != pipeline.StatusPending {
		t.Errorf("expected rollback, got %s", got.Status)
	}

	if _, err := s.UpdateLocked(ctx, "missing", func(*pipeline.Node) (bool, error) { return true, nil }); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

// Concurrent read-modify-write of a counter loses no increments.
func testUpdateLockedSerializes(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := seedPipeline(t, s)
	n := seedNode(t, s, p.ID, "asset", nil)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateLocked(ctx, n.ID, func(n *pipeline.Node) (bool, error) {
				count, _ := pipeline.AsFloat(n.Metadata["count"])
				n.Metadata["count"] = int(count) + 1
				return true, nil
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("UpdateLocked: %v", err)
	}

	got, _ := s.GetNode(ctx, n.ID)
	if count, _ := pipeline.AsFloat(got.Metadata["count"]); count != workers {
		t.Errorf("expected count %d, got %v", workers, got.Metadata["count"])
	}
}

func testDeleteNodeDetaches(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := seedPipeline(t, s)
	a := seedNode(t, s, p.ID, "asset", nil)
	b := seedNode(t, s, p.ID, "asset", nil)
	merge := seedNode(t, s, p.ID, "merge-videos", datatypes.JSONMap{"segments": []any{a.ID, b.ID, a.ID}})
	talk := seedNode(t, s, p.ID, "generate-talking-head", datatypes.JSONMap{"audio": a.ID})

	var seen []string
	err := s.DeleteNode(ctx, a.ID, func(sib *pipeline.Node, remaining []string) bool {
		seen = append(seen, sib.ID)
		if len(remaining) != 3 {
			t.Errorf("expected 3 remaining ids, got %v", remaining)
		}
		return sib.DetachInput(a.ID)
	})
	if err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if len(seen) != 3 {
		t.Errorf("expected detach on 3 siblings, got %v", seen)
	}

	if _, err := s.GetNode(ctx, a.ID); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected deleted node to be gone, got %v", err)
	}

	gotMerge, _ := s.GetNode(ctx, merge.ID)
	segs, _ := pipeline.AsSlice(gotMerge.Inputs["segments"])
	if len(segs) != 1 || segs[0] != b.ID {
		t.Errorf("expected segments [%s], got %v", b.ID, segs)
	}

	gotTalk, _ := s.GetNode(ctx, talk.ID)
	if _, ok := gotTalk.Inputs["audio"]; ok {
		t.Errorf("expected single slot cleared, got %v", gotTalk.Inputs)
	}
	if gotTalk.Status != pipeline.StatusPending {
		t.Errorf("detach must not touch status, got %s", gotTalk.Status)
	}
}

func testDeleteMissingNode(t *testing.T, s store.Store) {
	err := s.DeleteNode(context.Background(), "missing", func(*pipeline.Node, []string) bool {
		return false
	})
	if !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}
