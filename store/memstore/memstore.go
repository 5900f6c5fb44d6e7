// Package memstore is an in-process store.Store. UpdateLocked serializes
// on a mutex per node id.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/store"
)

// Store keeps pipelines and nodes in maps. Values are cloned on the way in and out.
type Store struct {
	mu        sync.RWMutex
	pipelines map[string]*pipeline.Pipeline
	nodes     map[string]*pipeline.Node
	seq       map[string]uint64

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
	next   uint64
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		pipelines: make(map[string]*pipeline.Pipeline),
		nodes:     make(map[string]*pipeline.Node),
		seq:       make(map[string]uint64),
		locks:     make(map[string]*sync.Mutex),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) nodeLock(id string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *Store) dropLock(id string) {
	s.lockMu.Lock()
	delete(s.locks, id)
	s.lockMu.Unlock()
}

func (s *Store) CreatePipeline(_ context.Context, p *pipeline.Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pipelines[p.ID]; exists {
		return errors.AlreadyExists("pipeline")
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.pipelines[p.ID] = p.Clone()
	return nil
}

func (s *Store) GetPipeline(_ context.Context, id string) (*pipeline.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pipelines[id]
	if !ok {
		return nil, errors.NotFound("pipeline", id)
	}
	return p.Clone(), nil
}

func (s *Store) ListPipelines(_ context.Context) ([]*pipeline.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*pipeline.Pipeline, 0, len(s.pipelines))
	for _, p := range s.pipelines {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdatePipeline(_ context.Context, id string, fn func(p *pipeline.Pipeline) error) (*pipeline.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.pipelines[id]
	if !ok {
		return nil, errors.NotFound("pipeline", id)
	}
	p := current.Clone()
	if err := fn(p); err != nil {
		return nil, err
	}
	p.ID = id
	p.UpdatedAt = s.now()
	s.pipelines[id] = p.Clone()
	return p, nil
}

func (s *Store) DeletePipeline(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pipelines[id]; !ok {
		return errors.NotFound("pipeline", id)
	}
	for nid, n := range s.nodes {
		if n.PipelineID == id {
			delete(s.nodes, nid)
			delete(s.seq, nid)
			s.dropLock(nid)
		}
	}
	delete(s.pipelines, id)
	return nil
}

func (s *Store) CreateNode(_ context.Context, n *pipeline.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pipelines[n.PipelineID]; !ok {
		return errors.NotFound("pipeline", n.PipelineID)
	}
	if _, exists := s.nodes[n.ID]; exists {
		return errors.AlreadyExists("node")
	}
	now := s.now()
	n.CreatedAt, n.UpdatedAt = now, now
	s.next++
	s.seq[n.ID] = s.next
	s.nodes[n.ID] = n.Clone()
	return nil
}

func (s *Store) GetNode(_ context.Context, id string) (*pipeline.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, errors.NotFound("node", id)
	}
	return n.Clone(), nil
}

func (s *Store) GetNodes(_ context.Context, ids []string) ([]*pipeline.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*pipeline.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok {
			out = append(out, n.Clone())
		}
	}
	return out, nil
}

func (s *Store) ListNodes(_ context.Context, pipelineID string) ([]*pipeline.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listNodesLocked(pipelineID), nil
}

func (s *Store) listNodesLocked(pipelineID string) []*pipeline.Node {
	var out []*pipeline.Node
	for _, n := range s.nodes {
		if n.PipelineID == pipelineID {
			out = append(out, n.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out
}

func (s *Store) UpdateLocked(ctx context.Context, id string, fn store.MutateFunc) (*pipeline.Node, error) {
	l := s.nodeLock(id)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := s.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	save, err := fn(n)
	if err != nil {
		return nil, err
	}
	if !save {
		return n, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; !ok {
		return nil, errors.NotFound("node", id)
	}
	n.ID = id
	n.UpdatedAt = s.now()
	s.nodes[id] = n.Clone()
	return n, nil
}

func (s *Store) DeleteNode(ctx context.Context, id string, detach store.DetachFunc) error {
	target, err := s.GetNode(ctx, id)
	if err != nil {
		return err
	}

	s.mu.RLock()
	siblings := s.listNodesLocked(target.PipelineID)
	s.mu.RUnlock()

	// Lock in id order so concurrent deletes cannot deadlock.
	ids := make([]string, 0, len(siblings))
	for _, sib := range siblings {
		ids = append(ids, sib.ID)
	}
	sort.Strings(ids)
	for _, lid := range ids {
		l := s.nodeLock(lid)
		l.Lock()
		defer l.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; !ok {
		return errors.NotFound("node", id)
	}
	delete(s.nodes, id)
	delete(s.seq, id)

	remaining := make([]string, 0, len(siblings))
	var live []*pipeline.Node
	for _, sib := range s.listNodesLocked(target.PipelineID) {
		remaining = append(remaining, sib.ID)
		live = append(live, sib)
	}
	now := s.now()
	for _, sib := range live {
		if detach(sib, remaining) {
			sib.UpdatedAt = now
			s.nodes[sib.ID] = sib.Clone()
		}
	}
	s.dropLock(id)
	return nil
}
