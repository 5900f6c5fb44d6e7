// Package gormstore implements store.Store on GORM. UpdateLocked and
// DeleteNode run in a transaction holding SELECT ... FOR UPDATE row locks
// (a no-op on SQLite, which serializes writers).
package gormstore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/vidpipe/database"
	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/store"
)

// Store persists pipelines and nodes through a database.DB.
type Store struct {
	db *database.DB
}

var _ store.Store = (*Store)(nil)

// New creates a GORM-backed store.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// mapErr keeps a nil error nil instead of a typed nil *AppError.
func mapErr(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	return database.FromDatabase(err, resource, id)
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

func (s *Store) CreatePipeline(ctx context.Context, p *pipeline.Pipeline) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return database.FromDatabase(err, "pipeline", p.ID)
	}
	return nil
}

func (s *Store) GetPipeline(ctx context.Context, id string) (*pipeline.Pipeline, error) {
	var p pipeline.Pipeline
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, database.FromDatabase(err, "pipeline", id)
	}
	return &p, nil
}

func (s *Store) ListPipelines(ctx context.Context) ([]*pipeline.Pipeline, error) {
	var out []*pipeline.Pipeline
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&out).Error; err != nil {
		return nil, database.FromDatabase(err, "pipeline", "")
	}
	return out, nil
}

func (s *Store) UpdatePipeline(ctx context.Context, id string, fn func(p *pipeline.Pipeline) error) (*pipeline.Pipeline, error) {
	var out pipeline.Pipeline
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&out, "id = ?", id).Error; err != nil {
			return err
		}
		if err := fn(&out); err != nil {
			return err
		}
		out.ID = id
		return tx.Save(&out).Error
	})
	if err != nil {
		return nil, database.FromDatabase(err, "pipeline", id)
	}
	return &out, nil
}

func (s *Store) DeletePipeline(ctx context.Context, id string) error {
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("pipeline_id = ?", id).Delete(&pipeline.Node{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&pipeline.Pipeline{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return mapErr(err, "pipeline", id)
}

func (s *Store) CreateNode(ctx context.Context, n *pipeline.Node) error {
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&pipeline.Pipeline{}).Where("id = ?", n.PipelineID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errors.NotFound("pipeline", n.PipelineID)
		}
		return tx.Create(n).Error
	})
	return mapErr(err, "node", n.ID)
}

func (s *Store) GetNode(ctx context.Context, id string) (*pipeline.Node, error) {
	var n pipeline.Node
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, database.FromDatabase(err, "node", id)
	}
	return &n, nil
}

func (s *Store) GetNodes(ctx context.Context, ids []string) ([]*pipeline.Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*pipeline.Node
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, database.FromDatabase(err, "node", "")
	}
	return out, nil
}

func (s *Store) ListNodes(ctx context.Context, pipelineID string) ([]*pipeline.Node, error) {
	var out []*pipeline.Node
	err := s.db.WithContext(ctx).
		Where("pipeline_id = ?", pipelineID).
		Order("created_at, id").
		Find(&out).Error
	if err != nil {
		return nil, database.FromDatabase(err, "node", "")
	}
	return out, nil
}

func (s *Store) UpdateLocked(ctx context.Context, id string, fn store.MutateFunc) (*pipeline.Node, error) {
	var out pipeline.Node
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&out, "id = ?", id).Error; err != nil {
			return err
		}
		save, err := fn(&out)
		if err != nil || !save {
			return err
		}
		out.ID = id
		return tx.Save(&out).Error
	})
	if err != nil {
		return nil, database.FromDatabase(err, "node", id)
	}
	return &out, nil
}

func (s *Store) DeleteNode(ctx context.Context, id string, detach store.DetachFunc) error {
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		var target pipeline.Node
		if err := forUpdate(tx).First(&target, "id = ?", id).Error; err != nil {
			return err
		}

		var siblings []*pipeline.Node
		err := forUpdate(tx).
			Where("pipeline_id = ? AND id <> ?", target.PipelineID, id).
			Order("id").
			Find(&siblings).Error
		if err != nil {
			return err
		}

		if err := tx.Delete(&pipeline.Node{}, "id = ?", id).Error; err != nil {
			return err
		}

		remaining := make([]string, len(siblings))
		for i, sib := range siblings {
			remaining[i] = sib.ID
		}
		for _, sib := range siblings {
			if !detach(sib, remaining) {
				continue
			}
			if err := tx.Save(sib).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return mapErr(err, "node", id)
}
