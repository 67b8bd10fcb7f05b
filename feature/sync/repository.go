package sync

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Repository persists sync operation history.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a sync operation store.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Start inserts a new running operation.
func (r *Repository) Start(ctx context.Context, op *Operation) error {
	op.Status = OperationRunning
	op.StartedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(op).Error
}

// Finalize closes an operation with its totals and terminal status.
func (r *Repository) Finalize(ctx context.Context, op *Operation) error {
	now := time.Now().UTC()
	op.EndedAt = &now
	return r.db.WithContext(ctx).Save(op).Error
}

// Latest returns the most recently started operation, or nil.
func (r *Repository) Latest(ctx context.Context) (*Operation, error) {
	var op Operation
	err := r.db.WithContext(ctx).Order("started_at DESC").First(&op).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// History lists operations, newest first.
func (r *Repository) History(ctx context.Context, limit int) ([]Operation, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []Operation
	err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&out).Error
	return out, err
}
