package license

import (
	"context"
	"errors"
	"fmt"

	"license-reconciler/feature/license/models"

	"gorm.io/gorm"
)

// Filter narrows FindLicenses results. Zero values are ignored.
type Filter struct {
	Status       string
	Product      string
	DBA          string
	UnlinkedOnly bool
	Limit        int
}

// Repository is the internal license store.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates an internal license store.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByExternalAppID returns the license linked to an external app ID, or nil.
func (r *Repository) FindByExternalAppID(ctx context.Context, appID string) (*models.License, error) {
	return r.findOne(ctx, "external_app_id = ?", appID)
}

// FindByExternalEmail returns the first license whose linked or contact
// email matches, or nil.
func (r *Repository) FindByExternalEmail(ctx context.Context, email string) (*models.License, error) {
	return r.findOne(ctx, "external_email = ?", email)
}

// FindByExternalCountID returns the license linked to an external count ID, or nil.
func (r *Repository) FindByExternalCountID(ctx context.Context, countID int) (*models.License, error) {
	return r.findOne(ctx, "external_count_id = ?", countID)
}

// FindByID returns a license by primary key, or nil.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.License, error) {
	return r.findOne(ctx, "id = ?", id)
}

// Create inserts a new license.
func (r *Repository) Create(ctx context.Context, lic *models.License) error {
	if lic.Status != "" && !models.ValidStatus(lic.Status) {
		return fmt.Errorf("invalid license status %q", lic.Status)
	}
	return r.db.WithContext(ctx).Create(lic).Error
}

// UpdateFields applies a partial update. The updates map uses column names;
// an empty map is a no-op (idempotent syncs rely on this).
func (r *Repository) UpdateFields(ctx context.Context, id uint, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.License{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// FindLicenses returns licenses matching the filter.
func (r *Repository) FindLicenses(ctx context.Context, f Filter) ([]models.License, error) {
	q := r.db.WithContext(ctx).Model(&models.License{})

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Product != "" {
		q = q.Where("product = ?", f.Product)
	}
	if f.DBA != "" {
		q = q.Where("dba LIKE ?", "%"+f.DBA+"%")
	}
	if f.UnlinkedOnly {
		q = q.Where("external_app_id IS NULL")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []models.License
	if err := q.Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll returns every license. Used by the duplicate detector, which
// needs the full population for grouping.
func (r *Repository) ListAll(ctx context.Context) ([]models.License, error) {
	return r.FindLicenses(ctx, Filter{})
}

// QueueReview persists a duplicate candidate for manual review.
func (r *Repository) QueueReview(ctx context.Context, item *models.ReviewItem) error {
	item.Status = models.ReviewPending
	return r.db.WithContext(ctx).Create(item).Error
}

// PendingReviews lists queued candidates awaiting a decision.
func (r *Repository) PendingReviews(ctx context.Context) ([]models.ReviewItem, error) {
	var items []models.ReviewItem
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ReviewPending).
		Order("confidence_score DESC").
		Find(&items).Error
	return items, err
}

// ResolveReview finalizes a queued candidate.
func (r *Repository) ResolveReview(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.ReviewItem{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// RecordDecision inserts the immutable consolidation audit record.
func (r *Repository) RecordDecision(ctx context.Context, d *models.ConsolidationDecision) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// Decisions lists consolidation decisions, newest first.
func (r *Repository) Decisions(ctx context.Context, limit int) ([]models.ConsolidationDecision, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.ConsolidationDecision
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// Transaction runs fn atomically against a repository bound to the tx.
func (r *Repository) Transaction(ctx context.Context, fn func(*Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*models.License, error) {
	var lic models.License
	err := r.db.WithContext(ctx).Where(query, args...).First(&lic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lic, nil
}
