// Package tests persists quality test records.
package tests

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"qc-vision/backend/internal/domain/qctest"
	"qc-vision/backend/internal/infrastructure/database/entities"
	"qc-vision/backend/internal/utils/platformerrors"
)

// Repository implements qctest.Repository backed by gorm.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func toEntity(t *qctest.Test) *entities.QualityTest {
	return &entities.QualityTest{
		ID:            t.ID,
		ProductID:     t.ProductID,
		TestType:      t.TestType,
		Requester:     t.Requester,
		AssignedTo:    t.AssignedTo,
		Description:   t.Description,
		Status:        t.Status,
		DeadlineAt:    t.DeadlineAt,
		ReviewStatus:  t.ReviewStatus,
		ReviewedBy:    t.ReviewedBy,
		ReviewComment: t.ReviewComment,
		ReviewedAt:    t.ReviewedAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func toDomain(e *entities.QualityTest) *qctest.Test {
	return &qctest.Test{
		ID:            e.ID,
		ProductID:     e.ProductID,
		TestType:      e.TestType,
		Requester:     e.Requester,
		AssignedTo:    e.AssignedTo,
		Description:   e.Description,
		Status:        e.Status,
		DeadlineAt:    e.DeadlineAt,
		ReviewStatus:  e.ReviewStatus,
		ReviewedBy:    e.ReviewedBy,
		ReviewComment: e.ReviewComment,
		ReviewedAt:    e.ReviewedAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// Create inserts a new test and backfills generated fields.
func (r *Repository) Create(ctx context.Context, t *qctest.Test) error {
	entity := toEntity(t)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to create test", err)
	}
	*t = *toDomain(entity)
	return nil
}

// GetByID returns one test by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*qctest.Test, error) {
	var entity entities.QualityTest
	if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound, fmt.Sprintf("test %d not found", id), err)
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to get test", err)
	}
	return toDomain(&entity), nil
}

// List returns filtered tests newest first plus the unpaged total.
func (r *Repository) List(ctx context.Context, params qctest.ListParams) ([]qctest.Test, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.QualityTest{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where(
			"LOWER(test_type) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ? OR LOWER(requester) LIKE ?",
			pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to count tests", err)
	}

	var rows []entities.QualityTest
	if err := query.Order("created_at DESC, id DESC").
		Offset(params.Skip).Limit(params.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to list tests", err)
	}

	out := make([]qctest.Test, 0, len(rows))
	for i := range rows {
		out = append(out, *toDomain(&rows[i]))
	}
	return out, total, nil
}

// Update saves the full row.
func (r *Repository) Update(ctx context.Context, t *qctest.Test) error {
	entity := toEntity(t)
	if err := r.db.WithContext(ctx).Save(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to update test", err)
	}
	*t = *toDomain(entity)
	return nil
}

// Delete removes one test row. Photo rows are expected to be gone already;
// the FK cascade is a safety net, not the deletion path.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&entities.QualityTest{}, id)
	if result.Error != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to delete test", result.Error)
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, fmt.Sprintf("test %d not found", id), nil)
	}
	return nil
}

// TestExists reports whether a test row exists.
func (r *Repository) TestExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.QualityTest{}).
		Where("id = ?", id).Count(&count).Error; err != nil {
		return false, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to check test existence", err)
	}
	return count > 0, nil
}
