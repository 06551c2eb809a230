// Package photos persists photo metadata and serves the gallery join.
package photos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"qc-vision/backend/internal/domain/photo"
	"qc-vision/backend/internal/infrastructure/database/entities"
	"qc-vision/backend/internal/utils/platformerrors"
)

// Repository implements photo.Repository backed by gorm.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func toEntity(p *photo.Photo) *entities.Photo {
	return &entities.Photo{
		ID:              p.ID,
		TestID:          p.TestID,
		FilePath:        p.FilePath,
		TimeStamp:       p.TimeStamp,
		AnalysisResults: p.AnalysisResults,
	}
}

func toDomain(e *entities.Photo) *photo.Photo {
	return &photo.Photo{
		ID:              e.ID,
		TestID:          e.TestID,
		FilePath:        e.FilePath,
		TimeStamp:       e.TimeStamp,
		AnalysisResults: e.AnalysisResults,
	}
}

// Create inserts a new photo row.
func (r *Repository) Create(ctx context.Context, p *photo.Photo) error {
	entity := toEntity(p)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to create photo", err)
	}
	*p = *toDomain(entity)
	return nil
}

// GetByID returns one photo by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*photo.Photo, error) {
	var entity entities.Photo
	if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound, fmt.Sprintf("photo %d not found", id), err)
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to get photo", err)
	}
	return toDomain(&entity), nil
}

// ListByTest returns a test's photos oldest first.
func (r *Repository) ListByTest(ctx context.Context, testID int64) ([]photo.Photo, error) {
	var rows []entities.Photo
	if err := r.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("time_stamp ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to list photos", err)
	}

	out := make([]photo.Photo, 0, len(rows))
	for i := range rows {
		out = append(out, *toDomain(&rows[i]))
	}
	return out, nil
}

// Delete removes one photo row, cascading to its defects.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&entities.Photo{}, id)
	if result.Error != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to delete photo", result.Error)
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, fmt.Sprintf("photo %d not found", id), nil)
	}
	return nil
}

// PhotoExists reports whether a photo row exists.
func (r *Repository) PhotoExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Photo{}).
		Where("id = ?", id).Count(&count).Error; err != nil {
		return false, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to check photo existence", err)
	}
	return count > 0, nil
}

// severityOrder ranks defect severities for the gallery rollup without
// reaching into the defect domain.
var severityOrder = map[string]int{
	"low":      0,
	"medium":   1,
	"high":     2,
	"critical": 3,
}

// Gallery returns one page of photos newest first, each joined with its
// test and decorated with aggregated defect facts. Aggregation runs in a
// second query over the page's photo ids only.
func (r *Repository) Gallery(ctx context.Context, params photo.GalleryParams) ([]photo.GalleryItem, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entities.Photo{}).Count(&total).Error; err != nil {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to count gallery photos", err)
	}

	var page []entities.Photo
	offset := (params.Page - 1) * params.PageSize
	if err := r.db.WithContext(ctx).
		Order("time_stamp DESC, id DESC").
		Offset(offset).Limit(params.PageSize).
		Find(&page).Error; err != nil {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to page gallery photos", err)
	}

	items := make([]photo.GalleryItem, 0, len(page))
	if len(page) == 0 {
		return items, total, nil
	}

	photoIDs := make([]int64, 0, len(page))
	testIDs := make([]int64, 0, len(page))
	for i := range page {
		photoIDs = append(photoIDs, page[i].ID)
		testIDs = append(testIDs, page[i].TestID)
	}

	var tests []entities.QualityTest
	if err := r.db.WithContext(ctx).Where("id IN ?", testIDs).Find(&tests).Error; err != nil {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to load gallery tests", err)
	}
	testByID := make(map[int64]*entities.QualityTest, len(tests))
	for i := range tests {
		testByID[tests[i].ID] = &tests[i]
	}

	var defects []entities.Defect
	if err := r.db.WithContext(ctx).
		Preload("Annotations").
		Where("photo_id IN ?", photoIDs).
		Find(&defects).Error; err != nil {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to load gallery defects", err)
	}
	defectsByPhoto := make(map[int64][]*entities.Defect)
	for i := range defects {
		defectsByPhoto[defects[i].PhotoID] = append(defectsByPhoto[defects[i].PhotoID], &defects[i])
	}

	for i := range page {
		p := &page[i]
		item := photo.GalleryItem{
			ID:        p.ID,
			TestID:    p.TestID,
			FilePath:  p.FilePath,
			TimeStamp: p.TimeStamp,
		}
		if t, ok := testByID[p.TestID]; ok {
			item.TestType = t.TestType
			item.TestStatus = t.Status
		}

		seen := make(map[int64]struct{})
		highestRank := -1
		for _, d := range defectsByPhoto[p.ID] {
			item.DefectCount++
			if rank, ok := severityOrder[d.Severity]; ok && rank > highestRank {
				highestRank = rank
				sev := d.Severity
				item.HighestSeverity = &sev
			}
			for _, a := range d.Annotations {
				if _, dup := seen[a.CategoryID]; !dup {
					seen[a.CategoryID] = struct{}{}
					item.CategoryIDs = append(item.CategoryIDs, a.CategoryID)
				}
			}
		}

		items = append(items, item)
	}

	return items, total, nil
}
