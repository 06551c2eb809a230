// Package defects persists defects and their annotations.
package defects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"qc-vision/backend/internal/domain/defect"
	"qc-vision/backend/internal/infrastructure/database/entities"
	"qc-vision/backend/internal/utils/platformerrors"
)

// Repository implements defect.Repository backed by gorm.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func annotationToEntity(a *defect.Annotation) (*entities.DefectAnnotation, error) {
	geom, err := json.Marshal(a.Geometry)
	if err != nil {
		return nil, err
	}
	return &entities.DefectAnnotation{
		ID:         a.ID,
		DefectID:   a.DefectID,
		CategoryID: a.CategoryID,
		Geometry:   datatypes.JSON(geom),
		Color:      a.Color,
		CreatedAt:  a.CreatedAt,
	}, nil
}

func annotationToDomain(e *entities.DefectAnnotation) (*defect.Annotation, error) {
	var geom defect.Geometry
	if len(e.Geometry) > 0 {
		if err := json.Unmarshal(e.Geometry, &geom); err != nil {
			return nil, err
		}
	}
	return &defect.Annotation{
		ID:         e.ID,
		DefectID:   e.DefectID,
		CategoryID: e.CategoryID,
		Geometry:   geom,
		Color:      e.Color,
		CreatedAt:  e.CreatedAt,
	}, nil
}

func defectToDomain(e *entities.Defect) (*defect.Defect, error) {
	d := &defect.Defect{
		ID:            e.ID,
		PhotoID:       e.PhotoID,
		Description:   e.Description,
		Severity:      defect.Severity(e.Severity),
		ReviewStatus:  e.ReviewStatus,
		ReviewedBy:    e.ReviewedBy,
		ReviewComment: e.ReviewComment,
		ReviewedAt:    e.ReviewedAt,
		CreatedAt:     e.CreatedAt,
	}
	for i := range e.Annotations {
		ann, err := annotationToDomain(&e.Annotations[i])
		if err != nil {
			return nil, err
		}
		d.Annotations = append(d.Annotations, *ann)
	}
	return d, nil
}

// ListCategories returns the taxonomy ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]defect.Category, error) {
	var rows []entities.DefectCategory
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to list defect categories", err)
	}
	out := make([]defect.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, defect.Category{ID: row.ID, Name: row.Name, IsActive: row.IsActive})
	}
	return out, nil
}

// CreateWithAnnotations inserts a defect and all of its annotations in one
// transaction; a failed annotation insert rolls back the defect row.
func (r *Repository) CreateWithAnnotations(ctx context.Context, d *defect.Defect) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entity := &entities.Defect{
			PhotoID:      d.PhotoID,
			Description:  d.Description,
			Severity:     string(d.Severity),
			ReviewStatus: d.ReviewStatus,
		}
		if err := tx.Create(entity).Error; err != nil {
			return err
		}

		for i := range d.Annotations {
			d.Annotations[i].DefectID = entity.ID
			annEntity, err := annotationToEntity(&d.Annotations[i])
			if err != nil {
				return err
			}
			annEntity.ID = 0
			if err := tx.Create(annEntity).Error; err != nil {
				return err
			}
			d.Annotations[i].ID = annEntity.ID
			d.Annotations[i].CreatedAt = annEntity.CreatedAt
		}

		d.ID = entity.ID
		d.CreatedAt = entity.CreatedAt
		if entity.ReviewStatus != "" {
			d.ReviewStatus = entity.ReviewStatus
		}
		return nil
	})
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to create defect", err)
	}
	return nil
}

// ListByPhoto returns a photo's defects newest first, annotations attached.
func (r *Repository) ListByPhoto(ctx context.Context, photoID int64) ([]defect.Defect, error) {
	var rows []entities.Defect
	if err := r.db.WithContext(ctx).
		Preload("Annotations", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("photo_id = ?", photoID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to list defects", err)
	}

	out := make([]defect.Defect, 0, len(rows))
	for i := range rows {
		d, err := defectToDomain(&rows[i])
		if err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeInternal, "failed to decode defect geometry", err)
		}
		out = append(out, *d)
	}
	return out, nil
}

// GetByID returns one defect with annotations ordered by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*defect.Defect, error) {
	var entity entities.Defect
	if err := r.db.WithContext(ctx).
		Preload("Annotations", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&entity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound, fmt.Sprintf("defect %d not found", id), err)
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to get defect", err)
	}

	d, err := defectToDomain(&entity)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeInternal, "failed to decode defect geometry", err)
	}
	return d, nil
}

// UpdateDefect saves the defect row; annotations are managed separately.
func (r *Repository) UpdateDefect(ctx context.Context, d *defect.Defect) error {
	updates := map[string]any{
		"description":    d.Description,
		"severity":       string(d.Severity),
		"review_status":  d.ReviewStatus,
		"reviewed_by":    d.ReviewedBy,
		"review_comment": d.ReviewComment,
		"reviewed_at":    d.ReviewedAt,
	}
	if err := r.db.WithContext(ctx).Model(&entities.Defect{}).
		Where("id = ?", d.ID).Updates(updates).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to update defect", err)
	}
	return nil
}

// DeleteDefect removes one defect row, cascading to its annotations.
func (r *Repository) DeleteDefect(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Select("Annotations").Delete(&entities.Defect{ID: id})
	if result.Error != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to delete defect", result.Error)
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, fmt.Sprintf("defect %d not found", id), nil)
	}
	return nil
}

// AddAnnotation inserts one annotation row.
func (r *Repository) AddAnnotation(ctx context.Context, a *defect.Annotation) error {
	entity, err := annotationToEntity(a)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeInternal, "failed to encode annotation geometry", err)
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to create annotation", err)
	}
	a.ID = entity.ID
	a.CreatedAt = entity.CreatedAt
	return nil
}

// GetAnnotation returns one annotation by id.
func (r *Repository) GetAnnotation(ctx context.Context, id int64) (*defect.Annotation, error) {
	var entity entities.DefectAnnotation
	if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound, fmt.Sprintf("annotation %d not found", id), err)
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to get annotation", err)
	}
	return annotationOut(ctx, &entity)
}

// FirstAnnotation returns the defect's lowest-id annotation, or nil when
// the defect has none.
func (r *Repository) FirstAnnotation(ctx context.Context, defectID int64) (*defect.Annotation, error) {
	var entity entities.DefectAnnotation
	err := r.db.WithContext(ctx).
		Where("defect_id = ?", defectID).
		Order("id ASC").
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to get first annotation", err)
	}
	return annotationOut(ctx, &entity)
}

func annotationOut(ctx context.Context, entity *entities.DefectAnnotation) (*defect.Annotation, error) {
	a, err := annotationToDomain(entity)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeInternal, "failed to decode annotation geometry", err)
	}
	return a, nil
}

// UpdateAnnotation saves the annotation row.
func (r *Repository) UpdateAnnotation(ctx context.Context, a *defect.Annotation) error {
	geom, err := json.Marshal(a.Geometry)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeInternal, "failed to encode annotation geometry", err)
	}
	updates := map[string]any{
		"category_id": a.CategoryID,
		"geometry":    datatypes.JSON(geom),
		"color":       a.Color,
	}
	if err := r.db.WithContext(ctx).Model(&entities.DefectAnnotation{}).
		Where("id = ?", a.ID).Updates(updates).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to update annotation", err)
	}
	return nil
}

// DeleteAnnotation removes one annotation row.
func (r *Repository) DeleteAnnotation(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&entities.DefectAnnotation{}, id)
	if result.Error != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to delete annotation", result.Error)
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, fmt.Sprintf("annotation %d not found", id), nil)
	}
	return nil
}
