// Package auditlog persists the append-only audit trail.
package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"qc-vision/backend/internal/domain/audit"
	"qc-vision/backend/internal/infrastructure/database/entities"
	"qc-vision/backend/internal/utils/platformerrors"
)

// Repository implements audit.Repository backed by gorm.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func toDomain(e *entities.AuditLog) (*audit.Entry, error) {
	entry := &audit.Entry{
		ID:         e.ID,
		Action:     audit.Action(e.Action),
		EntityType: audit.EntityType(e.EntityType),
		EntityID:   e.EntityID,
		Username:   e.Username,
		CreatedAt:  e.CreatedAt,
	}
	if len(e.Meta) > 0 {
		if err := json.Unmarshal(e.Meta, &entry.Meta); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

// Append writes one entry on a fresh session so a failure here cannot
// poison whatever statement the caller had in flight.
func (r *Repository) Append(ctx context.Context, entry *audit.Entry) error {
	meta := entry.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeInternal, "failed to encode audit metadata", err)
	}

	entity := &entities.AuditLog{
		Action:     string(entry.Action),
		EntityType: string(entry.EntityType),
		EntityID:   entry.EntityID,
		Username:   entry.Username,
		Meta:       datatypes.JSON(raw),
	}

	session := r.db.Session(&gorm.Session{NewDB: true}).WithContext(ctx)
	if err := session.Create(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to append audit entry", err)
	}

	entry.ID = entity.ID
	entry.CreatedAt = entity.CreatedAt
	return nil
}

// GetByID returns one entry by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*audit.Entry, error) {
	var entity entities.AuditLog
	if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound, fmt.Sprintf("audit entry %d not found", id), err)
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to get audit entry", err)
	}

	entry, err := toDomain(&entity)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeInternal, "failed to decode audit metadata", err)
	}
	return entry, nil
}

// List returns filtered entries newest first plus the unpaged total.
func (r *Repository) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.AuditLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.Username != "" {
		query = query.Where("username = ?", filter.Username)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to count audit entries", err)
	}

	var rows []entities.AuditLog
	if err := query.Order("created_at DESC, id DESC").
		Offset(filter.Offset).Limit(filter.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to list audit entries", err)
	}

	out := make([]audit.Entry, 0, len(rows))
	for i := range rows {
		entry, err := toDomain(&rows[i])
		if err != nil {
			return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeInternal, "failed to decode audit metadata", err)
		}
		out = append(out, *entry)
	}
	return out, total, nil
}
