// Package users persists header-provisioned principals.
package users

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"qc-vision/backend/internal/domain/user"
	"qc-vision/backend/internal/infrastructure/database/entities"
	"qc-vision/backend/internal/utils/platformerrors"
)

// Repository implements user.Repository backed by gorm.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func toDomain(e *entities.User) *user.User {
	return &user.User{
		ID:       e.ID,
		Username: e.Username,
		Role:     e.Role,
	}
}

// GetOrCreate returns the user row for a username, inserting a default-role
// row on first sight. Concurrent first requests race on the unique index;
// the loser re-reads the winner's row.
func (r *Repository) GetOrCreate(ctx context.Context, username string) (*user.User, error) {
	var entity entities.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&entity).Error
	if err == nil {
		return toDomain(&entity), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to look up user", err)
	}

	entity = entities.User{Username: username, Role: "user"}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoNothing: true,
		}).
		Create(&entity).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to provision user", err)
	}

	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&entity).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to reload provisioned user", err)
	}
	return toDomain(&entity), nil
}
