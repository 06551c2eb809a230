package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"qc-vision/backend/internal/infrastructure/database/entities"
)

// defaultCategories is the seed taxonomy for defect annotations.
var defaultCategories = []string{
	"Print Errors",
	"Scratches",
	"Dents",
	"Discoloration",
	"Misalignment",
	"Contamination",
}

// AutoMigrate applies database schema changes and seeds the defect
// category taxonomy.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	err := db.WithContext(ctx).AutoMigrate(
		&entities.User{},
		&entities.QualityTest{},
		&entities.Photo{},
		&entities.DefectCategory{},
		&entities.Defect{},
		&entities.DefectAnnotation{},
		&entities.AuditLog{},
	)
	if err != nil {
		return err
	}

	if err := seedCategories(ctx, db); err != nil {
		return err
	}

	log.Info().Msg("applied qc-vision migrations")
	return nil
}

func seedCategories(ctx context.Context, db *gorm.DB) error {
	rows := make([]entities.DefectCategory, 0, len(defaultCategories))
	for _, name := range defaultCategories {
		rows = append(rows, entities.DefectCategory{Name: name, IsActive: true})
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows).Error
}
