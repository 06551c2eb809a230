package entities

import (
	"time"

	"gorm.io/datatypes"
)

// DefectCategory is a named taxonomy entry. Annotations reference it with
// restrict-delete, so a category in use cannot be removed.
type DefectCategory struct {
	ID       int64  `gorm:"primaryKey"`
	Name     string `gorm:"type:text;not null;uniqueIndex"`
	IsActive bool   `gorm:"not null;default:true"`
}

func (DefectCategory) TableName() string {
	return "defect_categories"
}

// Defect documents one visual issue on a photo.
type Defect struct {
	ID            int64   `gorm:"primaryKey"`
	PhotoID       int64   `gorm:"not null;index"`
	Description   *string `gorm:"type:text"`
	Severity      string  `gorm:"type:varchar(20);not null"`
	ReviewStatus  string  `gorm:"type:varchar(20);not null;default:unreviewed"`
	ReviewedBy    *string `gorm:"type:varchar(100)"`
	ReviewComment *string `gorm:"type:text"`
	ReviewedAt    *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`

	Annotations []DefectAnnotation `gorm:"foreignKey:DefectID;constraint:OnDelete:CASCADE"`
}

func (Defect) TableName() string {
	return "defects"
}

// DefectAnnotation is one geometric marking on a defect, stored as a tagged
// JSON shape in normalized 0-1 coordinates.
type DefectAnnotation struct {
	ID         int64          `gorm:"primaryKey"`
	DefectID   int64          `gorm:"not null;index"`
	CategoryID int64          `gorm:"not null;index"`
	Category   DefectCategory `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Geometry   datatypes.JSON `gorm:"type:jsonb;not null"`
	Color      *string        `gorm:"type:varchar(20)"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
}

func (DefectAnnotation) TableName() string {
	return "defect_annotations"
}
