package entities

import "time"

// Photo represents a stored, normalized image tied to one quality test.
// FilePath is the object-store key; a row only exists once the store write
// has succeeded.
type Photo struct {
	ID              int64     `gorm:"primaryKey"`
	TestID          int64     `gorm:"not null;index"`
	FilePath        string    `gorm:"type:text;not null"`
	TimeStamp       time.Time `gorm:"not null"`
	AnalysisResults *string   `gorm:"type:text"`

	Defects []Defect `gorm:"foreignKey:PhotoID;constraint:OnDelete:CASCADE"`
}

func (Photo) TableName() string {
	return "photos"
}
