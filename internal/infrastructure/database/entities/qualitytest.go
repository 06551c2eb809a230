package entities

import "time"

// QualityTest represents the persisted quality test record.
type QualityTest struct {
	ID            int64   `gorm:"primaryKey"`
	ProductID     int64   `gorm:"not null;index"`
	TestType      string  `gorm:"type:varchar(50);not null"`
	Requester     string  `gorm:"type:varchar(100);not null"`
	AssignedTo    *string `gorm:"type:varchar(100)"`
	Description   *string `gorm:"type:text"`
	Status        string  `gorm:"type:varchar(50);not null;default:pending"`
	DeadlineAt    *time.Time
	ReviewStatus  *string `gorm:"type:varchar(20)"`
	ReviewedBy    *string `gorm:"type:varchar(100)"`
	ReviewComment *string `gorm:"type:text"`
	ReviewedAt    *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`

	Photos []Photo `gorm:"foreignKey:TestID;constraint:OnDelete:CASCADE"`
}

func (QualityTest) TableName() string {
	return "quality_tests"
}
