package entities

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog is an append-only record of one user-facing action. Rows are
// never updated or deleted by the application.
type AuditLog struct {
	ID         int64          `gorm:"primaryKey"`
	Action     string         `gorm:"type:text;not null;index"`
	EntityType string         `gorm:"type:text;not null;index"`
	EntityID   int64          `gorm:"not null;index"`
	Username   string         `gorm:"type:text;not null;index"`
	Meta       datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
