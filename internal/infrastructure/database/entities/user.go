package entities

import "time"

// User is a header-provisioned principal. Roles gate the review endpoints.
type User struct {
	ID        int64     `gorm:"primaryKey"`
	Username  string    `gorm:"type:varchar(5);not null;uniqueIndex"`
	Role      string    `gorm:"type:varchar(20);not null;default:user"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}
