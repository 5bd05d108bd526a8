package models

import "time"

// Project groups design-control items. It is never updated or deleted.
type Project struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"not null" validate:"required"`
	UserID    string    `json:"user_id" gorm:"index;type:varchar(36);not null"`
	CreatedAt time.Time `json:"created_at"`
}
