package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents a local user account. ExternalID is the identity-provider
// subject; internal ids are what audit columns and memberships reference.
type User struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	ExternalID string         `json:"external_id" gorm:"type:varchar(100);uniqueIndex;not null"`
	Email      string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password   string         `json:"-" gorm:"type:varchar(255)"`
	FirstName  string         `json:"first_name" gorm:"type:varchar(100)"`
	LastName   string         `json:"last_name" gorm:"type:varchar(100)"`
	IsActive   bool           `json:"is_active" gorm:"default:true"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
