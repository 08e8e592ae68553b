package model

import (
	"time"

	"gorm.io/gorm"
)

// Organization represents a tenant, the root of data isolation. ExternalID
// is the organization id carried in identity-provider tokens.
type Organization struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	ExternalID string         `json:"external_id" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name       string         `json:"name" gorm:"type:varchar(100);not null"`
	IsActive   bool           `json:"is_active" gorm:"default:true"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
