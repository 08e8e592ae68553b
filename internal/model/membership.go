package model

import (
	"time"

	"gorm.io/gorm"
)

// Roles a user may hold within an organization. Admin may act across
// tenants; the tenant-context guard exempts it from the organization check.
const (
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Membership associates a user with an organization and a role. The
// composite unique index guarantees at most one membership row per
// (user, organization) pair; a user may hold different roles in different
// organizations.
type Membership struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	UserID         uint           `json:"user_id" gorm:"not null;uniqueIndex:idx_membership_user_org"`
	OrganizationID uint           `json:"organization_id" gorm:"not null;uniqueIndex:idx_membership_user_org"`
	Role           string         `json:"role" gorm:"type:varchar(50);not null;default:'member'"`
	IsDefault      bool           `json:"is_default" gorm:"default:false"`
	IsActive       bool           `json:"is_active" gorm:"default:true"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User         User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}
