package model

import (
	"time"

	"gorm.io/gorm"
)

// TenantModel is embedded by every organization-scoped entity. It carries the
// tenant foreign key, the soft-delete columns and the audit stamps. Audit
// columns always reference internal user ids, never identity-provider
// subject ids.
type TenantModel struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	OrganizationID uint           `json:"organization_id" gorm:"index;not null"`
	IsActive       bool           `json:"is_active" gorm:"default:true"`
	CreatedBy      *uint          `json:"created_by,omitempty"`
	UpdatedBy      *uint          `json:"updated_by,omitempty"`
	DeletedBy      *uint          `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// GetID returns the primary key.
func (m *TenantModel) GetID() uint { return m.ID }

// GetOrganizationID returns the owning tenant id.
func (m *TenantModel) GetOrganizationID() uint { return m.OrganizationID }

// SetOrganizationID assigns the owning tenant. The repository calls this on
// create only; the column is immutable afterwards.
func (m *TenantModel) SetOrganizationID(orgID uint) { m.OrganizationID = orgID }

// StampCreate records the acting user on a new row.
func (m *TenantModel) StampCreate(userID *uint) {
	m.IsActive = true
	m.CreatedBy = userID
	m.UpdatedBy = userID
	m.DeletedBy = nil
	m.DeletedAt = gorm.DeletedAt{}
}

// StampUpdate records the acting user on a modified row.
func (m *TenantModel) StampUpdate(userID *uint) { m.UpdatedBy = userID }

// StampDelete marks the row inactive and records who removed it. The
// deleted_at column itself is set by gorm's soft delete.
func (m *TenantModel) StampDelete(userID *uint) {
	m.IsActive = false
	m.DeletedBy = userID
}
