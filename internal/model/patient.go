package model

import "time"

// Patient represents a patient record belonging to one organization
type Patient struct {
	TenantModel
	FirstName  string     `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName   string     `json:"last_name" gorm:"type:varchar(100);not null"`
	DocumentID string     `json:"document_id" gorm:"type:varchar(50);index"`
	Email      string     `json:"email" gorm:"type:varchar(100)"`
	Phone      string     `json:"phone" gorm:"type:varchar(30)"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
}
