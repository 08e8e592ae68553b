package model

// Client represents a billing counterpart (person or company) of the
// organization. Sales reference clients optionally.
type Client struct {
	TenantModel
	Name       string `json:"name" gorm:"type:varchar(255);not null"`
	DocumentID string `json:"document_id" gorm:"type:varchar(50);index"`
	Email      string `json:"email" gorm:"type:varchar(100)"`
	Phone      string `json:"phone" gorm:"type:varchar(30)"`
	Address    string `json:"address" gorm:"type:text"`
}
