package model

import "github.com/shopspring/decimal"

// Item represents a sellable product or service of the organization
type Item struct {
	TenantModel
	Name        string          `json:"name" gorm:"type:varchar(255);not null"`
	Description string          `json:"description" gorm:"type:text"`
	SKU         string          `json:"sku" gorm:"type:varchar(100);index"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:numeric(16,6);not null"`
	TaxRate     decimal.Decimal `json:"tax_rate" gorm:"type:numeric(6,4);default:0"`
	Stock       int             `json:"stock" gorm:"default:0"`
}
