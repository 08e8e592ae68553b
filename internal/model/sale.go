package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale statuses. A sale starts as a draft and moves forward only; accepted
// and cancelled are terminal.
const (
	SaleStatusDraft     = "draft"
	SaleStatusIssued    = "issued"
	SaleStatusAccepted  = "accepted"
	SaleStatusCancelled = "cancelled"
)

// saleTransitions lists the allowed status moves.
var saleTransitions = map[string][]string{
	SaleStatusDraft:  {SaleStatusIssued},
	SaleStatusIssued: {SaleStatusAccepted, SaleStatusCancelled},
}

// CanTransitionSaleStatus reports whether a sale may move from one status to
// another.
func CanTransitionSaleStatus(from, to string) bool {
	for _, next := range saleTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Sale is the aggregate header. Monetary amounts use numeric(14,2);
// quantities and unit prices use numeric(16,6). The header total must equal
// the sum of the item totals; the writer validates this before persisting.
type Sale struct {
	TenantModel
	Number         string          `json:"number" gorm:"type:varchar(40);uniqueIndex;not null"`
	ClientID       *uint           `json:"client_id,omitempty" gorm:"index"`
	JurisdictionID string          `json:"jurisdiction_id" gorm:"type:varchar(10);not null"`
	Currency       string          `json:"currency" gorm:"type:varchar(3);not null"`
	Status         string          `json:"status" gorm:"type:varchar(20);not null;default:'draft'"`
	IssueDate      time.Time       `json:"issue_date"`
	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:numeric(14,2);not null"`
	Tax            decimal.Decimal `json:"tax" gorm:"type:numeric(14,2);not null"`
	Total          decimal.Decimal `json:"total" gorm:"type:numeric(14,2);not null"`

	Items []SaleItem `json:"items" gorm:"foreignKey:SaleID"`
}

// SaleItem is one line of a sale. Items are written together with their
// header and are immutable afterwards; adjustments are separate records.
type SaleItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	SaleID      uint            `json:"sale_id" gorm:"index;not null"`
	ItemID      *uint           `json:"item_id,omitempty" gorm:"index"`
	Description string          `json:"description" gorm:"type:varchar(255)"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:numeric(16,6);not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:numeric(16,6);not null"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:numeric(14,2);not null"`
	Tax         decimal.Decimal `json:"tax" gorm:"type:numeric(14,2);not null"`
	Total       decimal.Decimal `json:"total" gorm:"type:numeric(14,2);not null"`
	CreatedAt   time.Time       `json:"created_at"`
}
