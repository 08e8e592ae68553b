// Package sales implements the one multi-step transactional write in the
// system: creating a sale header together with its line items. Monetary
// amounts are fixed-point decimals, never binary floats, so the
// total-reconciliation invariant holds exactly.
package sales

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mikews93/deusrex-sub000/internal/apperr"
	"github.com/mikews93/deusrex-sub000/internal/model"
	"github.com/mikews93/deusrex-sub000/internal/repository"
	"github.com/mikews93/deusrex-sub000/pkg/config"
)

// Decimal scales: 2 fractional digits for money, 6 for quantity/unit price.
const (
	MoneyScale    = 2
	QuantityScale = 6
)

// ItemInput is one requested sale line.
type ItemInput struct {
	ItemID      *uint           `json:"item_id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// CreateInput is a requested sale. Jurisdiction, currency, issue date and
// status fall back to configured defaults when omitted. A header-only sale
// with no items is legal.
type CreateInput struct {
	ClientID       *uint           `json:"client_id,omitempty"`
	JurisdictionID string          `json:"jurisdiction_id"`
	Currency       string          `json:"currency"`
	IssueDate      *time.Time      `json:"issue_date,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	Items          []ItemInput     `json:"items"`
}

// UpdateInput carries header changes. Callers that change items must
// resubmit consistent totals; the writer validates but never recomputes.
type UpdateInput struct {
	ClientID       *uint            `json:"client_id,omitempty"`
	JurisdictionID string           `json:"jurisdiction_id"`
	Currency       string           `json:"currency"`
	IssueDate      *time.Time       `json:"issue_date,omitempty"`
	Subtotal       *decimal.Decimal `json:"subtotal,omitempty"`
	Tax            *decimal.Decimal `json:"tax,omitempty"`
	Total          *decimal.Decimal `json:"total,omitempty"`
}

// Writer persists sale aggregates atomically.
type Writer struct {
	db       *gorm.DB
	defaults config.SalesConfig
}

// NewWriter creates a writer with the configured sale defaults.
func NewWriter(db *gorm.DB, defaults config.SalesConfig) *Writer {
	return &Writer{db: db, defaults: defaults}
}

// CreateSale validates the amounts, applies defaults and writes the header
// and all items as one transaction. Nothing is persisted when validation
// fails, and a failed item insert rolls the header back.
func (w *Writer) CreateSale(ctx context.Context, in CreateInput, orgID uint, userID *uint) (*model.Sale, error) {
	if err := validateAmounts(in); err != nil {
		return nil, err
	}

	jurisdiction := in.JurisdictionID
	if jurisdiction == "" {
		jurisdiction = w.defaults.DefaultJurisdiction
	}
	currency := in.Currency
	if currency == "" {
		currency = w.defaults.DefaultCurrency
	}
	issueDate := time.Now()
	if in.IssueDate != nil {
		issueDate = *in.IssueDate
	}

	sale := &model.Sale{
		Number:         newSaleNumber(),
		ClientID:       in.ClientID,
		JurisdictionID: jurisdiction,
		Currency:       strings.ToUpper(currency),
		Status:         model.SaleStatusDraft,
		IssueDate:      issueDate,
		Subtotal:       in.Subtotal.Round(MoneyScale),
		Tax:            in.Tax.Round(MoneyScale),
		Total:          in.Total.Round(MoneyScale),
	}
	sale.SetOrganizationID(orgID)
	sale.StampCreate(userID)

	items := make([]model.SaleItem, len(in.Items))
	for i, item := range in.Items {
		items[i] = model.SaleItem{
			ItemID:      item.ItemID,
			Description: item.Description,
			Quantity:    item.Quantity.Round(QuantityScale),
			UnitPrice:   item.UnitPrice.Round(QuantityScale),
			Subtotal:    item.Subtotal.Round(MoneyScale),
			Tax:         item.Tax.Round(MoneyScale),
			Total:       item.Total.Round(MoneyScale),
		}
	}

	// Header first, then items, inside one transaction: a reader never
	// observes the header without its items.
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sale).Error; err != nil {
			return repository.Classify(err, "sale header insert failed")
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].SaleID = sale.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return repository.Classify(err, "sale item insert failed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sale.Items = items
	return sale, nil
}

// UpdateSale applies header changes and re-validates the resubmitted amounts
// against the stored items. Items themselves are immutable here; adjustments
// are separate compensating records.
func (w *Writer) UpdateSale(ctx context.Context, id uint, in UpdateInput, orgID *uint, userID *uint) (*model.Sale, error) {
	sale, err := w.getSale(ctx, id, orgID)
	if err != nil {
		return nil, err
	}

	if in.Subtotal != nil {
		sale.Subtotal = in.Subtotal.Round(MoneyScale)
	}
	if in.Tax != nil {
		sale.Tax = in.Tax.Round(MoneyScale)
	}
	if in.Total != nil {
		sale.Total = in.Total.Round(MoneyScale)
	}
	if in.JurisdictionID != "" {
		sale.JurisdictionID = in.JurisdictionID
	}
	if in.Currency != "" {
		sale.Currency = strings.ToUpper(in.Currency)
	}
	if in.IssueDate != nil {
		sale.IssueDate = *in.IssueDate
	}
	if in.ClientID != nil {
		sale.ClientID = in.ClientID
	}

	if len(sale.Items) > 0 {
		sum := decimal.Zero
		for _, item := range sale.Items {
			sum = sum.Add(item.Total)
		}
		if !sale.Total.Equal(sum.Round(MoneyScale)) {
			return nil, apperr.New(apperr.EAmountMismatch, "sale total does not equal the sum of item totals")
		}
	}

	sale.StampUpdate(userID)
	if err := w.db.WithContext(ctx).Omit("Items").Save(sale).Error; err != nil {
		return nil, repository.Classify(err, "sale update failed")
	}
	return sale, nil
}

// UpdateStatus moves the sale along draft → issued → accepted | cancelled.
func (w *Writer) UpdateStatus(ctx context.Context, id uint, status string, orgID *uint, userID *uint) (*model.Sale, error) {
	sale, err := w.getSale(ctx, id, orgID)
	if err != nil {
		return nil, err
	}

	if !model.CanTransitionSaleStatus(sale.Status, status) {
		return nil, apperr.Newf(apperr.EInvalid, "sale cannot move from %s to %s", sale.Status, status)
	}

	sale.Status = status
	sale.StampUpdate(userID)
	if err := w.db.WithContext(ctx).Omit("Items").Save(sale).Error; err != nil {
		return nil, repository.Classify(err, "sale status update failed")
	}
	return sale, nil
}

func (w *Writer) getSale(ctx context.Context, id uint, orgID *uint) (*model.Sale, error) {
	query := w.db.WithContext(ctx).Preload("Items")
	if orgID != nil {
		query = query.Where("organization_id = ?", *orgID)
	}
	var sale model.Sale
	if err := query.Where("id = ?", id).First(&sale).Error; err != nil {
		return nil, repository.Classify(err, "sale lookup failed")
	}
	return &sale, nil
}

// validateAmounts checks the reconciliation invariants before any row is
// written: each item total == subtotal + tax, and header total == sum of
// item totals, all at money scale. A header-only sale has nothing to
// reconcile; the header breakdown itself is stored as submitted.
func validateAmounts(in CreateInput) error {
	if len(in.Items) == 0 {
		return nil
	}

	sum := decimal.Zero
	for i, item := range in.Items {
		expected := item.Subtotal.Add(item.Tax).Round(MoneyScale)
		if !item.Total.Round(MoneyScale).Equal(expected) {
			return apperr.Newf(apperr.EAmountMismatch, "item %d total does not equal subtotal plus tax", i+1)
		}
		sum = sum.Add(item.Total.Round(MoneyScale))
	}
	if !in.Total.Round(MoneyScale).Equal(sum) {
		return apperr.New(apperr.EAmountMismatch, "sale total does not equal the sum of item totals")
	}
	return nil
}

func newSaleNumber() string {
	return "S-" + uuid.New().String()
}
