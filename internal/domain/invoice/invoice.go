package invoice

import (
	"time"

	"github.com/hyperbill/cashier/internal/domain/subscription"
	"github.com/hyperbill/cashier/internal/domain/transaction"
	"github.com/hyperbill/cashier/internal/types"
	"github.com/shopspring/decimal"
)

// DuePeriod is how long after issuance an invoice is payable.
const DuePeriod = 30 * 24 * time.Hour

// Invoice is a read-only view projected from a ledger transaction at query
// time. Invoices are never persisted; mutating the underlying transaction
// (a confirmation webhook flipping pending to success) changes every future
// projection of it with no reconciliation step.
type Invoice struct {
	// ID is the id of the source transaction; forecast invoices for a
	// billing period that has not been charged yet carry no id.
	ID string `json:"id,omitempty"`
	// Number is a short human-facing receipt reference
	Number     string              `json:"number"`
	CustomerID string              `json:"customer_id"`
	Status     types.InvoiceStatus `json:"status"`
	Currency   string              `json:"currency"`
	// Total in minor units
	Total     int64      `json:"total"`
	Tax       int64      `json:"tax"`
	LineItems []LineItem `json:"line_items"`
	CreatedAt time.Time  `json:"created_at"`
	DueDate   time.Time  `json:"due_date"`
}

// LineItem is one priced line on an invoice. Projected invoices carry a
// single synthetic line mirroring the source transaction.
type LineItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	// Amount in minor units
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

// FromTransaction projects an invoice from a ledger row.
func FromTransaction(txn *transaction.Transaction) *Invoice {
	description := txn.Description
	if description == "" {
		description = "Payment"
	}

	return &Invoice{
		ID:         txn.ID,
		Number:     types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_RECEIPT),
		CustomerID: txn.CustomerID,
		Status:     types.InvoiceStatusFromTransaction(txn.Status),
		Currency:   txn.Currency,
		Total:      txn.Amount,
		Tax:        0,
		LineItems: []LineItem{
			{
				ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
				Description: description,
				Amount:      txn.Amount,
				Currency:    txn.Currency,
				Quantity:    1,
			},
		},
		CreatedAt: txn.CreatedAt,
		DueDate:   txn.CreatedAt.Add(DuePeriod),
	}
}

// Forecast synthesizes a draft invoice for the next billing cycle of an
// active subscription. Used when no pending charge exists yet.
func Forecast(sub *subscription.Subscription, amount int64, currency string) *Invoice {
	now := time.Now().UTC()
	total := amount * int64(sub.Quantity)

	return &Invoice{
		Number:     types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_RECEIPT),
		CustomerID: sub.CustomerID,
		Status:     types.InvoiceStatusDraft,
		Currency:   currency,
		Total:      total,
		Tax:        0,
		LineItems: []LineItem{
			{
				ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
				Description: "Subscription " + sub.Name,
				Amount:      total,
				Currency:    currency,
				Quantity:    sub.Quantity,
			},
		},
		CreatedAt: now,
		DueDate:   now.Add(DuePeriod),
	}
}

// Paid determines if the invoice has been settled.
func (i *Invoice) Paid() bool {
	return i.Status == types.InvoiceStatusPaid
}

// AmountPaid returns the settled amount in minor units: the full total for a
// paid invoice, zero otherwise.
func (i *Invoice) AmountPaid() int64 {
	if i.Status == types.InvoiceStatusPaid {
		return i.Total
	}
	return 0
}

// AmountDue returns the outstanding amount in minor units: the full total
// while the invoice is open, zero otherwise.
func (i *Invoice) AmountDue() int64 {
	if i.Status == types.InvoiceStatusOpen {
		return i.Total
	}
	return 0
}

// RawTotal returns the total in minor units.
func (i *Invoice) RawTotal() int64 {
	return i.Total
}

// MajorTotal returns the total converted to major currency units, for
// display only.
func (i *Invoice) MajorTotal() decimal.Decimal {
	return types.DisplayAmount(i.Total)
}
