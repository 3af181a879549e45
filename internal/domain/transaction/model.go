package transaction

import (
	"time"

	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/types"
	"github.com/shopspring/decimal"
)

// Transaction is one append-mostly ledger entry. Amount and type are
// immutable after creation; only status, processed_at and the gateway id
// transition, driven by gateway confirmation webhooks.
type Transaction struct {
	// Unique identifier assigned locally at creation
	ID string `json:"id"`
	// GatewayID is the purchase identifier at the payment gateway, nil
	// until the gateway confirms
	GatewayID *string `json:"gateway_id,omitempty"`
	// CustomerID is the owning billable entity
	CustomerID string `json:"customer_id"`
	// Type distinguishes charges from refunds
	Type types.TransactionType `json:"type"`
	// Status is the confirmation state
	Status types.TransactionStatus `json:"status"`
	// Currency is a three-letter ISO code, lowercased
	Currency string `json:"currency"`
	// Amount in minor units (cents). Money never crosses any layer of
	// this service as floating point.
	Amount int64 `json:"amount"`
	// Description shown on derived invoices
	Description string `json:"description"`
	// Metadata is an opaque key-value bag
	Metadata types.Metadata `json:"metadata,omitempty"`
	// RefundedFromID back-references the original charge; present only on
	// refund-type rows
	RefundedFromID *string `json:"refunded_from_id,omitempty"`
	// ProcessedAt is set when the gateway confirms the transaction
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	types.BaseModel
}

// Successful determines if the transaction was confirmed by the gateway.
func (t *Transaction) Successful() bool {
	return t.Status == types.TransactionStatusSuccess
}

// Failed determines if the transaction failed at the gateway.
func (t *Transaction) Failed() bool {
	return t.Status == types.TransactionStatusFailed
}

// Pending determines if the transaction awaits gateway confirmation.
func (t *Transaction) Pending() bool {
	return t.Status == types.TransactionStatusPending
}

// Refunded determines if the transaction has been refunded.
func (t *Transaction) Refunded() bool {
	return t.Status == types.TransactionStatusRefunded
}

// IsCharge determines if this is a charge transaction.
func (t *Transaction) IsCharge() bool {
	return t.Type == types.TransactionTypeCharge
}

// IsRefund determines if this is a refund transaction.
func (t *Transaction) IsRefund() bool {
	return t.Type == types.TransactionTypeRefund
}

// MajorAmount returns the amount converted from minor units to major
// currency units, for display only.
func (t *Transaction) MajorAmount() decimal.Decimal {
	return types.DisplayAmount(t.Amount)
}

// Validate validates the transaction
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return ierr.NewError("transaction id is required").
			WithHint("Transaction ID cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if t.CustomerID == "" {
		return ierr.NewError("customer id is required").
			WithHint("Transaction must belong to a customer").
			Mark(ierr.ErrValidation)
	}
	if t.Amount <= 0 {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if t.Currency == "" {
		return ierr.NewError("invalid currency").
			WithHint("Currency is required").
			Mark(ierr.ErrValidation)
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Status.Validate(); err != nil {
		return err
	}
	if t.IsRefund() && (t.RefundedFromID == nil || *t.RefundedFromID == "") {
		return ierr.NewError("refund without source transaction").
			WithHint("Refund transactions must reference the original charge").
			Mark(ierr.ErrValidation)
	}
	return nil
}
