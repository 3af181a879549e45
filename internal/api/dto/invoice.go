package dto

import (
	"github.com/hyperbill/cashier/internal/domain/invoice"
	"github.com/hyperbill/cashier/internal/types"
	"github.com/hyperbill/cashier/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest bills an ad-hoc amount outside any subscription cycle.
type CreateInvoiceRequest struct {
	CustomerID  string `json:"customer_id" validate:"required"`
	Description string `json:"description" validate:"required"`
	// Amount in minor units
	Amount   int64          `json:"amount" validate:"required,gt=0"`
	Currency string         `json:"currency" validate:"omitempty,len=3"`
	Metadata types.Metadata `json:"metadata,omitempty"`
}

func (r *CreateInvoiceRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type InvoiceResponse struct {
	*invoice.Invoice
	// AmountPaid and AmountDue in minor units
	AmountPaid int64 `json:"amount_paid"`
	AmountDue  int64 `json:"amount_due"`
	// DisplayTotal is the total in major units, for presentation only
	DisplayTotal decimal.Decimal `json:"display_total"`
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		Invoice:      inv,
		AmountPaid:   inv.AmountPaid(),
		AmountDue:    inv.AmountDue(),
		DisplayTotal: inv.MajorTotal(),
	}
}

type ListInvoicesResponse struct {
	Items []*InvoiceResponse `json:"items"`
	Total int                `json:"total"`
}
