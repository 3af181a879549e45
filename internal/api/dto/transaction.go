package dto

import (
	"github.com/hyperbill/cashier/internal/domain/transaction"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/types"
	"github.com/hyperbill/cashier/internal/validator"
	"github.com/shopspring/decimal"
)

type CreateChargeRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	// Amount in minor units
	Amount      int64          `json:"amount" validate:"required,gt=0"`
	Currency    string         `json:"currency" validate:"omitempty,len=3"`
	Description string         `json:"description"`
	Metadata    types.Metadata `json:"metadata,omitempty"`
}

func (r *CreateChargeRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.CustomerID == "" {
		return ierr.NewError("customer id is required").
			WithHint("Charge must belong to a customer").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ChargeTokenRequest charges a customer off-session with a stored recurring
// token instead of a hosted checkout.
type ChargeTokenRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	// Amount in minor units
	Amount         int64          `json:"amount" validate:"required,gt=0"`
	Currency       string         `json:"currency" validate:"omitempty,len=3"`
	Description    string         `json:"description"`
	RecurringToken string         `json:"recurring_token" validate:"required"`
	Metadata       types.Metadata `json:"metadata,omitempty"`
}

func (r *ChargeTokenRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.RecurringToken == "" {
		return ierr.NewError("recurring token is required").
			WithHint("Off-session charges need a stored recurring token").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type RefundRequest struct {
	// Amount in minor units; omitted refunds the full remaining amount
	Amount *int64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
}

func (r *RefundRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type ListTransactionsRequest struct {
	CustomerID string `form:"customer_id"`
	Type       string `form:"type"`
	Status     string `form:"status"`
	Limit      int    `form:"limit"`
}

// ToFilter converts query parameters to a repository filter.
func (r *ListTransactionsRequest) ToFilter() (*types.TransactionFilter, error) {
	filter := &types.TransactionFilter{}
	if r.CustomerID != "" {
		filter.CustomerID = &r.CustomerID
	}
	if r.Type != "" {
		t := types.TransactionType(r.Type)
		if err := t.Validate(); err != nil {
			return nil, err
		}
		filter.Type = &t
	}
	if r.Status != "" {
		s := types.TransactionStatus(r.Status)
		if err := s.Validate(); err != nil {
			return nil, err
		}
		filter.Status = &s
	}
	if r.Limit > 0 {
		filter.Limit = &r.Limit
	}
	return filter, nil
}

type TransactionResponse struct {
	*transaction.Transaction
	// DisplayAmount is the amount in major units, for presentation only
	DisplayAmount decimal.Decimal `json:"display_amount"`
}

func NewTransactionResponse(t *transaction.Transaction) *TransactionResponse {
	return &TransactionResponse{
		Transaction:   t,
		DisplayAmount: t.MajorAmount(),
	}
}

type ListTransactionsResponse struct {
	Items []*TransactionResponse `json:"items"`
	Total int                    `json:"total"`
}
