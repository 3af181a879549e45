package types

import (
	ierr "github.com/hyperbill/cashier/internal/errors"
)

// TransactionType distinguishes money-in from money-out ledger rows.
type TransactionType string

const (
	TransactionTypeCharge TransactionType = "charge"
	TransactionTypeRefund TransactionType = "refund"
)

func (t TransactionType) String() string {
	return string(t)
}

func (t TransactionType) Validate() error {
	allowed := []TransactionType{
		TransactionTypeCharge,
		TransactionTypeRefund,
	}
	for _, a := range allowed {
		if t == a {
			return nil
		}
	}
	return ierr.NewError("invalid transaction type").
		WithHintf("Transaction type must be one of %v", allowed).
		Mark(ierr.ErrValidation)
}

// TransactionStatus is the confirmation state of a ledger row. Amount and
// type never change after creation; only status, processed_at and the
// gateway id transition, driven by gateway confirmation.
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusSuccess  TransactionStatus = "success"
	TransactionStatusFailed   TransactionStatus = "failed"
	TransactionStatusRefunded TransactionStatus = "refunded"
)

func (s TransactionStatus) String() string {
	return string(s)
}

func (s TransactionStatus) Validate() error {
	allowed := []TransactionStatus{
		TransactionStatusPending,
		TransactionStatusSuccess,
		TransactionStatusFailed,
		TransactionStatusRefunded,
	}
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return ierr.NewError("invalid transaction status").
		WithHintf("Transaction status must be one of %v", allowed).
		Mark(ierr.ErrValidation)
}

// TransactionFilter narrows ledger listings.
type TransactionFilter struct {
	CustomerID *string
	Type       *TransactionType
	Status     *TransactionStatus
	Limit      *int
}
