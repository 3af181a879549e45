package service

import (
	"context"
	"time"

	"github.com/hyperbill/cashier/internal/api/dto"
	"github.com/hyperbill/cashier/internal/domain/transaction"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/gateway/chip"
	"github.com/hyperbill/cashier/internal/types"
	"github.com/samber/lo"
)

// BillingService orchestrates money movement: it calls the gateway first and
// appends to the local ledger only after the gateway accepts, so a failed
// external call never leaves a half-committed charge behind.
type BillingService interface {
	CreateCharge(ctx context.Context, req *dto.CreateChargeRequest) (*dto.TransactionResponse, error)

	// ChargeWithToken creates a purchase and charges it immediately with a
	// stored recurring token, with no customer interaction. The ledger row is
	// appended only after the gateway accepts the charge.
	ChargeWithToken(ctx context.Context, req *dto.ChargeTokenRequest) (*dto.TransactionResponse, error)
	Refund(ctx context.Context, transactionID string, req *dto.RefundRequest) (*dto.TransactionResponse, error)
	RefundableAmount(ctx context.Context, transactionID string) (int64, error)
	GetTransaction(ctx context.Context, id string) (*dto.TransactionResponse, error)
	ListTransactions(ctx context.Context, req *dto.ListTransactionsRequest) (*dto.ListTransactionsResponse, error)

	// SyncTransaction pulls the purchase state from the gateway and applies
	// it locally. A manual fallback for the rare delivery the webhook
	// pipeline missed entirely.
	SyncTransaction(ctx context.Context, id string) (*dto.TransactionResponse, error)
}

type billingService struct {
	ServiceParams
	customerService CustomerService
}

func NewBillingService(params ServiceParams) BillingService {
	return &billingService{
		ServiceParams:   params,
		customerService: NewCustomerService(params),
	}
}

func (s *billingService) CreateCharge(ctx context.Context, req *dto.CreateChargeRequest) (*dto.TransactionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = s.Config.Billing.DefaultCurrency
	}
	description := req.Description
	if description == "" {
		description = "Charge"
	}

	c, err := s.customerService.EnsureGatewayCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	purchase, err := s.Gateway.CreatePurchase(ctx, &chip.PurchaseRequest{
		ClientID: *c.GatewayID,
		Purchase: chip.PurchaseDetails{
			Currency: currency,
			Products: []chip.Product{
				{Name: description, Price: req.Amount, Quantity: 1},
			},
		},
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	txn := &transaction.Transaction{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
		GatewayID:   lo.ToPtr(purchase.ID),
		CustomerID:  req.CustomerID,
		Type:        types.TransactionTypeCharge,
		Status:      types.TransactionStatusPending,
		Currency:    currency,
		Amount:      req.Amount,
		Description: description,
		Metadata:    req.Metadata,
		BaseModel:   types.GetDefaultBaseModel(),
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}
	if err := s.TransactionRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	s.Logger.Infow("created charge",
		"transaction_id", txn.ID,
		"customer_id", txn.CustomerID,
		"amount", txn.Amount,
		"currency", txn.Currency,
	)
	return dto.NewTransactionResponse(txn), nil
}

func (s *billingService) ChargeWithToken(ctx context.Context, req *dto.ChargeTokenRequest) (*dto.TransactionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = s.Config.Billing.DefaultCurrency
	}
	description := req.Description
	if description == "" {
		description = "Token charge"
	}

	c, err := s.customerService.EnsureGatewayCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	purchase, err := s.Gateway.CreatePurchase(ctx, &chip.PurchaseRequest{
		ClientID: *c.GatewayID,
		Purchase: chip.PurchaseDetails{
			Currency: currency,
			Products: []chip.Product{
				{Name: description, Price: req.Amount, Quantity: 1},
			},
		},
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	charged, err := s.Gateway.ChargePurchase(ctx, purchase.ID, &chip.ChargeRequest{
		RecurringToken: req.RecurringToken,
	})
	if err != nil {
		return nil, err
	}

	txn := &transaction.Transaction{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
		GatewayID:   lo.ToPtr(purchase.ID),
		CustomerID:  req.CustomerID,
		Type:        types.TransactionTypeCharge,
		Status:      types.TransactionStatusPending,
		Currency:    currency,
		Amount:      req.Amount,
		Description: description,
		Metadata:    req.Metadata,
		BaseModel:   types.GetDefaultBaseModel(),
	}
	// Some tokens settle synchronously; the rest confirm through the
	// webhook pipeline like any other purchase.
	if charged.Status == "paid" || charged.Status == "completed" {
		txn.Status = types.TransactionStatusSuccess
		now := time.Now().UTC()
		txn.ProcessedAt = &now
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}
	if err := s.TransactionRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	s.Logger.Infow("created token charge",
		"transaction_id", txn.ID,
		"customer_id", txn.CustomerID,
		"amount", txn.Amount,
		"currency", txn.Currency,
	)
	return dto.NewTransactionResponse(txn), nil
}

func (s *billingService) Refund(ctx context.Context, transactionID string, req *dto.RefundRequest) (*dto.TransactionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	source, err := s.TransactionRepo.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !source.IsCharge() {
		return nil, ierr.NewError("only charges can be refunded").
			WithHint("The referenced transaction is not a charge").
			Mark(ierr.ErrInvalidOperation)
	}
	if !source.Successful() {
		return nil, ierr.NewError("charge is not refundable").
			WithHint("Only successful charges can be refunded").
			Mark(ierr.ErrInvalidOperation)
	}

	refundable, err := s.RefundableAmount(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	amount := refundable
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount > refundable {
		return nil, ierr.NewError("refund exceeds refundable amount").
			WithHintf("Only %d remains refundable on this charge", refundable).
			WithReportableDetails(map[string]any{
				"refundable_amount": refundable,
				"requested_amount":  amount,
			}).
			Mark(ierr.ErrValidation)
	}
	if amount <= 0 {
		return nil, ierr.NewError("nothing left to refund").
			WithHint("The charge has already been fully refunded").
			Mark(ierr.ErrValidation)
	}

	if source.GatewayID == nil {
		return nil, ierr.NewError("charge has no gateway identity").
			WithHint("A charge must be gateway-confirmed before it can be refunded").
			Mark(ierr.ErrInvalidOperation)
	}

	remote, err := s.Gateway.RefundPurchase(ctx, *source.GatewayID, &chip.RefundRequest{Amount: amount})
	if err != nil {
		return nil, err
	}

	refund := &transaction.Transaction{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
		GatewayID:      lo.ToPtr(remote.ID),
		CustomerID:     source.CustomerID,
		Type:           types.TransactionTypeRefund,
		Status:         types.TransactionStatusPending,
		Currency:       source.Currency,
		Amount:         amount,
		Description:    "Refund of " + source.Description,
		RefundedFromID: lo.ToPtr(source.ID),
		BaseModel:      types.GetDefaultBaseModel(),
	}
	if err := refund.Validate(); err != nil {
		return nil, err
	}
	if err := s.TransactionRepo.Create(ctx, refund); err != nil {
		return nil, err
	}

	s.Logger.Infow("created refund",
		"transaction_id", refund.ID,
		"refunded_from", source.ID,
		"amount", amount,
	)
	return dto.NewTransactionResponse(refund), nil
}

// RefundableAmount is the charge amount minus every non-failed sibling
// refund.
func (s *billingService) RefundableAmount(ctx context.Context, transactionID string) (int64, error) {
	source, err := s.TransactionRepo.Get(ctx, transactionID)
	if err != nil {
		return 0, err
	}

	refunds, err := s.TransactionRepo.ListRefundsOf(ctx, transactionID)
	if err != nil {
		return 0, err
	}

	refunded := lo.SumBy(
		lo.Filter(refunds, func(r *transaction.Transaction, _ int) bool {
			return !r.Failed()
		}),
		func(r *transaction.Transaction) int64 { return r.Amount },
	)
	return source.Amount - refunded, nil
}

func (s *billingService) GetTransaction(ctx context.Context, id string) (*dto.TransactionResponse, error) {
	txn, err := s.TransactionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewTransactionResponse(txn), nil
}

func (s *billingService) ListTransactions(ctx context.Context, req *dto.ListTransactionsRequest) (*dto.ListTransactionsResponse, error) {
	filter, err := req.ToFilter()
	if err != nil {
		return nil, err
	}

	txns, err := s.TransactionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		items = append(items, dto.NewTransactionResponse(txn))
	}
	return &dto.ListTransactionsResponse{Items: items, Total: len(items)}, nil
}

func (s *billingService) SyncTransaction(ctx context.Context, id string) (*dto.TransactionResponse, error) {
	txn, err := s.TransactionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.GatewayID == nil {
		return nil, ierr.NewError("transaction has no gateway identity").
			WithHint("Only gateway-backed transactions can be synced").
			Mark(ierr.ErrInvalidOperation)
	}

	purchase, err := s.Gateway.GetPurchase(ctx, *txn.GatewayID)
	if err != nil {
		return nil, err
	}

	switch purchase.Status {
	case "paid", "completed":
		txn.Status = types.TransactionStatusSuccess
		if txn.ProcessedAt == nil {
			now := time.Now().UTC()
			txn.ProcessedAt = &now
		}
	case "error", "failed", "expired":
		txn.Status = types.TransactionStatusFailed
	case "refunded":
		txn.Status = types.TransactionStatusRefunded
	}

	if err := s.TransactionRepo.Update(ctx, txn); err != nil {
		return nil, err
	}

	s.Logger.Infow("synced transaction from gateway",
		"transaction_id", txn.ID,
		"status", txn.Status,
	)
	return dto.NewTransactionResponse(txn), nil
}
