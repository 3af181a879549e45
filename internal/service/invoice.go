package service

import (
	"context"
	"time"

	"github.com/hyperbill/cashier/internal/api/dto"
	"github.com/hyperbill/cashier/internal/domain/invoice"
	"github.com/hyperbill/cashier/internal/domain/transaction"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/types"
	"github.com/samber/lo"
)

// InvoiceService projects read-only invoice views from the ledger. Nothing
// here is persisted; every call recomputes from the transactions as they are
// right now, so a webhook flipping a charge to success is immediately
// reflected in every projection.
type InvoiceService interface {
	// GetInvoice resolves by transaction id first, then by gateway purchase
	// id, so either identifier works at the HTTP surface.
	GetInvoice(ctx context.Context, idOrGatewayID string) (*dto.InvoiceResponse, error)
	// InvoiceFor creates an ad-hoc charge and returns its invoice projection.
	InvoiceFor(ctx context.Context, req *dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, customerID string) (*dto.ListInvoicesResponse, error)
	LatestInvoice(ctx context.Context, customerID string) (*dto.InvoiceResponse, error)
	UpcomingInvoice(ctx context.Context, customerID string) (*dto.InvoiceResponse, error)
	InvoicesForPeriod(ctx context.Context, customerID string, from, to time.Time) (*dto.ListInvoicesResponse, error)
	// InvoiceTotalForPeriod sums paid invoice totals in minor units.
	InvoiceTotalForPeriod(ctx context.Context, customerID string, from, to time.Time) (int64, error)
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{ServiceParams: params}
}

func (s *invoiceService) GetInvoice(ctx context.Context, idOrGatewayID string) (*dto.InvoiceResponse, error) {
	txn, err := s.TransactionRepo.Get(ctx, idOrGatewayID)
	if ierr.IsNotFound(err) {
		txn, err = s.TransactionRepo.GetByGatewayID(ctx, idOrGatewayID)
	}
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(invoice.FromTransaction(txn)), nil
}

func (s *invoiceService) InvoiceFor(ctx context.Context, req *dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	billing := NewBillingService(s.ServiceParams)
	txn, err := billing.CreateCharge(ctx, &dto.CreateChargeRequest{
		CustomerID:  req.CustomerID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(invoice.FromTransaction(txn.Transaction)), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, customerID string) (*dto.ListInvoicesResponse, error) {
	txns, err := s.listCharges(ctx, customerID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.InvoiceResponse, 0, len(txns))
	for _, txn := range txns {
		items = append(items, dto.NewInvoiceResponse(invoice.FromTransaction(txn)))
	}
	return &dto.ListInvoicesResponse{Items: items, Total: len(items)}, nil
}

func (s *invoiceService) LatestInvoice(ctx context.Context, customerID string) (*dto.InvoiceResponse, error) {
	limit := 1
	txns, err := s.TransactionRepo.List(ctx, &types.TransactionFilter{
		CustomerID: &customerID,
		Type:       lo.ToPtr(types.TransactionTypeCharge),
		Limit:      &limit,
	})
	if err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return nil, ierr.NewError("no invoices").
			WithHint("The customer has no charges to project an invoice from").
			Mark(ierr.ErrNotFound)
	}
	return dto.NewInvoiceResponse(invoice.FromTransaction(txns[0])), nil
}

// UpcomingInvoice projects the next invoice: the newest pending charge when
// one exists, otherwise a forecast synthesized from the customer's active
// subscription and the configured plan amount.
func (s *invoiceService) UpcomingInvoice(ctx context.Context, customerID string) (*dto.InvoiceResponse, error) {
	limit := 1
	pending, err := s.TransactionRepo.List(ctx, &types.TransactionFilter{
		CustomerID: &customerID,
		Type:       lo.ToPtr(types.TransactionTypeCharge),
		Status:     lo.ToPtr(types.TransactionStatusPending),
		Limit:      &limit,
	})
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		return dto.NewInvoiceResponse(invoice.FromTransaction(pending[0])), nil
	}

	subs, err := s.SubscriptionRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if !sub.Valid() || sub.Cancelled() {
			continue
		}
		amount, ok := s.Config.Billing.PlanAmounts[sub.PlanID]
		if !ok {
			s.Logger.Warnw("no configured amount for plan, skipping forecast",
				"plan_id", sub.PlanID,
				"subscription_id", sub.ID,
			)
			continue
		}
		forecast := invoice.Forecast(sub, amount, s.Config.Billing.DefaultCurrency)
		return dto.NewInvoiceResponse(forecast), nil
	}

	return nil, ierr.NewError("no upcoming invoice").
		WithHint("The customer has no pending charge and no active subscription").
		Mark(ierr.ErrNotFound)
}

func (s *invoiceService) InvoicesForPeriod(ctx context.Context, customerID string, from, to time.Time) (*dto.ListInvoicesResponse, error) {
	txns, err := s.listCharges(ctx, customerID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.InvoiceResponse, 0)
	for _, txn := range txns {
		if txn.CreatedAt.Before(from) || txn.CreatedAt.After(to) {
			continue
		}
		items = append(items, dto.NewInvoiceResponse(invoice.FromTransaction(txn)))
	}
	return &dto.ListInvoicesResponse{Items: items, Total: len(items)}, nil
}

func (s *invoiceService) InvoiceTotalForPeriod(ctx context.Context, customerID string, from, to time.Time) (int64, error) {
	invoices, err := s.InvoicesForPeriod(ctx, customerID, from, to)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, inv := range invoices.Items {
		if inv.Paid() {
			total += inv.RawTotal()
		}
	}
	return total, nil
}

func (s *invoiceService) listCharges(ctx context.Context, customerID string) ([]*transaction.Transaction, error) {
	return s.TransactionRepo.List(ctx, &types.TransactionFilter{
		CustomerID: &customerID,
		Type:       lo.ToPtr(types.TransactionTypeCharge),
	})
}
