package service

import (
	"testing"
	"time"

	"github.com/hyperbill/cashier/internal/api/dto"
	"github.com/hyperbill/cashier/internal/domain/invoice"
	"github.com/hyperbill/cashier/internal/domain/transaction"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/testutil"
	"github.com/hyperbill/cashier/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service       InvoiceService
	subscriptions SubscriptionService
	billing       BillingService
	customerID    string
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		CustomerRepo:     s.GetStores().CustomerRepo,
		SubscriptionRepo: s.GetStores().SubscriptionRepo,
		TransactionRepo:  s.GetStores().TransactionRepo,
		Gateway:          s.GetGateway(),
		Cache:            s.GetCache(),
	}
	s.service = NewInvoiceService(params)
	s.subscriptions = NewSubscriptionService(params)
	s.billing = NewBillingService(params)

	customers := NewCustomerService(params)
	resp, err := customers.CreateCustomer(s.GetContext(), &dto.CreateCustomerRequest{
		Email: "jo@example.com",
	})
	s.Require().NoError(err)
	s.customerID = resp.ID
}

func (s *InvoiceServiceSuite) seedTransaction(amount int64, status types.TransactionStatus) *transaction.Transaction {
	txn := &transaction.Transaction{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
		GatewayID:   lo.ToPtr(types.GenerateUUIDWithPrefix("gw_purchase")),
		CustomerID:  s.customerID,
		Type:        types.TransactionTypeCharge,
		Status:      status,
		Currency:    "myr",
		Amount:      amount,
		Description: "Subscription renewal",
		BaseModel:   types.GetDefaultBaseModel(),
	}
	s.Require().NoError(s.GetStores().TransactionRepo.Create(s.GetContext(), txn))
	return txn
}

func (s *InvoiceServiceSuite) TestProjectionRoundTripAcrossStatuses() {
	statuses := map[types.TransactionStatus]types.InvoiceStatus{
		types.TransactionStatusSuccess:  types.InvoiceStatusPaid,
		types.TransactionStatusPending:  types.InvoiceStatusOpen,
		types.TransactionStatusFailed:   types.InvoiceStatusVoid,
		types.TransactionStatusRefunded: types.InvoiceStatusVoid,
	}

	for txnStatus, invStatus := range statuses {
		txn := s.seedTransaction(12345, txnStatus)

		resp, err := s.service.GetInvoice(s.GetContext(), txn.ID)
		s.NoError(err)

		// The projected total always equals the source amount, whatever
		// the status.
		s.Equal(txn.Amount, resp.RawTotal())
		s.Equal(invStatus, resp.Status)
		s.Equal(txn.ID, resp.Invoice.ID)
		s.Len(resp.LineItems, 1)
		s.Equal(txn.Amount, resp.LineItems[0].Amount)
		s.True(resp.DueDate.Equal(txn.CreatedAt.Add(invoice.DuePeriod)))
	}
}

func (s *InvoiceServiceSuite) TestPaidInvoiceAmounts() {
	txn := s.seedTransaction(10000, types.TransactionStatusSuccess)

	resp, err := s.service.GetInvoice(s.GetContext(), txn.ID)
	s.NoError(err)

	s.Equal(types.InvoiceStatusPaid, resp.Status)
	s.True(resp.Paid())
	s.Equal(int64(10000), resp.AmountPaid)
	s.Zero(resp.AmountDue)
	s.Equal("100", resp.DisplayTotal.String())
}

func (s *InvoiceServiceSuite) TestOpenInvoiceAmounts() {
	txn := s.seedTransaction(10000, types.TransactionStatusPending)

	resp, err := s.service.GetInvoice(s.GetContext(), txn.ID)
	s.NoError(err)

	s.Equal(types.InvoiceStatusOpen, resp.Status)
	s.Zero(resp.AmountPaid)
	s.Equal(int64(10000), resp.AmountDue)
}

func (s *InvoiceServiceSuite) TestProjectionFollowsLedgerMutation() {
	txn := s.seedTransaction(10000, types.TransactionStatusPending)

	before, err := s.service.GetInvoice(s.GetContext(), txn.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusOpen, before.Status)

	// The confirmation webhook flips the ledger row; the next projection
	// sees it with no reconciliation step.
	txn.Status = types.TransactionStatusSuccess
	s.Require().NoError(s.GetStores().TransactionRepo.Update(s.GetContext(), txn))

	after, err := s.service.GetInvoice(s.GetContext(), txn.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, after.Status)
	s.Equal(int64(10000), after.AmountPaid)
}

func (s *InvoiceServiceSuite) TestUpcomingInvoicePrefersPendingCharge() {
	s.seedTransaction(5000, types.TransactionStatusSuccess)
	pending := s.seedTransaction(7000, types.TransactionStatusPending)

	resp, err := s.service.UpcomingInvoice(s.GetContext(), s.customerID)
	s.NoError(err)
	s.Equal(pending.ID, resp.Invoice.ID)
	s.Equal(types.InvoiceStatusOpen, resp.Status)
}

func (s *InvoiceServiceSuite) TestUpcomingInvoiceForecastsFromSubscription() {
	sub, err := s.subscriptions.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
		Quantity:   2,
	})
	s.Require().NoError(err)

	resp, err := s.service.UpcomingInvoice(s.GetContext(), s.customerID)
	s.NoError(err)

	// Forecast: draft, never persisted, plan amount times quantity.
	s.Equal(types.InvoiceStatusDraft, resp.Status)
	s.Empty(resp.Invoice.ID)
	s.Equal(int64(2*9900), resp.RawTotal())
	s.Equal(sub.CustomerID, resp.CustomerID)

	list, err := s.service.ListInvoices(s.GetContext(), s.customerID)
	s.NoError(err)
	s.Zero(list.Total)
}

func (s *InvoiceServiceSuite) TestGetInvoiceByGatewayID() {
	txn := s.seedTransaction(10000, types.TransactionStatusSuccess)

	resp, err := s.service.GetInvoice(s.GetContext(), *txn.GatewayID)
	s.NoError(err)
	s.Equal(txn.ID, resp.Invoice.ID)

	_, err = s.service.GetInvoice(s.GetContext(), "txn_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestInvoiceForBillsAdHocAmount() {
	resp, err := s.service.InvoiceFor(s.GetContext(), &dto.CreateInvoiceRequest{
		CustomerID:  s.customerID,
		Description: "Setup fee",
		Amount:      2500,
	})
	s.NoError(err)

	s.Equal(types.InvoiceStatusOpen, resp.Status)
	s.Equal(int64(2500), resp.AmountDue)
	s.Equal("Setup fee", resp.LineItems[0].Description)
	s.Equal(1, s.GetGateway().CallCount("CreatePurchase"))
}

func (s *InvoiceServiceSuite) TestInvoiceForValidates() {
	_, err := s.service.InvoiceFor(s.GetContext(), &dto.CreateInvoiceRequest{
		CustomerID: s.customerID,
		Amount:     2500,
	})
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestUpcomingInvoiceMissing() {
	_, err := s.service.UpcomingInvoice(s.GetContext(), s.customerID)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestLatestInvoice() {
	s.seedTransaction(1000, types.TransactionStatusSuccess)
	time.Sleep(time.Millisecond)
	latest := s.seedTransaction(2000, types.TransactionStatusPending)

	resp, err := s.service.LatestInvoice(s.GetContext(), s.customerID)
	s.NoError(err)
	s.Equal(latest.ID, resp.Invoice.ID)
}

func (s *InvoiceServiceSuite) TestInvoiceTotalForPeriodCountsOnlyPaid() {
	s.seedTransaction(1000, types.TransactionStatusSuccess)
	s.seedTransaction(2000, types.TransactionStatusSuccess)
	s.seedTransaction(4000, types.TransactionStatusPending)
	s.seedTransaction(8000, types.TransactionStatusFailed)

	from := s.GetNow().Add(-time.Hour)
	to := s.GetNow().Add(time.Hour)

	total, err := s.service.InvoiceTotalForPeriod(s.GetContext(), s.customerID, from, to)
	s.NoError(err)
	s.Equal(int64(3000), total)

	invoices, err := s.service.InvoicesForPeriod(s.GetContext(), s.customerID, from, to)
	s.NoError(err)
	s.Equal(4, invoices.Total)
}

func (s *InvoiceServiceSuite) TestEndToEndChargeConfirmationScenario() {
	charge, err := s.billing.CreateCharge(s.GetContext(), &dto.CreateChargeRequest{
		CustomerID: s.customerID,
		Amount:     10000,
		Currency:   "myr",
	})
	s.Require().NoError(err)

	open, err := s.service.GetInvoice(s.GetContext(), charge.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusOpen, open.Status)
	s.Equal(int64(10000), open.AmountDue)

	txn, err := s.GetStores().TransactionRepo.Get(s.GetContext(), charge.ID)
	s.Require().NoError(err)
	txn.Status = types.TransactionStatusSuccess
	now := s.GetNow()
	txn.ProcessedAt = &now
	s.Require().NoError(s.GetStores().TransactionRepo.Update(s.GetContext(), txn))

	paid, err := s.service.GetInvoice(s.GetContext(), charge.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, paid.Status)
	s.Equal(int64(10000), paid.AmountPaid)
	s.Zero(paid.AmountDue)
}
