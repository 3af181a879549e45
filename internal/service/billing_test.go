package service

import (
	"testing"

	"github.com/hyperbill/cashier/internal/api/dto"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/testutil"
	"github.com/hyperbill/cashier/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	service    BillingService
	customerID string
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
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
	s.service = NewBillingService(params)

	customers := NewCustomerService(params)
	resp, err := customers.CreateCustomer(s.GetContext(), &dto.CreateCustomerRequest{
		Email: "jo@example.com",
	})
	s.Require().NoError(err)
	s.customerID = resp.ID
}

// charge creates a pending charge and optionally confirms it, simulating the
// gateway webhook flipping the status.
func (s *BillingServiceSuite) charge(amount int64, confirm bool) *dto.TransactionResponse {
	resp, err := s.service.CreateCharge(s.GetContext(), &dto.CreateChargeRequest{
		CustomerID: s.customerID,
		Amount:     amount,
	})
	s.Require().NoError(err)

	if confirm {
		txn, err := s.GetStores().TransactionRepo.Get(s.GetContext(), resp.ID)
		s.Require().NoError(err)
		txn.Status = types.TransactionStatusSuccess
		now := s.GetNow()
		txn.ProcessedAt = &now
		s.Require().NoError(s.GetStores().TransactionRepo.Update(s.GetContext(), txn))
	}
	return resp
}

func (s *BillingServiceSuite) TestCreateChargeIsPendingUntilConfirmed() {
	resp := s.charge(10000, false)

	s.Equal(types.TransactionStatusPending, resp.Status)
	s.Equal(int64(10000), resp.Amount)
	s.Equal("myr", resp.Currency)
	s.Require().NotNil(resp.GatewayID)
	s.Nil(resp.ProcessedAt)

	s.Equal(1, s.GetGateway().CallCount("CreatePurchase"))
}

func (s *BillingServiceSuite) TestCreateChargeFailsWithoutLocalWrite() {
	s.GetGateway().FailOn("CreatePurchase")

	_, err := s.service.CreateCharge(s.GetContext(), &dto.CreateChargeRequest{
		CustomerID: s.customerID,
		Amount:     10000,
	})
	s.True(ierr.IsGateway(err))

	// No half-committed ledger row.
	list, err := s.service.ListTransactions(s.GetContext(), &dto.ListTransactionsRequest{
		CustomerID: s.customerID,
	})
	s.NoError(err)
	s.Zero(list.Total)
}

func (s *BillingServiceSuite) TestCreateChargeValidatesAmount() {
	_, err := s.service.CreateCharge(s.GetContext(), &dto.CreateChargeRequest{
		CustomerID: s.customerID,
		Amount:     -5,
	})
	s.True(ierr.IsValidation(err))
}

func (s *BillingServiceSuite) TestChargeWithTokenAppendsLedgerRow() {
	resp, err := s.service.ChargeWithToken(s.GetContext(), &dto.ChargeTokenRequest{
		CustomerID:     s.customerID,
		Amount:         4900,
		RecurringToken: "tok_recurring_1",
	})
	s.NoError(err)

	s.Equal(types.TransactionTypeCharge, resp.Type)
	s.Equal(types.TransactionStatusPending, resp.Status)
	s.Equal(int64(4900), resp.Amount)
	s.Require().NotNil(resp.GatewayID)

	// The purchase is created and then charged against the token.
	s.Equal(1, s.GetGateway().CallCount("CreatePurchase"))
	s.Equal(1, s.GetGateway().CallCount("ChargePurchase"))
}

func (s *BillingServiceSuite) TestChargeWithTokenFailsWithoutLocalWrite() {
	s.GetGateway().FailOn("ChargePurchase")

	_, err := s.service.ChargeWithToken(s.GetContext(), &dto.ChargeTokenRequest{
		CustomerID:     s.customerID,
		Amount:         4900,
		RecurringToken: "tok_recurring_1",
	})
	s.True(ierr.IsGateway(err))

	list, err := s.service.ListTransactions(s.GetContext(), &dto.ListTransactionsRequest{
		CustomerID: s.customerID,
	})
	s.NoError(err)
	s.Zero(list.Total)
}

func (s *BillingServiceSuite) TestChargeWithTokenRequiresToken() {
	_, err := s.service.ChargeWithToken(s.GetContext(), &dto.ChargeTokenRequest{
		CustomerID: s.customerID,
		Amount:     4900,
	})
	s.True(ierr.IsValidation(err))
	s.Empty(s.GetGateway().Calls())
}

func (s *BillingServiceSuite) TestPartialRefundsNeverExceedCharge() {
	charge := s.charge(10000, true)

	_, err := s.service.Refund(s.GetContext(), charge.ID, &dto.RefundRequest{Amount: lo.ToPtr(int64(5000))})
	s.NoError(err)

	remaining, err := s.service.RefundableAmount(s.GetContext(), charge.ID)
	s.NoError(err)
	s.Equal(int64(5000), remaining)

	// 6000 exceeds the 5000 still refundable.
	_, err = s.service.Refund(s.GetContext(), charge.ID, &dto.RefundRequest{Amount: lo.ToPtr(int64(6000))})
	s.True(ierr.IsValidation(err))

	// The full remainder is fine.
	_, err = s.service.Refund(s.GetContext(), charge.ID, &dto.RefundRequest{Amount: lo.ToPtr(int64(5000))})
	s.NoError(err)

	remaining, err = s.service.RefundableAmount(s.GetContext(), charge.ID)
	s.NoError(err)
	s.Zero(remaining)

	// Nothing left.
	_, err = s.service.Refund(s.GetContext(), charge.ID, &dto.RefundRequest{})
	s.True(ierr.IsValidation(err))
}

func (s *BillingServiceSuite) TestRefundDefaultsToFullRemaining() {
	charge := s.charge(10000, true)

	refund, err := s.service.Refund(s.GetContext(), charge.ID, &dto.RefundRequest{})
	s.NoError(err)
	s.Equal(int64(10000), refund.Amount)
	s.Equal(types.TransactionTypeRefund, refund.Type)
	s.Require().NotNil(refund.RefundedFromID)
	s.Equal(charge.ID, *refund.RefundedFromID)
}

func (s *BillingServiceSuite) TestRefundRequiresSuccessfulCharge() {
	pending := s.charge(10000, false)

	_, err := s.service.Refund(s.GetContext(), pending.ID, &dto.RefundRequest{})
	s.True(ierr.IsInvalidOperation(err))
}

func (s *BillingServiceSuite) TestRefundOfRefundRejected() {
	charge := s.charge(10000, true)

	refund, err := s.service.Refund(s.GetContext(), charge.ID, &dto.RefundRequest{Amount: lo.ToPtr(int64(2000))})
	s.Require().NoError(err)

	_, err = s.service.Refund(s.GetContext(), refund.ID, &dto.RefundRequest{})
	s.True(ierr.IsInvalidOperation(err))
}

func (s *BillingServiceSuite) TestRefundFailsWithoutLocalWriteWhenGatewayRejects() {
	charge := s.charge(10000, true)

	s.GetGateway().FailOn("RefundPurchase")

	_, err := s.service.Refund(s.GetContext(), charge.ID, &dto.RefundRequest{})
	s.True(ierr.IsGateway(err))

	remaining, err := s.service.RefundableAmount(s.GetContext(), charge.ID)
	s.NoError(err)
	s.Equal(int64(10000), remaining)
}

func (s *BillingServiceSuite) TestLedgerRejectsAmountMutation() {
	charge := s.charge(10000, false)

	txn, err := s.GetStores().TransactionRepo.Get(s.GetContext(), charge.ID)
	s.Require().NoError(err)
	txn.Amount = 999
	err = s.GetStores().TransactionRepo.Update(s.GetContext(), txn)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *BillingServiceSuite) TestListTransactionsFilters() {
	s.charge(1000, true)
	s.charge(2000, false)

	pending, err := s.service.ListTransactions(s.GetContext(), &dto.ListTransactionsRequest{
		CustomerID: s.customerID,
		Status:     string(types.TransactionStatusPending),
	})
	s.NoError(err)
	s.Equal(1, pending.Total)
	s.Equal(int64(2000), pending.Items[0].Amount)

	all, err := s.service.ListTransactions(s.GetContext(), &dto.ListTransactionsRequest{
		CustomerID: s.customerID,
	})
	s.NoError(err)
	s.Equal(2, all.Total)
}

func (s *BillingServiceSuite) TestSyncTransactionPullsGatewayState() {
	charge := s.charge(10000, false)

	resp, err := s.service.SyncTransaction(s.GetContext(), charge.ID)
	s.NoError(err)
	// The mock gateway reports purchases as paid.
	s.Equal(types.TransactionStatusSuccess, resp.Status)
	s.NotNil(resp.ProcessedAt)
}
