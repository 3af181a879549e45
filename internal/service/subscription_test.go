package service

import (
	"strings"
	"testing"
	"time"

	"github.com/hyperbill/cashier/internal/api/dto"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/testutil"
	"github.com/hyperbill/cashier/internal/types"
	"github.com/stretchr/testify/suite"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service    SubscriptionService
	customerID string
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
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
	s.service = NewSubscriptionService(params)

	customers := NewCustomerService(params)
	resp, err := customers.CreateCustomer(s.GetContext(), &dto.CreateCustomerRequest{
		Email: "jo@example.com",
	})
	s.Require().NoError(err)
	s.customerID = resp.ID
}

func (s *SubscriptionServiceSuite) TestCreateTrialSubscriptionIsLocalOnly() {
	resp, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_basic",
		TrialDays:  14,
	})
	s.NoError(err)

	s.True(resp.OnTrial)
	s.True(resp.Valid)
	s.True(resp.GatewayRef.IsLocalOnly())
	s.True(strings.HasPrefix(resp.GatewayRef.ID, types.TrialIDPrefix+"_"))
	s.Equal(types.SubscriptionStatusTrialing, resp.GatewayStatus)

	// The gateway is never called on the trial path.
	s.Empty(s.GetGateway().Calls())
}

func (s *SubscriptionServiceSuite) TestCreateTrialSubscriptionUntilInstant() {
	until := s.GetNow().Add(72 * time.Hour)
	resp, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_basic",
		TrialUntil: &until,
	})
	s.NoError(err)

	s.True(resp.OnTrial)
	s.Require().NotNil(resp.TrialEndsAt)
	s.True(resp.TrialEndsAt.Equal(until))
	s.Empty(s.GetGateway().Calls())

	past := s.GetNow().Add(-time.Hour)
	_, err = s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		Name:       "addon",
		PlanID:     "plan_basic",
		TrialUntil: &past,
	})
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionServiceSuite) TestCreateGatewaySubscription() {
	resp, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
		Quantity:   3,
	})
	s.NoError(err)

	s.False(resp.GatewayRef.IsLocalOnly())
	s.Equal(types.SubscriptionStatusActive, resp.GatewayStatus)
	s.Equal(3, resp.Quantity)
	s.True(resp.Active)
	s.False(resp.OnTrial)

	// The customer is synced to the gateway before the agreement exists.
	s.Equal(1, s.GetGateway().CallCount("CreateClient"))
	s.Equal(1, s.GetGateway().CallCount("CreateSubscription"))

	items, err := s.GetStores().SubscriptionRepo.ListItems(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Require().Len(items, 1)
	s.Equal(3, items[0].Quantity)
}

func (s *SubscriptionServiceSuite) TestCreateFailsWhenGatewayRejects() {
	s.GetGateway().FailOn("CreateSubscription")

	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
	})
	s.True(ierr.IsGateway(err))

	// All-or-nothing: no local record survives a failed gateway create.
	subs, listErr := s.service.ListSubscriptions(s.GetContext(), s.customerID)
	s.NoError(listErr)
	s.Zero(subs.Total)
}

func (s *SubscriptionServiceSuite) TestSecondValidSubscriptionPerSlotRejected() {
	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_basic",
		TrialDays:  7,
	})
	s.NoError(err)

	_, err = s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
	})
	s.True(ierr.IsAlreadyExists(err))

	// A different slot name is fine.
	_, err = s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		Name:       "addon",
		PlanID:     "plan_pro",
	})
	s.NoError(err)
}

func (s *SubscriptionServiceSuite) TestCancelEndOfPeriodEntersGrace() {
	nextBilling := time.Now().UTC().Add(10 * 24 * time.Hour).Truncate(time.Second)
	s.GetGateway().NextBillingDate = nextBilling.Unix()

	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
	})
	s.Require().NoError(err)

	resp, err := s.service.CancelSubscription(s.GetContext(), created.ID, &dto.CancelSubscriptionRequest{
		Mode: types.CancelModeEndOfPeriod,
	})
	s.NoError(err)

	s.Require().NotNil(resp.EndsAt)
	s.True(resp.EndsAt.Equal(nextBilling))
	s.True(resp.OnGracePeriod)
	s.True(resp.Active)
	s.True(resp.Cancelled)
	s.False(resp.Ended)
	s.Equal(1, s.GetGateway().CallCount("CancelSubscription"))
}

func (s *SubscriptionServiceSuite) TestCancelImmediateEnds() {
	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
	})
	s.Require().NoError(err)

	resp, err := s.service.CancelSubscription(s.GetContext(), created.ID, &dto.CancelSubscriptionRequest{
		Mode: types.CancelModeImmediate,
	})
	s.NoError(err)
	s.True(resp.Ended)
	s.False(resp.Active)
	s.False(resp.Valid)
}

func (s *SubscriptionServiceSuite) TestCancelSurvivesGatewayFailure() {
	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
	})
	s.Require().NoError(err)

	s.GetGateway().FailOn("CancelSubscription")

	// The gateway call is best-effort; local cancellation still lands.
	resp, err := s.service.CancelSubscription(s.GetContext(), created.ID, &dto.CancelSubscriptionRequest{
		Mode: types.CancelModeEndOfPeriod,
	})
	s.NoError(err)
	s.True(resp.Cancelled)
}

func (s *SubscriptionServiceSuite) TestCancelEndedSubscriptionIsNoOp() {
	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
	})
	s.Require().NoError(err)

	first, err := s.service.CancelSubscription(s.GetContext(), created.ID, &dto.CancelSubscriptionRequest{
		Mode: types.CancelModeImmediate,
	})
	s.Require().NoError(err)
	s.True(first.Ended)

	calls := s.GetGateway().CallCount("CancelSubscription")

	second, err := s.service.CancelSubscription(s.GetContext(), created.ID, &dto.CancelSubscriptionRequest{
		Mode: types.CancelModeImmediate,
	})
	s.NoError(err)
	s.True(second.EndsAt.Equal(*first.EndsAt))
	s.Equal(calls, s.GetGateway().CallCount("CancelSubscription"))
}

func (s *SubscriptionServiceSuite) TestCancelLocalOnlyTrialNeverCallsGateway() {
	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_basic",
		TrialDays:  14,
	})
	s.Require().NoError(err)

	resp, err := s.service.CancelSubscription(s.GetContext(), created.ID, &dto.CancelSubscriptionRequest{
		Mode: types.CancelModeEndOfPeriod,
	})
	s.NoError(err)
	s.True(resp.Cancelled)
	s.Zero(s.GetGateway().CallCount("CancelSubscription"))
}

func (s *SubscriptionServiceSuite) TestResumeWithinGrace() {
	nextBilling := time.Now().UTC().Add(10 * 24 * time.Hour)
	s.GetGateway().NextBillingDate = nextBilling.Unix()

	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
	})
	s.Require().NoError(err)

	_, err = s.service.CancelSubscription(s.GetContext(), created.ID, &dto.CancelSubscriptionRequest{
		Mode: types.CancelModeEndOfPeriod,
	})
	s.Require().NoError(err)

	resp, err := s.service.ResumeSubscription(s.GetContext(), created.ID)
	s.NoError(err)
	s.Nil(resp.EndsAt)
	s.False(resp.Cancelled)
	s.True(resp.Active)
	s.Equal(types.SubscriptionStatusActive, resp.GatewayStatus)
	s.Equal(1, s.GetGateway().CallCount("ResumeSubscription"))
}

func (s *SubscriptionServiceSuite) TestResumeEndedSubscriptionRejected() {
	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
	})
	s.Require().NoError(err)

	_, err = s.service.CancelSubscription(s.GetContext(), created.ID, &dto.CancelSubscriptionRequest{
		Mode: types.CancelModeImmediate,
	})
	s.Require().NoError(err)

	_, err = s.service.ResumeSubscription(s.GetContext(), created.ID)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestUpdateQuantity() {
	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
	})
	s.Require().NoError(err)

	resp, err := s.service.UpdateQuantity(s.GetContext(), created.ID, &dto.UpdateSubscriptionQuantityRequest{
		Quantity: 7,
	})
	s.NoError(err)
	s.Equal(7, resp.Quantity)
	s.Equal(1, s.GetGateway().CallCount("UpdateSubscription"))

	items, err := s.GetStores().SubscriptionRepo.ListItems(s.GetContext(), created.ID)
	s.NoError(err)
	s.Require().Len(items, 1)
	s.Equal(7, items[0].Quantity)
}

func (s *SubscriptionServiceSuite) TestUpdateQuantityFailsWhenGatewayRejects() {
	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
	})
	s.Require().NoError(err)

	s.GetGateway().FailOn("UpdateSubscription")

	_, err = s.service.UpdateQuantity(s.GetContext(), created.ID, &dto.UpdateSubscriptionQuantityRequest{
		Quantity: 7,
	})
	s.True(ierr.IsGateway(err))

	unchanged, err := s.service.GetSubscription(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(1, unchanged.Quantity)
}

func (s *SubscriptionServiceSuite) TestCancelAllSubscriptions() {
	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
	})
	s.Require().NoError(err)
	_, err = s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		Name:       "addon",
		PlanID:     "plan_basic",
	})
	s.Require().NoError(err)

	s.NoError(s.service.CancelAllSubscriptions(s.GetContext(), s.customerID, types.CancelModeImmediate))

	subs, err := s.service.ListSubscriptions(s.GetContext(), s.customerID)
	s.NoError(err)
	for _, sub := range subs.Items {
		s.True(sub.Cancelled)
	}
}

func (s *SubscriptionServiceSuite) TestCancelAllTightensGracePeriodToImmediate() {
	nextBilling := time.Now().UTC().Add(10 * 24 * time.Hour)
	s.GetGateway().NextBillingDate = nextBilling.Unix()

	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
	})
	s.Require().NoError(err)

	grace, err := s.service.CancelSubscription(s.GetContext(), created.ID, &dto.CancelSubscriptionRequest{
		Mode: types.CancelModeEndOfPeriod,
	})
	s.Require().NoError(err)
	s.Require().True(grace.OnGracePeriod)

	s.NoError(s.service.CancelAllSubscriptions(s.GetContext(), s.customerID, types.CancelModeImmediate))

	resp, err := s.service.GetSubscription(s.GetContext(), created.ID)
	s.NoError(err)
	s.True(resp.Ended)
	s.False(resp.OnGracePeriod)
}

func (s *SubscriptionServiceSuite) TestGetSubscriptionByNameDefaultsSlot() {
	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: s.customerID,
		PlanID:     "plan_pro",
	})
	s.Require().NoError(err)

	resp, err := s.service.GetSubscriptionByName(s.GetContext(), s.customerID, "")
	s.NoError(err)
	s.Equal(created.ID, resp.ID)
}
