package service

import (
	"testing"

	"github.com/hyperbill/cashier/internal/api/dto"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/testutil"
	"github.com/stretchr/testify/suite"
)

type CustomerServiceSuite struct {
	testutil.BaseServiceTestSuite
	service CustomerService
}

func TestCustomerService(t *testing.T) {
	suite.Run(t, new(CustomerServiceSuite))
}

func (s *CustomerServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewCustomerService(s.params())
}

func (s *CustomerServiceSuite) params() ServiceParams {
	return ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		CustomerRepo:     s.GetStores().CustomerRepo,
		SubscriptionRepo: s.GetStores().SubscriptionRepo,
		TransactionRepo:  s.GetStores().TransactionRepo,
		Gateway:          s.GetGateway(),
		Cache:            s.GetCache(),
	}
}

func (s *CustomerServiceSuite) TestCreateCustomer() {
	resp, err := s.service.CreateCustomer(s.GetContext(), &dto.CreateCustomerRequest{
		Email: "jo@example.com",
		Name:  "Jo",
	})
	s.NoError(err)
	s.NotEmpty(resp.ID)
	s.False(resp.HasGatewayID())
	s.False(resp.OnGenericTrial)

	// Creation alone never touches the gateway.
	s.Empty(s.GetGateway().Calls())
}

func (s *CustomerServiceSuite) TestCreateCustomerWithGenericTrial() {
	resp, err := s.service.CreateCustomer(s.GetContext(), &dto.CreateCustomerRequest{
		Email:     "jo@example.com",
		TrialDays: 14,
	})
	s.NoError(err)
	s.True(resp.OnGenericTrial)
}

func (s *CustomerServiceSuite) TestCreateCustomerRequiresEmail() {
	_, err := s.service.CreateCustomer(s.GetContext(), &dto.CreateCustomerRequest{})
	s.True(ierr.IsValidation(err))
}

func (s *CustomerServiceSuite) TestGetCustomerNotFound() {
	_, err := s.service.GetCustomer(s.GetContext(), "cust_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *CustomerServiceSuite) TestUpdateCustomerPushesToGatewayClient() {
	created, err := s.service.CreateCustomer(s.GetContext(), &dto.CreateCustomerRequest{
		Email: "jo@example.com",
		Name:  "Jo",
	})
	s.Require().NoError(err)
	_, err = s.service.EnsureGatewayCustomer(s.GetContext(), created.ID)
	s.Require().NoError(err)

	resp, err := s.service.UpdateCustomer(s.GetContext(), created.ID, &dto.UpdateCustomerRequest{
		Email: "jo.new@example.com",
	})
	s.NoError(err)
	s.Equal("jo.new@example.com", resp.Email)
	// The omitted name keeps its current value.
	s.Equal("Jo", resp.Name)
	s.Equal(1, s.GetGateway().CallCount("UpdateClient"))
}

func (s *CustomerServiceSuite) TestUpdateCustomerWithoutGatewayIdentityStaysLocal() {
	created, err := s.service.CreateCustomer(s.GetContext(), &dto.CreateCustomerRequest{
		Email: "jo@example.com",
	})
	s.Require().NoError(err)

	resp, err := s.service.UpdateCustomer(s.GetContext(), created.ID, &dto.UpdateCustomerRequest{
		Name: "Jo Updated",
	})
	s.NoError(err)
	s.Equal("Jo Updated", resp.Name)

	// No remote client exists yet, so nothing is pushed.
	s.Empty(s.GetGateway().Calls())
}

func (s *CustomerServiceSuite) TestUpdateCustomerSurvivesGatewayFailure() {
	created, err := s.service.CreateCustomer(s.GetContext(), &dto.CreateCustomerRequest{
		Email: "jo@example.com",
	})
	s.Require().NoError(err)
	_, err = s.service.EnsureGatewayCustomer(s.GetContext(), created.ID)
	s.Require().NoError(err)

	s.GetGateway().FailOn("UpdateClient")

	// The push is best-effort; the local record still moves.
	resp, err := s.service.UpdateCustomer(s.GetContext(), created.ID, &dto.UpdateCustomerRequest{
		Email: "jo.new@example.com",
	})
	s.NoError(err)
	s.Equal("jo.new@example.com", resp.Email)

	stored, err := s.service.GetCustomer(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal("jo.new@example.com", stored.Email)
}

func (s *CustomerServiceSuite) TestUpdateCustomerRequiresAChange() {
	created, err := s.service.CreateCustomer(s.GetContext(), &dto.CreateCustomerRequest{
		Email: "jo@example.com",
	})
	s.Require().NoError(err)

	_, err = s.service.UpdateCustomer(s.GetContext(), created.ID, &dto.UpdateCustomerRequest{})
	s.True(ierr.IsValidation(err))
}

func (s *CustomerServiceSuite) TestEnsureGatewayCustomerCreatesOnce() {
	created, err := s.service.CreateCustomer(s.GetContext(), &dto.CreateCustomerRequest{
		Email: "jo@example.com",
	})
	s.NoError(err)

	first, err := s.service.EnsureGatewayCustomer(s.GetContext(), created.ID)
	s.NoError(err)
	s.True(first.HasGatewayID())

	second, err := s.service.EnsureGatewayCustomer(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(*first.GatewayID, *second.GatewayID)

	// The remote client is created exactly once.
	s.Equal(1, s.GetGateway().CallCount("CreateClient"))
}

func (s *CustomerServiceSuite) TestEnsureGatewayCustomerKeepsExistingIdentity() {
	created, err := s.service.CreateCustomer(s.GetContext(), &dto.CreateCustomerRequest{
		Email: "jo@example.com",
	})
	s.NoError(err)

	// A concurrent request already bound the identity.
	s.NoError(s.GetStores().CustomerRepo.SetGatewayID(s.GetContext(), created.ID, "gw_client_race"))

	resolved, err := s.service.EnsureGatewayCustomer(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal("gw_client_race", *resolved.GatewayID)
	s.Zero(s.GetGateway().CallCount("CreateClient"))
}

func (s *CustomerServiceSuite) TestGatewayIdentityCannotBeRebound() {
	created, err := s.service.CreateCustomer(s.GetContext(), &dto.CreateCustomerRequest{
		Email: "jo@example.com",
	})
	s.NoError(err)

	s.NoError(s.GetStores().CustomerRepo.SetGatewayID(s.GetContext(), created.ID, "gw_client_1"))
	err = s.GetStores().CustomerRepo.SetGatewayID(s.GetContext(), created.ID, "gw_client_2")
	s.True(ierr.IsAlreadyExists(err))

	// Rebinding to the same identity is a no-op.
	s.NoError(s.GetStores().CustomerRepo.SetGatewayID(s.GetContext(), created.ID, "gw_client_1"))
}
