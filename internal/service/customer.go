package service

import (
	"context"

	"github.com/hyperbill/cashier/internal/api/dto"
	"github.com/hyperbill/cashier/internal/domain/customer"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/gateway/chip"
)

// CustomerService manages billable entities and their gateway identities.
type CustomerService interface {
	CreateCustomer(ctx context.Context, req *dto.CreateCustomerRequest) (*dto.CustomerResponse, error)
	GetCustomer(ctx context.Context, id string) (*dto.CustomerResponse, error)
	ListCustomers(ctx context.Context) ([]*dto.CustomerResponse, error)

	// UpdateCustomer applies the change locally and pushes it to the gateway
	// client when one exists. Client data is never corrected by webhooks, so
	// the push is best-effort and the local record stays authoritative.
	UpdateCustomer(ctx context.Context, id string, req *dto.UpdateCustomerRequest) (*dto.CustomerResponse, error)

	// EnsureGatewayCustomer syncs the customer to the gateway at most once.
	// A pre-existing identity is returned as-is; a lost creation race is
	// resolved by re-reading the winner's identity, never by duplicating.
	EnsureGatewayCustomer(ctx context.Context, id string) (*customer.Customer, error)
}

type customerService struct {
	ServiceParams
}

func NewCustomerService(params ServiceParams) CustomerService {
	return &customerService{ServiceParams: params}
}

func (s *customerService) CreateCustomer(ctx context.Context, req *dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c := req.ToCustomer()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.CustomerRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.Logger.Infow("created customer", "customer_id", c.ID)
	return dto.NewCustomerResponse(c), nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (*dto.CustomerResponse, error) {
	c, err := s.CustomerRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewCustomerResponse(c), nil
}

func (s *customerService) ListCustomers(ctx context.Context) ([]*dto.CustomerResponse, error) {
	customers, err := s.CustomerRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.CustomerResponse, 0, len(customers))
	for _, c := range customers {
		out = append(out, dto.NewCustomerResponse(c))
	}
	return out, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, req *dto.UpdateCustomerRequest) (*dto.CustomerResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c, err := s.CustomerRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Email != "" {
		c.Email = req.Email
	}
	if req.Name != "" {
		c.Name = req.Name
	}
	if err := s.CustomerRepo.Update(ctx, c); err != nil {
		return nil, err
	}

	if c.HasGatewayID() {
		if _, gwErr := s.Gateway.UpdateClient(ctx, *c.GatewayID, &chip.ClientRequest{
			Email:    c.Email,
			FullName: c.Name,
		}); gwErr != nil {
			s.Logger.Errorw("gateway client update failed, keeping local record",
				"customer_id", c.ID,
				"error", gwErr,
			)
		}
	}

	s.Logger.Infow("updated customer", "customer_id", c.ID)
	return dto.NewCustomerResponse(c), nil
}

func (s *customerService) EnsureGatewayCustomer(ctx context.Context, id string) (*customer.Customer, error) {
	c, err := s.CustomerRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.HasGatewayID() {
		return c, nil
	}

	client, err := s.Gateway.CreateClient(ctx, &chip.ClientRequest{
		Email:    c.Email,
		FullName: c.Name,
	})
	if err != nil {
		return nil, err
	}

	if err := s.CustomerRepo.SetGatewayID(ctx, c.ID, client.ID); err != nil {
		if ierr.IsAlreadyExists(err) {
			// Lost a concurrent creation race; the winner's identity stands.
			s.Logger.Infow("gateway identity already bound, using existing",
				"customer_id", c.ID,
			)
			return s.CustomerRepo.Get(ctx, c.ID)
		}
		return nil, err
	}

	s.Logger.Infow("created gateway customer",
		"customer_id", c.ID,
		"gateway_id", client.ID,
	)
	return s.CustomerRepo.Get(ctx, c.ID)
}
