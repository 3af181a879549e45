package dto

import (
	"time"

	"github.com/hyperbill/cashier/internal/domain/customer"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/types"
	"github.com/hyperbill/cashier/internal/validator"
)

type CreateCustomerRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"omitempty,max=255"`
	// TrialDays starts an entity-level generic trial at creation
	TrialDays int `json:"trial_days,omitempty" validate:"omitempty,gte=0"`
}

func (r *CreateCustomerRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.Email == "" {
		return ierr.NewError("email is required").
			WithHint("Customer email cannot be empty").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToCustomer builds the domain model from the request.
func (r *CreateCustomerRequest) ToCustomer() *customer.Customer {
	c := &customer.Customer{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
		Email:     r.Email,
		Name:      r.Name,
		BaseModel: types.GetDefaultBaseModel(),
	}
	if r.TrialDays > 0 {
		trialEnd := time.Now().UTC().AddDate(0, 0, r.TrialDays)
		c.TrialEndsAt = &trialEnd
	}
	return c
}

// UpdateCustomerRequest changes the contact details of a customer. Omitted
// fields keep their current value.
type UpdateCustomerRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Name  string `json:"name" validate:"omitempty,max=255"`
}

func (r *UpdateCustomerRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.Email == "" && r.Name == "" {
		return ierr.NewError("nothing to update").
			WithHint("Provide an email or a name").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type CustomerResponse struct {
	*customer.Customer
	OnGenericTrial bool `json:"on_generic_trial"`
}

func NewCustomerResponse(c *customer.Customer) *CustomerResponse {
	return &CustomerResponse{
		Customer:       c,
		OnGenericTrial: c.OnGenericTrial(),
	}
}
