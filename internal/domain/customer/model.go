package customer

import (
	"time"

	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/types"
)

// Customer binds a local billable entity to its gateway identity. The
// gateway id is nil until the first billing action forces a sync; once set
// it never changes except through an explicit update call.
type Customer struct {
	// Unique identifier for the local billable entity
	ID string `json:"id"`
	// GatewayID is the customer identifier issued by the payment gateway
	GatewayID *string `json:"gateway_id,omitempty"`
	// Email of the customer
	Email string `json:"email"`
	// Name of the customer
	Name string `json:"name"`
	// TrialEndsAt is an entity-level generic trial, independent of any
	// subscription-level trial
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`

	types.BaseModel
}

// HasGatewayID reports whether the customer has been synced to the gateway.
func (c *Customer) HasGatewayID() bool {
	return c.GatewayID != nil && *c.GatewayID != ""
}

// OnGenericTrial reports whether the entity-level trial is still running.
func (c *Customer) OnGenericTrial() bool {
	return c.TrialEndsAt != nil && c.TrialEndsAt.After(time.Now().UTC())
}

// Validate validates the customer
func (c *Customer) Validate() error {
	if c.ID == "" {
		return ierr.NewError("customer id is required").
			WithHint("Customer ID cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if c.Email == "" {
		return ierr.NewError("customer email is required").
			WithHint("Customer email cannot be empty").
			Mark(ierr.ErrValidation)
	}
	return nil
}
