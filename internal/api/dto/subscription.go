package dto

import (
	"time"

	"github.com/hyperbill/cashier/internal/domain/subscription"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/types"
	"github.com/hyperbill/cashier/internal/validator"
)

type CreateSubscriptionRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	// Name is the slot identifier, defaults to "default"
	Name     string `json:"name" validate:"omitempty,max=255"`
	PlanID   string `json:"plan_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"omitempty,gte=0"`
	// TrialDays creates a local-only trialing subscription with no gateway
	// call; the gateway agreement is created later when the trial converts.
	// TrialUntil is the explicit-instant alternative and takes precedence.
	TrialDays  int            `json:"trial_days,omitempty" validate:"omitempty,gte=0"`
	TrialUntil *time.Time     `json:"trial_until,omitempty"`
	Metadata   types.Metadata `json:"metadata,omitempty"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.CustomerID == "" {
		return ierr.NewError("customer id is required").
			WithHint("Subscription must belong to a customer").
			Mark(ierr.ErrValidation)
	}
	if r.PlanID == "" {
		return ierr.NewError("plan id is required").
			WithHint("Subscription must reference a plan").
			Mark(ierr.ErrValidation)
	}
	if r.TrialUntil != nil && !r.TrialUntil.After(time.Now().UTC()) {
		return ierr.NewError("invalid trial end").
			WithHint("trial_until must be in the future").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TrialEnd resolves the requested trial end instant, nil when no trial was
// requested.
func (r *CreateSubscriptionRequest) TrialEnd() *time.Time {
	if r.TrialUntil != nil {
		return r.TrialUntil
	}
	if r.TrialDays > 0 {
		end := time.Now().UTC().AddDate(0, 0, r.TrialDays)
		return &end
	}
	return nil
}

type CancelSubscriptionRequest struct {
	Mode types.CancelMode `json:"mode"`
}

func (r *CancelSubscriptionRequest) Validate() error {
	if r.Mode == "" {
		r.Mode = types.CancelModeEndOfPeriod
	}
	return r.Mode.Validate()
}

type UpdateSubscriptionQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

func (r *UpdateSubscriptionQuantityRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// SubscriptionResponse carries the stored record plus its derived lifecycle
// view, so callers never re-implement the timestamp predicates.
type SubscriptionResponse struct {
	*subscription.Subscription
	OnTrial       bool `json:"on_trial"`
	OnGracePeriod bool `json:"on_grace_period"`
	Active        bool `json:"active"`
	Cancelled     bool `json:"cancelled"`
	Ended         bool `json:"ended"`
	Recurring     bool `json:"recurring"`
	Valid         bool `json:"valid"`
}

func NewSubscriptionResponse(s *subscription.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		Subscription:  s,
		OnTrial:       s.OnTrial(),
		OnGracePeriod: s.OnGracePeriod(),
		Active:        s.Active(),
		Cancelled:     s.Cancelled(),
		Ended:         s.Ended(),
		Recurring:     s.Recurring(),
		Valid:         s.Valid(),
	}
}

type ListSubscriptionsResponse struct {
	Items []*SubscriptionResponse `json:"items"`
	Total int                     `json:"total"`
}
