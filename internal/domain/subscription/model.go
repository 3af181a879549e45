package subscription

import (
	"time"

	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/types"
)

// Subscription is the local authoritative record of a recurring billing
// agreement. Lifecycle state (trialing, grace, ended) is derived from the
// stored timestamps against wall-clock time at query time; there is no
// background sweep materializing an "ended" status. Timestamp comparisons
// commute, which keeps the state machine idempotent under out-of-order
// webhook application.
type Subscription struct {
	// Unique identifier for the local subscription record
	ID string `json:"id"`
	// CustomerID is the owning billable entity
	CustomerID string `json:"customer_id"`
	// Name is a slot identifier allowing multiple concurrent subscriptions
	// per owner, e.g. "default", "addon"
	Name string `json:"name"`
	// GatewayRef is the tagged gateway identity; local-only for trial
	// subscriptions that were never created at the gateway
	GatewayRef types.GatewayRef `json:"gateway_ref"`
	// PlanID is the gateway price/plan identifier
	PlanID string `json:"plan_id"`
	// Quantity for seat-based billing
	Quantity int `json:"quantity"`
	// GatewayStatus is the last gateway-reported status, overwritten
	// last-writer-wins by subscription webhooks
	GatewayStatus types.SubscriptionStatus `json:"gateway_status"`
	// TrialEndsAt set and in the future means the subscription is on trial
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
	// EndsAt present signals a scheduled or completed cancellation
	EndsAt *time.Time `json:"ends_at,omitempty"`
	// PausedAt set means billing is paused at the gateway
	PausedAt *time.Time `json:"paused_at,omitempty"`
	// Metadata is an opaque key-value bag forwarded to the gateway
	Metadata types.Metadata `json:"metadata,omitempty"`

	types.BaseModel
}

// Item is one priced line within a subscription, for quantity/seat-based
// billing.
type Item struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	PlanID         string `json:"plan_id"`
	Quantity       int    `json:"quantity"`

	types.BaseModel
}

// OnTrial determines if the subscription is within its trial period.
func (s *Subscription) OnTrial() bool {
	return s.TrialEndsAt != nil && s.TrialEndsAt.After(time.Now().UTC())
}

// OnGracePeriod determines if the subscription is within its grace period
// after a scheduled cancellation.
func (s *Subscription) OnGracePeriod() bool {
	return s.EndsAt != nil && s.EndsAt.After(time.Now().UTC())
}

// Active determines if the subscription is active: never cancelled, or
// cancelled but still inside the grace period.
func (s *Subscription) Active() bool {
	return s.EndsAt == nil || s.OnGracePeriod()
}

// Cancelled determines if a cancellation has been scheduled or completed.
func (s *Subscription) Cancelled() bool {
	return s.EndsAt != nil
}

// Ended determines if the subscription is cancelled and past its grace
// period.
func (s *Subscription) Ended() bool {
	return s.Cancelled() && !s.OnGracePeriod()
}

// Recurring determines if the subscription is billing normally: not on
// trial and not cancelled.
func (s *Subscription) Recurring() bool {
	return !s.OnTrial() && !s.Cancelled()
}

// Valid determines if the subscription entitles the owner to the product.
func (s *Subscription) Valid() bool {
	return s.Active() || s.OnTrial() || s.OnGracePeriod()
}

// IsLocalOnly reports whether the subscription has no gateway counterpart.
func (s *Subscription) IsLocalOnly() bool {
	return s.GatewayRef.IsLocalOnly()
}

// HasPlan determines if the subscription is for one of the given plans.
func (s *Subscription) HasPlan(planIDs ...string) bool {
	for _, id := range planIDs {
		if s.PlanID == id {
			return true
		}
	}
	return false
}

// Validate validates the subscription
func (s *Subscription) Validate() error {
	if s.ID == "" {
		return ierr.NewError("subscription id is required").
			WithHint("Subscription ID cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if s.CustomerID == "" {
		return ierr.NewError("customer id is required").
			WithHint("Subscription must belong to a customer").
			Mark(ierr.ErrValidation)
	}
	if s.Name == "" {
		return ierr.NewError("subscription name is required").
			WithHint("Subscription name cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if s.PlanID == "" {
		return ierr.NewError("plan id is required").
			WithHint("Subscription must reference a plan").
			Mark(ierr.ErrValidation)
	}
	if s.Quantity < 1 {
		return ierr.NewError("invalid quantity").
			WithHint("Quantity must be at least 1").
			Mark(ierr.ErrValidation)
	}
	return nil
}
