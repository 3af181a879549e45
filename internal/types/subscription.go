package types

import (
	ierr "github.com/hyperbill/cashier/internal/errors"
)

// SubscriptionStatus mirrors the gateway-reported lifecycle status. The
// authoritative local lifecycle (trialing, grace, ended) is derived from
// timestamps, not from this field; see the subscription domain package.
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing  SubscriptionStatus = "trialing"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

// CancelMode selects between scheduled and immediate cancellation.
type CancelMode string

const (
	// CancelModeEndOfPeriod schedules the cancellation for the next billing
	// boundary and leaves the subscription usable until then.
	CancelModeEndOfPeriod CancelMode = "end_of_period"
	// CancelModeImmediate ends the subscription right away.
	CancelModeImmediate CancelMode = "immediate"
)

func (m CancelMode) Validate() error {
	if m != CancelModeEndOfPeriod && m != CancelModeImmediate {
		return ierr.NewError("invalid cancel mode").
			WithHintf("Cancel mode must be %q or %q", CancelModeEndOfPeriod, CancelModeImmediate).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GatewayRefKind tags how a subscription is backed at the payment gateway.
type GatewayRefKind string

const (
	// GatewayRefLocalOnly marks trial subscriptions that were synthesized
	// locally and never created at the gateway.
	GatewayRefLocalOnly GatewayRefKind = "local_only"
	// GatewayRefBacked marks subscriptions with a real gateway identity.
	GatewayRefBacked GatewayRefKind = "gateway_backed"
)

// GatewayRef is a tagged reference to a subscription's gateway identity.
// Local-only refs carry a synthetic trial-prefixed identifier so stores and
// payloads can still key on a string without confusing it for a billed
// subscription.
type GatewayRef struct {
	Kind GatewayRefKind `json:"kind"`
	ID   string         `json:"id"`
}

// NewLocalOnlyRef synthesizes a reference for a trial subscription that has
// no gateway counterpart.
func NewLocalOnlyRef() GatewayRef {
	return GatewayRef{
		Kind: GatewayRefLocalOnly,
		ID:   GenerateUUIDWithPrefix(TrialIDPrefix),
	}
}

// NewGatewayBackedRef wraps a gateway-issued subscription identifier.
func NewGatewayBackedRef(id string) GatewayRef {
	return GatewayRef{
		Kind: GatewayRefBacked,
		ID:   id,
	}
}

// IsLocalOnly reports whether the subscription exists only in the local
// ledger store.
func (r GatewayRef) IsLocalOnly() bool {
	return r.Kind == GatewayRefLocalOnly
}

func (r GatewayRef) String() string {
	return r.ID
}
