package subscription

import (
	"testing"
	"time"

	"github.com/hyperbill/cashier/internal/types"
	"github.com/stretchr/testify/assert"
)

func ptr(t time.Time) *time.Time { return &t }

func TestLifecyclePredicates(t *testing.T) {
	future := time.Now().UTC().Add(10 * 24 * time.Hour)
	past := time.Now().UTC().Add(-10 * 24 * time.Hour)

	tests := []struct {
		name        string
		trialEndsAt *time.Time
		endsAt      *time.Time
		onTrial     bool
		onGrace     bool
		active      bool
		cancelled   bool
		ended       bool
		recurring   bool
		valid       bool
	}{
		{
			name:      "never cancelled, no trial",
			active:    true,
			recurring: true,
			valid:     true,
		},
		{
			name:        "on trial, never cancelled",
			trialEndsAt: ptr(future),
			onTrial:     true,
			active:      true,
			valid:       true,
		},
		{
			name:        "trial expired, never cancelled",
			trialEndsAt: ptr(past),
			active:      true,
			recurring:   true,
			valid:       true,
		},
		{
			name:      "cancelled with future end (grace period)",
			endsAt:    ptr(future),
			onGrace:   true,
			active:    true,
			cancelled: true,
			valid:     true,
		},
		{
			name:      "cancelled with past end (ended)",
			endsAt:    ptr(past),
			cancelled: true,
			ended:     true,
		},
		{
			name:        "on trial and cancelled with future end",
			trialEndsAt: ptr(future),
			endsAt:      ptr(future),
			onTrial:     true,
			onGrace:     true,
			active:      true,
			cancelled:   true,
			valid:       true,
		},
		{
			name:        "on trial but cancelled immediately",
			trialEndsAt: ptr(future),
			endsAt:      ptr(past),
			onTrial:     true,
			cancelled:   true,
			ended:       true,
			valid:       true,
		},
		{
			name:        "trial expired and ended",
			trialEndsAt: ptr(past),
			endsAt:      ptr(past),
			cancelled:   true,
			ended:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscription{
				ID:          "sub_test",
				CustomerID:  "cust_test",
				Name:        "default",
				GatewayRef:  types.NewGatewayBackedRef("gw_sub_test"),
				PlanID:      "plan_basic",
				Quantity:    1,
				TrialEndsAt: tt.trialEndsAt,
				EndsAt:      tt.endsAt,
			}

			assert.Equal(t, tt.onTrial, sub.OnTrial(), "OnTrial")
			assert.Equal(t, tt.onGrace, sub.OnGracePeriod(), "OnGracePeriod")
			assert.Equal(t, tt.active, sub.Active(), "Active")
			assert.Equal(t, tt.cancelled, sub.Cancelled(), "Cancelled")
			assert.Equal(t, tt.ended, sub.Ended(), "Ended")
			assert.Equal(t, tt.recurring, sub.Recurring(), "Recurring")
			assert.Equal(t, tt.valid, sub.Valid(), "Valid")

			// Valid must always decompose into its constituent predicates.
			assert.Equal(t, sub.Active() || sub.OnTrial() || sub.OnGracePeriod(), sub.Valid())
			// Ended and Valid are mutually exclusive unless a trial outlives
			// the cancellation.
			if sub.Ended() && !sub.OnTrial() {
				assert.False(t, sub.Valid())
			}
		})
	}
}

func TestLocalOnlyRef(t *testing.T) {
	local := types.NewLocalOnlyRef()
	assert.True(t, local.IsLocalOnly())
	assert.Contains(t, local.ID, types.TrialIDPrefix+"_")

	backed := types.NewGatewayBackedRef("gw_sub_123")
	assert.False(t, backed.IsLocalOnly())
	assert.Equal(t, "gw_sub_123", backed.String())
}

func TestHasPlan(t *testing.T) {
	sub := &Subscription{PlanID: "plan_pro"}
	assert.True(t, sub.HasPlan("plan_basic", "plan_pro"))
	assert.False(t, sub.HasPlan("plan_basic"))
}

func TestValidate(t *testing.T) {
	sub := &Subscription{
		ID:         "sub_test",
		CustomerID: "cust_test",
		Name:       "default",
		GatewayRef: types.NewLocalOnlyRef(),
		PlanID:     "plan_basic",
		Quantity:   1,
	}
	assert.NoError(t, sub.Validate())

	sub.Quantity = 0
	assert.Error(t, sub.Validate())
}
