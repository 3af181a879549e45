package service

import (
	"context"
	"time"

	"github.com/hyperbill/cashier/internal/api/dto"
	"github.com/hyperbill/cashier/internal/domain/subscription"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/gateway/chip"
	"github.com/hyperbill/cashier/internal/types"
)

const defaultSubscriptionName = "default"

// SubscriptionService drives the subscription lifecycle. Create paths are
// all-or-nothing against the gateway; cancel and resume apply locally first
// and treat the gateway call as best-effort, reconciled later by webhooks.
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	GetSubscriptionByName(ctx context.Context, customerID, name string) (*dto.SubscriptionResponse, error)
	ListSubscriptions(ctx context.Context, customerID string) (*dto.ListSubscriptionsResponse, error)
	CancelSubscription(ctx context.Context, id string, req *dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error)
	ResumeSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	UpdateQuantity(ctx context.Context, id string, req *dto.UpdateSubscriptionQuantityRequest) (*dto.SubscriptionResponse, error)
	CancelAllSubscriptions(ctx context.Context, customerID string, mode types.CancelMode) error
}

type subscriptionService struct {
	ServiceParams
	customerService CustomerService
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{
		ServiceParams:   params,
		customerService: NewCustomerService(params),
	}
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = defaultSubscriptionName
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	if _, err := s.CustomerRepo.Get(ctx, req.CustomerID); err != nil {
		return nil, err
	}

	// One valid subscription per (customer, name) slot. The store enforces
	// this again under its lock at Create; this read rejects the common case
	// before any gateway call is made.
	if _, err := s.SubscriptionRepo.GetByCustomerAndName(ctx, req.CustomerID, name); err == nil {
		return nil, ierr.NewError("subscription already exists").
			WithHintf("Customer already has a valid subscription named %q", name).
			Mark(ierr.ErrAlreadyExists)
	} else if !ierr.IsNotFound(err) {
		return nil, err
	}

	if trialEnd := req.TrialEnd(); trialEnd != nil {
		return s.createTrialSubscription(ctx, req, name, quantity, *trialEnd)
	}
	return s.createGatewaySubscription(ctx, req, name, quantity)
}

// createTrialSubscription synthesizes a local-only trialing subscription.
// The gateway is not called; the agreement is created there only when the
// trial converts to a paid subscription.
func (s *subscriptionService) createTrialSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest, name string, quantity int, trialEnd time.Time) (*dto.SubscriptionResponse, error) {
	sub := &subscription.Subscription{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		CustomerID:    req.CustomerID,
		Name:          name,
		GatewayRef:    types.NewLocalOnlyRef(),
		PlanID:        req.PlanID,
		Quantity:      quantity,
		GatewayStatus: types.SubscriptionStatusTrialing,
		TrialEndsAt:   &trialEnd,
		Metadata:      req.Metadata,
		BaseModel:     types.GetDefaultBaseModel(),
	}
	if err := s.persistWithItem(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("created trial subscription",
		"subscription_id", sub.ID,
		"customer_id", sub.CustomerID,
		"trial_ends_at", trialEnd,
	)
	return dto.NewSubscriptionResponse(sub), nil
}

// createGatewaySubscription creates the agreement at the gateway first and
// persists the local record only on success.
func (s *subscriptionService) createGatewaySubscription(ctx context.Context, req *dto.CreateSubscriptionRequest, name string, quantity int) (*dto.SubscriptionResponse, error) {
	c, err := s.customerService.EnsureGatewayCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	remote, err := s.Gateway.CreateSubscription(ctx, &chip.SubscriptionRequest{
		ClientID: *c.GatewayID,
		PlanID:   req.PlanID,
		Quantity: quantity,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	sub := &subscription.Subscription{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		CustomerID:    req.CustomerID,
		Name:          name,
		GatewayRef:    types.NewGatewayBackedRef(remote.ID),
		PlanID:        req.PlanID,
		Quantity:      quantity,
		GatewayStatus: types.SubscriptionStatusActive,
		Metadata:      req.Metadata,
		BaseModel:     types.GetDefaultBaseModel(),
	}
	if err := s.persistWithItem(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("created subscription",
		"subscription_id", sub.ID,
		"customer_id", sub.CustomerID,
		"gateway_id", remote.ID,
	)
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) persistWithItem(ctx context.Context, sub *subscription.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	if err := s.SubscriptionRepo.Create(ctx, sub); err != nil {
		return err
	}
	return s.SubscriptionRepo.CreateItem(ctx, &subscription.Item{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION_ITEM),
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		Quantity:       sub.Quantity,
		BaseModel:      types.GetDefaultBaseModel(),
	})
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubscriptionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) GetSubscriptionByName(ctx context.Context, customerID, name string) (*dto.SubscriptionResponse, error) {
	if name == "" {
		name = defaultSubscriptionName
	}
	sub, err := s.SubscriptionRepo.GetByCustomerAndName(ctx, customerID, name)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, customerID string) (*dto.ListSubscriptionsResponse, error) {
	subs, err := s.SubscriptionRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	items := make([]*dto.SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		items = append(items, dto.NewSubscriptionResponse(sub))
	}
	return &dto.ListSubscriptionsResponse{Items: items, Total: len(items)}, nil
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, id string, req *dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubscriptionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Cancelling an already ended subscription is a no-op.
	if sub.Ended() {
		return dto.NewSubscriptionResponse(sub), nil
	}

	now := time.Now().UTC()
	endsAt := now

	if req.Mode == types.CancelModeEndOfPeriod && !sub.IsLocalOnly() {
		// The gateway reports the boundary the agreement runs until. The
		// call is best-effort: on failure we fall back to a local estimate
		// and let the cancellation webhook correct it.
		remote, gwErr := s.Gateway.CancelSubscription(ctx, sub.GatewayRef.ID, &chip.CancelSubscriptionRequest{})
		switch {
		case gwErr != nil:
			s.Logger.Errorw("gateway cancel failed, applying local cancellation",
				"subscription_id", sub.ID,
				"error", gwErr,
			)
			if sub.OnTrial() {
				endsAt = *sub.TrialEndsAt
			}
		case remote.NextBillingDate > 0:
			if next := time.Unix(remote.NextBillingDate, 0).UTC(); next.After(now) {
				endsAt = next
			}
		}
	} else if req.Mode == types.CancelModeImmediate && !sub.IsLocalOnly() {
		if _, gwErr := s.Gateway.CancelSubscription(ctx, sub.GatewayRef.ID, &chip.CancelSubscriptionRequest{Immediate: true}); gwErr != nil {
			s.Logger.Errorw("gateway cancel failed, applying local cancellation",
				"subscription_id", sub.ID,
				"error", gwErr,
			)
		}
	} else if req.Mode == types.CancelModeEndOfPeriod && sub.OnTrial() {
		// Local-only trials end at the cancellation instant unless the
		// trial itself runs longer.
		endsAt = now
	}

	sub.GatewayStatus = types.SubscriptionStatusCancelled
	sub.EndsAt = &endsAt
	if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("cancelled subscription",
		"subscription_id", sub.ID,
		"mode", req.Mode,
		"ends_at", endsAt,
	)
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) ResumeSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubscriptionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !sub.Cancelled() {
		return dto.NewSubscriptionResponse(sub), nil
	}
	if sub.Ended() {
		return nil, ierr.NewError("subscription has ended").
			WithHint("Only subscriptions inside their grace period can be resumed").
			Mark(ierr.ErrInvalidOperation)
	}

	if !sub.IsLocalOnly() {
		if _, gwErr := s.Gateway.ResumeSubscription(ctx, sub.GatewayRef.ID); gwErr != nil {
			s.Logger.Errorw("gateway resume failed, applying local resume",
				"subscription_id", sub.ID,
				"error", gwErr,
			)
		}
	}

	sub.EndsAt = nil
	if sub.OnTrial() {
		sub.GatewayStatus = types.SubscriptionStatusTrialing
	} else {
		sub.GatewayStatus = types.SubscriptionStatusActive
	}
	if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("resumed subscription", "subscription_id", sub.ID)
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) UpdateQuantity(ctx context.Context, id string, req *dto.UpdateSubscriptionQuantityRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubscriptionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Ended() {
		return nil, ierr.NewError("subscription has ended").
			WithHint("An ended subscription cannot change quantity").
			Mark(ierr.ErrInvalidOperation)
	}

	// Quantity changes the billed amount, so the gateway must acknowledge
	// before the local record moves.
	if !sub.IsLocalOnly() {
		if _, err := s.Gateway.UpdateSubscription(ctx, sub.GatewayRef.ID, &chip.UpdateSubscriptionRequest{
			Quantity: req.Quantity,
		}); err != nil {
			return nil, err
		}
	}

	sub.Quantity = req.Quantity
	if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	items, err := s.SubscriptionRepo.ListItems(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		item.Quantity = req.Quantity
		if err := s.SubscriptionRepo.UpdateItem(ctx, item); err != nil {
			return nil, err
		}
	}

	s.Logger.Infow("updated subscription quantity",
		"subscription_id", sub.ID,
		"quantity", req.Quantity,
	)
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) CancelAllSubscriptions(ctx context.Context, customerID string, mode types.CancelMode) error {
	subs, err := s.SubscriptionRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		// Ended rows are history; a scheduled cancellation still inside its
		// grace period can be tightened to an immediate one.
		if sub.Ended() {
			continue
		}
		if _, err := s.CancelSubscription(ctx, sub.ID, &dto.CancelSubscriptionRequest{Mode: mode}); err != nil {
			return err
		}
	}
	return nil
}
