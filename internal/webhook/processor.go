package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hyperbill/cashier/internal/cache"
	"github.com/hyperbill/cashier/internal/domain/subscription"
	"github.com/hyperbill/cashier/internal/domain/transaction"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/logger"
	sentryService "github.com/hyperbill/cashier/internal/sentry"
	"github.com/hyperbill/cashier/internal/types"
)

// Event is the envelope of one gateway delivery.
type Event struct {
	ID        string                 `json:"id"`
	EventType types.WebhookEventType `json:"event_type"`
	Data      json.RawMessage        `json:"data"`
}

// purchasePayload is the data block of purchase.* events.
type purchasePayload struct {
	ID string `json:"id"`
}

// subscriptionPayload is the data block of subscription.* events.
// Timestamps are unix seconds.
type subscriptionPayload struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	Quantity        int    `json:"quantity"`
	NextBillingDate int64  `json:"next_billing_date"`
	CancelledAt     int64  `json:"cancelled_at"`
}

type handlerFunc func(ctx context.Context, data json.RawMessage) error

// Processor applies verified gateway events to local records. Events resolve
// local rows by gateway id only; an event for an unknown row is a no-op since
// local creation always precedes gateway confirmation. Every handler is
// idempotent so redelivery and reordering of the same event are safe.
type Processor struct {
	txnRepo  transaction.Repository
	subRepo  subscription.Repository
	cache    cache.Cache
	logger   *logger.Logger
	sentry   *sentryService.Service
	handlers map[types.WebhookEventType]handlerFunc
}

// NewProcessor wires the event-type dispatch table.
func NewProcessor(
	txnRepo transaction.Repository,
	subRepo subscription.Repository,
	c cache.Cache,
	log *logger.Logger,
	sentry *sentryService.Service,
) *Processor {
	p := &Processor{
		txnRepo: txnRepo,
		subRepo: subRepo,
		cache:   c,
		logger:  log,
		sentry:  sentry,
	}
	p.handlers = map[types.WebhookEventType]handlerFunc{
		types.WebhookPurchaseCompleted:     p.handlePurchaseCompleted,
		types.WebhookPurchaseFailed:        p.handlePurchaseFailed,
		types.WebhookPurchaseRefunded:      p.handlePurchaseRefunded,
		types.WebhookSubscriptionCreated:   p.handleSubscriptionUpdated,
		types.WebhookSubscriptionUpdated:   p.handleSubscriptionUpdated,
		types.WebhookSubscriptionCancelled: p.handleSubscriptionCancelled,
	}
	return p
}

// Process applies one delivery as a single atomic unit. A payload without an
// event type is a validation error; an unknown event type is ignored; a
// handler failure for a recognized type is surfaced to the caller after
// logging, without affecting other deliveries.
func (p *Processor) Process(ctx context.Context, body []byte) error {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return ierr.WithError(err).
			WithHint("Webhook payload is not valid JSON").
			Mark(ierr.ErrValidation)
	}

	if event.EventType == "" {
		return ierr.NewError("missing event type").
			WithHint("Webhook payload must carry an event_type field").
			Mark(ierr.ErrValidation)
	}

	handler, ok := p.handlers[event.EventType]
	if !ok {
		p.logger.Debugw("ignoring unrecognized webhook event",
			"event_type", event.EventType,
		)
		return nil
	}

	// Replay suppression on the delivery id. Handlers are idempotent anyway,
	// so a cache miss after eviction only costs a redundant write.
	var cacheKey string
	if event.ID != "" {
		cacheKey = cache.GenerateKey(cache.PrefixWebhookEvent, event.ID)
		if _, seen := p.cache.Get(cacheKey); seen {
			p.logger.Debugw("skipping replayed webhook event",
				"event_id", event.ID,
				"event_type", event.EventType,
			)
			return nil
		}
	}

	span, ctx := p.sentry.StartWebhookSpan(ctx, string(event.EventType))
	if span != nil {
		defer span.Finish()
	}

	if err := handler(ctx, event.Data); err != nil {
		p.logger.Errorw("failed to apply webhook event",
			"event_id", event.ID,
			"event_type", event.EventType,
			"error", err,
		)
		p.sentry.CaptureException(err)
		return err
	}

	if cacheKey != "" {
		p.cache.Set(cacheKey, struct{}{}, 0)
	}

	p.logger.Infow("applied webhook event",
		"event_id", event.ID,
		"event_type", event.EventType,
	)
	return nil
}

func (p *Processor) handlePurchaseCompleted(ctx context.Context, data json.RawMessage) error {
	return p.transitionPurchase(ctx, data, func(txn *transaction.Transaction) {
		txn.Status = types.TransactionStatusSuccess
		if txn.ProcessedAt == nil {
			now := time.Now().UTC()
			txn.ProcessedAt = &now
		}
	})
}

func (p *Processor) handlePurchaseFailed(ctx context.Context, data json.RawMessage) error {
	return p.transitionPurchase(ctx, data, func(txn *transaction.Transaction) {
		txn.Status = types.TransactionStatusFailed
	})
}

func (p *Processor) handlePurchaseRefunded(ctx context.Context, data json.RawMessage) error {
	return p.transitionPurchase(ctx, data, func(txn *transaction.Transaction) {
		txn.Status = types.TransactionStatusRefunded
	})
}

// transitionPurchase resolves the local ledger row by gateway id and applies
// a status transition. Unknown rows are a no-op.
func (p *Processor) transitionPurchase(ctx context.Context, data json.RawMessage, apply func(*transaction.Transaction)) error {
	var payload purchasePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return ierr.WithError(err).
			WithHint("Purchase event data is malformed").
			Mark(ierr.ErrValidation)
	}
	if payload.ID == "" {
		return ierr.NewError("missing purchase id").
			WithHint("Purchase event data must carry the purchase id").
			Mark(ierr.ErrValidation)
	}

	txn, err := p.txnRepo.GetByGatewayID(ctx, payload.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			p.logger.Debugw("purchase event for unknown transaction",
				"gateway_id", payload.ID,
			)
			return nil
		}
		return err
	}

	apply(txn)
	return p.txnRepo.Update(ctx, txn)
}

// handleSubscriptionUpdated applies subscription.created and
// subscription.updated. Status and quantity are overwritten with the
// payload's values, last writer wins.
func (p *Processor) handleSubscriptionUpdated(ctx context.Context, data json.RawMessage) error {
	payload, sub, err := p.resolveSubscription(ctx, data)
	if err != nil || sub == nil {
		return err
	}

	if payload.Status != "" {
		sub.GatewayStatus = types.SubscriptionStatus(payload.Status)
	}
	if payload.Quantity > 0 {
		sub.Quantity = payload.Quantity
	}
	return p.subRepo.Update(ctx, sub)
}

// handleSubscriptionCancelled schedules the local end: the gateway's
// next_billing_date when it is still in the future (grace period), otherwise
// the cancellation instant.
func (p *Processor) handleSubscriptionCancelled(ctx context.Context, data json.RawMessage) error {
	payload, sub, err := p.resolveSubscription(ctx, data)
	if err != nil || sub == nil {
		return err
	}

	now := time.Now().UTC()
	endsAt := now
	if payload.CancelledAt > 0 {
		endsAt = time.Unix(payload.CancelledAt, 0).UTC()
	}
	if payload.NextBillingDate > 0 {
		if next := time.Unix(payload.NextBillingDate, 0).UTC(); next.After(now) {
			endsAt = next
		}
	}

	sub.GatewayStatus = types.SubscriptionStatusCancelled
	sub.EndsAt = &endsAt
	return p.subRepo.Update(ctx, sub)
}

func (p *Processor) resolveSubscription(ctx context.Context, data json.RawMessage) (*subscriptionPayload, *subscription.Subscription, error) {
	var payload subscriptionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil, ierr.WithError(err).
			WithHint("Subscription event data is malformed").
			Mark(ierr.ErrValidation)
	}
	if payload.ID == "" {
		return nil, nil, ierr.NewError("missing subscription id").
			WithHint("Subscription event data must carry the subscription id").
			Mark(ierr.ErrValidation)
	}

	sub, err := p.subRepo.GetByGatewayID(ctx, payload.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			p.logger.Debugw("subscription event for unknown subscription",
				"gateway_id", payload.ID,
			)
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return &payload, sub, nil
}
