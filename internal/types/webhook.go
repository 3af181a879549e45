package types

// WebhookEventType is the discriminator carried in a gateway webhook
// delivery. Unknown types are ignored silently by the processor.
type WebhookEventType string

const (
	WebhookPurchaseCompleted     WebhookEventType = "purchase.completed"
	WebhookPurchaseFailed        WebhookEventType = "purchase.failed"
	WebhookPurchaseRefunded      WebhookEventType = "purchase.refunded"
	WebhookSubscriptionCreated   WebhookEventType = "subscription.created"
	WebhookSubscriptionUpdated   WebhookEventType = "subscription.updated"
	WebhookSubscriptionCancelled WebhookEventType = "subscription.cancelled"
)

func (t WebhookEventType) String() string {
	return string(t)
}
