package subscription

import (
	"context"
)

// Repository defines the interface for subscription persistence.
// Subscriptions are never hard-deleted; cancellation is a state, not a
// deletion, so historical rows for the same (customer, name) pair may
// accumulate.
type Repository interface {
	// Create fails with ErrAlreadyExists when another currently valid
	// subscription occupies the same (customer, name) slot or references the
	// same gateway id, so creation races degrade to a conflict on the loser.
	Create(ctx context.Context, subscription *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByGatewayID(ctx context.Context, gatewayID string) (*Subscription, error)
	// GetByCustomerAndName resolves the currently valid subscription for a
	// slot; historical (ended) rows are skipped.
	GetByCustomerAndName(ctx context.Context, customerID, name string) (*Subscription, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*Subscription, error)
	Update(ctx context.Context, subscription *Subscription) error

	// Subscription item operations
	CreateItem(ctx context.Context, item *Item) error
	ListItems(ctx context.Context, subscriptionID string) ([]*Item, error)
	UpdateItem(ctx context.Context, item *Item) error
}
