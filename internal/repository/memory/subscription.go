package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hyperbill/cashier/internal/domain/subscription"
	ierr "github.com/hyperbill/cashier/internal/errors"
)

// SubscriptionStore is an in-memory subscription.Repository. Rows are never
// deleted; historical subscriptions for the same (customer, name) slot
// accumulate and name resolution picks the currently valid one. Create
// enforces at most one currently valid row per slot under the store lock, so
// concurrent creates degrade to a conflict on the loser.
type SubscriptionStore struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription.Subscription
	items         map[string][]*subscription.Item // subscription id -> items
}

func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{
		subscriptions: make(map[string]*subscription.Subscription),
		items:         make(map[string][]*subscription.Item),
	}
}

func (s *SubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[sub.ID]; ok {
		return ierr.NewError("subscription already exists").
			WithHintf("Subscription with ID %s already exists", sub.ID).
			Mark(ierr.ErrAlreadyExists)
	}
	for _, existing := range s.subscriptions {
		if existing.GatewayRef.ID == sub.GatewayRef.ID {
			return ierr.NewError("gateway subscription already tracked").
				WithHint("Another subscription already references this gateway id").
				Mark(ierr.ErrAlreadyExists)
		}
		if existing.CustomerID == sub.CustomerID && existing.Name == sub.Name && existing.Valid() {
			return ierr.NewError("subscription slot occupied").
				WithHintf("Customer already has a valid subscription named %q", sub.Name).
				Mark(ierr.ErrAlreadyExists)
		}
	}

	cp := *sub
	s.subscriptions[sub.ID] = &cp
	return nil
}

func (s *SubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[id]
	if !ok {
		return nil, ierr.NewError("subscription not found").
			WithHintf("Subscription with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	cp := *sub
	return &cp, nil
}

func (s *SubscriptionStore) GetByGatewayID(ctx context.Context, gatewayID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscriptions {
		if sub.GatewayRef.ID == gatewayID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, ierr.NewError("subscription not found").
		WithHint("No subscription references this gateway id").
		Mark(ierr.ErrNotFound)
}

func (s *SubscriptionStore) GetByCustomerAndName(ctx context.Context, customerID, name string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*subscription.Subscription
	for _, sub := range s.subscriptions {
		if sub.CustomerID == customerID && sub.Name == name && sub.Valid() {
			candidates = append(candidates, sub)
		}
	}
	if len(candidates) == 0 {
		return nil, ierr.NewError("subscription not found").
			WithHintf("No valid subscription named %q for this customer", name).
			Mark(ierr.ErrNotFound)
	}

	// Newest valid row wins when historical rows overlap.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	cp := *candidates[0]
	return &cp, nil
}

func (s *SubscriptionStore) ListByCustomer(ctx context.Context, customerID string) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*subscription.Subscription
	for _, sub := range s.subscriptions {
		if sub.CustomerID == customerID {
			cp := *sub
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *SubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[sub.ID]; !ok {
		return ierr.NewError("subscription not found").
			WithHintf("Subscription with ID %s was not found", sub.ID).
			Mark(ierr.ErrNotFound)
	}
	cp := *sub
	s.subscriptions[sub.ID] = &cp
	return nil
}

func (s *SubscriptionStore) CreateItem(ctx context.Context, item *subscription.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[item.SubscriptionID]; !ok {
		return ierr.NewError("subscription not found").
			WithHintf("Subscription with ID %s was not found", item.SubscriptionID).
			Mark(ierr.ErrNotFound)
	}
	cp := *item
	s.items[item.SubscriptionID] = append(s.items[item.SubscriptionID], &cp)
	return nil
}

func (s *SubscriptionStore) ListItems(ctx context.Context, subscriptionID string) ([]*subscription.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.items[subscriptionID]
	out := make([]*subscription.Item, 0, len(items))
	for _, item := range items {
		cp := *item
		out = append(out, &cp)
	}
	return out, nil
}

func (s *SubscriptionStore) UpdateItem(ctx context.Context, item *subscription.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.items[item.SubscriptionID] {
		if existing.ID == item.ID {
			cp := *item
			s.items[item.SubscriptionID][i] = &cp
			return nil
		}
	}
	return ierr.NewError("subscription item not found").
		WithHintf("Item with ID %s was not found", item.ID).
		Mark(ierr.ErrNotFound)
}

// Clear resets the store, for tests.
func (s *SubscriptionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = make(map[string]*subscription.Subscription)
	s.items = make(map[string][]*subscription.Item)
}
