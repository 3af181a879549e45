package memory

import (
	"context"
	"sync"

	"github.com/hyperbill/cashier/internal/domain/customer"
	ierr "github.com/hyperbill/cashier/internal/errors"
)

// CustomerStore is an in-memory customer.Repository. It enforces the gateway
// identity constraints the interface demands: one gateway id per customer and
// one customer per gateway id, so concurrent ensure-gateway races degrade to
// a conflict on the loser.
type CustomerStore struct {
	mu        sync.RWMutex
	customers map[string]*customer.Customer
	byGateway map[string]string // gateway id -> customer id
}

func NewCustomerStore() *CustomerStore {
	return &CustomerStore{
		customers: make(map[string]*customer.Customer),
		byGateway: make(map[string]string),
	}
}

func (s *CustomerStore) Create(ctx context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[c.ID]; ok {
		return ierr.NewError("customer already exists").
			WithHintf("Customer with ID %s already exists", c.ID).
			Mark(ierr.ErrAlreadyExists)
	}
	if c.GatewayID != nil {
		if _, ok := s.byGateway[*c.GatewayID]; ok {
			return ierr.NewError("gateway id already bound").
				WithHint("Another customer already holds this gateway identity").
				Mark(ierr.ErrAlreadyExists)
		}
		s.byGateway[*c.GatewayID] = c.ID
	}

	cp := *c
	s.customers[c.ID] = &cp
	return nil
}

func (s *CustomerStore) Get(ctx context.Context, id string) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, ierr.NewError("customer not found").
			WithHintf("Customer with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *CustomerStore) GetByGatewayID(ctx context.Context, gatewayID string) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byGateway[gatewayID]
	if !ok {
		return nil, ierr.NewError("customer not found").
			WithHint("No customer holds this gateway identity").
			Mark(ierr.ErrNotFound)
	}
	cp := *s.customers[id]
	return &cp, nil
}

func (s *CustomerStore) Update(ctx context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[c.ID]
	if !ok {
		return ierr.NewError("customer not found").
			WithHintf("Customer with ID %s was not found", c.ID).
			Mark(ierr.ErrNotFound)
	}

	// Gateway identity moves only through SetGatewayID.
	cp := *c
	cp.GatewayID = existing.GatewayID
	s.customers[c.ID] = &cp
	return nil
}

func (s *CustomerStore) SetGatewayID(ctx context.Context, id string, gatewayID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[id]
	if !ok {
		return ierr.NewError("customer not found").
			WithHintf("Customer with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	if existing.GatewayID != nil {
		if *existing.GatewayID == gatewayID {
			return nil
		}
		return ierr.NewError("customer already has a gateway identity").
			WithHint("A customer's gateway identity cannot be rebound").
			Mark(ierr.ErrAlreadyExists)
	}

	if holder, ok := s.byGateway[gatewayID]; ok && holder != id {
		return ierr.NewError("gateway id already bound").
			WithHint("Another customer already holds this gateway identity").
			Mark(ierr.ErrAlreadyExists)
	}

	gid := gatewayID
	existing.GatewayID = &gid
	s.byGateway[gatewayID] = id
	return nil
}

func (s *CustomerStore) List(ctx context.Context) ([]*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*customer.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// Clear resets the store, for tests.
func (s *CustomerStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = make(map[string]*customer.Customer)
	s.byGateway = make(map[string]string)
}
