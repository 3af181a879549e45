package customer

import (
	"context"
)

// Repository defines the interface for customer persistence. Implementations
// must enforce at most one gateway identity per customer: a second attempt
// to set a different gateway id for the same customer, or to reuse a gateway
// id across customers, fails with ErrAlreadyExists so concurrent
// creation races degrade to a conflict on the loser.
type Repository interface {
	Create(ctx context.Context, customer *Customer) error
	Get(ctx context.Context, id string) (*Customer, error)
	GetByGatewayID(ctx context.Context, gatewayID string) (*Customer, error)
	Update(ctx context.Context, customer *Customer) error
	// SetGatewayID binds the gateway identity, enforcing the uniqueness
	// constraint at the store level.
	SetGatewayID(ctx context.Context, id string, gatewayID string) error
	List(ctx context.Context) ([]*Customer, error)
}
