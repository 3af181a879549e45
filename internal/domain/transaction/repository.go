package transaction

import (
	"context"

	"github.com/hyperbill/cashier/internal/types"
)

// Repository defines the interface for ledger persistence. Implementations
// must enforce uniqueness of (customer, gateway id) so that concurrent
// creation of the same gateway purchase degrades to ErrAlreadyExists on the
// loser.
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	GetByGatewayID(ctx context.Context, gatewayID string) (*Transaction, error)
	// Update persists status/processed_at/gateway-id transitions. Amount
	// and type changes are rejected with ErrInvalidOperation.
	Update(ctx context.Context, txn *Transaction) error
	List(ctx context.Context, filter *types.TransactionFilter) ([]*Transaction, error)
	// ListRefundsOf returns all refund rows referencing the given charge.
	ListRefundsOf(ctx context.Context, txnID string) ([]*Transaction, error)
}
