package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hyperbill/cashier/internal/domain/transaction"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/types"
)

// TransactionStore is an in-memory transaction.Repository. It enforces the
// ledger's append-mostly discipline: amount and type are frozen at creation
// and gateway ids are unique across rows.
type TransactionStore struct {
	mu           sync.RWMutex
	transactions map[string]*transaction.Transaction
	byGateway    map[string]string // gateway id -> transaction id
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		transactions: make(map[string]*transaction.Transaction),
		byGateway:    make(map[string]string),
	}
}

func (s *TransactionStore) Create(ctx context.Context, txn *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[txn.ID]; ok {
		return ierr.NewError("transaction already exists").
			WithHintf("Transaction with ID %s already exists", txn.ID).
			Mark(ierr.ErrAlreadyExists)
	}

	// The refund-sum invariant is enforced under the store lock so that
	// concurrent refund attempts cannot jointly exceed the original charge.
	if txn.IsRefund() && txn.RefundedFromID != nil {
		source, ok := s.transactions[*txn.RefundedFromID]
		if !ok {
			return ierr.NewError("refund source not found").
				WithHintf("Transaction with ID %s was not found", *txn.RefundedFromID).
				Mark(ierr.ErrNotFound)
		}
		var refunded int64
		for _, existing := range s.transactions {
			if existing.IsRefund() && existing.RefundedFromID != nil &&
				*existing.RefundedFromID == source.ID && !existing.Failed() {
				refunded += existing.Amount
			}
		}
		if refunded+txn.Amount > source.Amount {
			return ierr.NewError("refund exceeds refundable amount").
				WithHintf("Only %d remains refundable on this charge", source.Amount-refunded).
				Mark(ierr.ErrValidation)
		}
	}

	if txn.GatewayID != nil {
		if _, ok := s.byGateway[*txn.GatewayID]; ok {
			return ierr.NewError("gateway purchase already tracked").
				WithHint("Another transaction already references this gateway id").
				Mark(ierr.ErrAlreadyExists)
		}
		s.byGateway[*txn.GatewayID] = txn.ID
	}

	cp := *txn
	s.transactions[txn.ID] = &cp
	return nil
}

func (s *TransactionStore) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.transactions[id]
	if !ok {
		return nil, ierr.NewError("transaction not found").
			WithHintf("Transaction with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	cp := *txn
	return &cp, nil
}

func (s *TransactionStore) GetByGatewayID(ctx context.Context, gatewayID string) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byGateway[gatewayID]
	if !ok {
		return nil, ierr.NewError("transaction not found").
			WithHint("No transaction references this gateway id").
			Mark(ierr.ErrNotFound)
	}
	cp := *s.transactions[id]
	return &cp, nil
}

func (s *TransactionStore) Update(ctx context.Context, txn *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[txn.ID]
	if !ok {
		return ierr.NewError("transaction not found").
			WithHintf("Transaction with ID %s was not found", txn.ID).
			Mark(ierr.ErrNotFound)
	}

	if txn.Amount != existing.Amount || txn.Type != existing.Type {
		return ierr.NewError("ledger rows are immutable in amount and type").
			WithHint("Only status, processed time and gateway id may change").
			Mark(ierr.ErrInvalidOperation)
	}

	if txn.GatewayID != nil {
		if holder, ok := s.byGateway[*txn.GatewayID]; ok && holder != txn.ID {
			return ierr.NewError("gateway purchase already tracked").
				WithHint("Another transaction already references this gateway id").
				Mark(ierr.ErrAlreadyExists)
		}
		s.byGateway[*txn.GatewayID] = txn.ID
	}

	cp := *txn
	s.transactions[txn.ID] = &cp
	return nil
}

func (s *TransactionStore) List(ctx context.Context, filter *types.TransactionFilter) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*transaction.Transaction
	for _, txn := range s.transactions {
		if filter != nil {
			if filter.CustomerID != nil && txn.CustomerID != *filter.CustomerID {
				continue
			}
			if filter.Type != nil && txn.Type != *filter.Type {
				continue
			}
			if filter.Status != nil && txn.Status != *filter.Status {
				continue
			}
		}
		cp := *txn
		out = append(out, &cp)
	}

	// Newest first, the natural ledger read order.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter != nil && filter.Limit != nil && len(out) > *filter.Limit {
		out = out[:*filter.Limit]
	}
	return out, nil
}

func (s *TransactionStore) ListRefundsOf(ctx context.Context, txnID string) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*transaction.Transaction
	for _, txn := range s.transactions {
		if txn.IsRefund() && txn.RefundedFromID != nil && *txn.RefundedFromID == txnID {
			cp := *txn
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Clear resets the store, for tests.
func (s *TransactionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = make(map[string]*transaction.Transaction)
	s.byGateway = make(map[string]string)
}
