package testutil

import (
	"context"
	"fmt"
	"sync"

	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/gateway/chip"
)

// MockGateway is a scripted chip.Gateway for tests. It records every call
// and can be told to fail specific operations to exercise the best-effort
// and all-or-nothing error paths.
type MockGateway struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
	seq   int

	// NextBillingDate is returned on CancelSubscription responses
	NextBillingDate int64
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		fail: make(map[string]bool),
	}
}

// FailOn makes the named operation return a gateway error.
func (m *MockGateway) FailOn(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = true
}

// Calls returns the operations invoked so far, in order.
func (m *MockGateway) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times the named operation was invoked.
func (m *MockGateway) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, call := range m.calls {
		if call == op {
			n++
		}
	}
	return n
}

func (m *MockGateway) record(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, op)
	if m.fail[op] {
		return ierr.NewError("gateway rejected " + op).
			WithHint("Gateway is unreachable").
			Mark(ierr.ErrGateway)
	}
	return nil
}

func (m *MockGateway) nextID(prefix string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return fmt.Sprintf("%s_%04d", prefix, m.seq)
}

func (m *MockGateway) CreateClient(ctx context.Context, req *chip.ClientRequest) (*chip.Client, error) {
	if err := m.record("CreateClient"); err != nil {
		return nil, err
	}
	return &chip.Client{
		ID:       m.nextID("gw_client"),
		Email:    req.Email,
		FullName: req.FullName,
	}, nil
}

func (m *MockGateway) UpdateClient(ctx context.Context, clientID string, req *chip.ClientRequest) (*chip.Client, error) {
	if err := m.record("UpdateClient"); err != nil {
		return nil, err
	}
	return &chip.Client{
		ID:       clientID,
		Email:    req.Email,
		FullName: req.FullName,
	}, nil
}

func (m *MockGateway) CreatePurchase(ctx context.Context, req *chip.PurchaseRequest) (*chip.Purchase, error) {
	if err := m.record("CreatePurchase"); err != nil {
		return nil, err
	}
	return &chip.Purchase{
		ID:       m.nextID("gw_purchase"),
		ClientID: req.ClientID,
		Status:   "pending",
		Purchase: req.Purchase,
	}, nil
}

func (m *MockGateway) GetPurchase(ctx context.Context, purchaseID string) (*chip.Purchase, error) {
	if err := m.record("GetPurchase"); err != nil {
		return nil, err
	}
	return &chip.Purchase{
		ID:     purchaseID,
		Status: "paid",
	}, nil
}

func (m *MockGateway) RefundPurchase(ctx context.Context, purchaseID string, req *chip.RefundRequest) (*chip.Purchase, error) {
	if err := m.record("RefundPurchase"); err != nil {
		return nil, err
	}
	return &chip.Purchase{
		ID:     m.nextID("gw_refund"),
		Status: "pending",
	}, nil
}

func (m *MockGateway) ChargePurchase(ctx context.Context, purchaseID string, req *chip.ChargeRequest) (*chip.Purchase, error) {
	if err := m.record("ChargePurchase"); err != nil {
		return nil, err
	}
	return &chip.Purchase{
		ID:     purchaseID,
		Status: "pending",
	}, nil
}

func (m *MockGateway) CreateSubscription(ctx context.Context, req *chip.SubscriptionRequest) (*chip.Subscription, error) {
	if err := m.record("CreateSubscription"); err != nil {
		return nil, err
	}
	return &chip.Subscription{
		ID:       m.nextID("gw_sub"),
		ClientID: req.ClientID,
		PlanID:   req.PlanID,
		Status:   "active",
		Quantity: req.Quantity,
	}, nil
}

func (m *MockGateway) UpdateSubscription(ctx context.Context, subscriptionID string, req *chip.UpdateSubscriptionRequest) (*chip.Subscription, error) {
	if err := m.record("UpdateSubscription"); err != nil {
		return nil, err
	}
	return &chip.Subscription{
		ID:       subscriptionID,
		Status:   "active",
		Quantity: req.Quantity,
	}, nil
}

func (m *MockGateway) CancelSubscription(ctx context.Context, subscriptionID string, req *chip.CancelSubscriptionRequest) (*chip.Subscription, error) {
	if err := m.record("CancelSubscription"); err != nil {
		return nil, err
	}
	return &chip.Subscription{
		ID:              subscriptionID,
		Status:          "cancelled",
		NextBillingDate: m.NextBillingDate,
	}, nil
}

func (m *MockGateway) ResumeSubscription(ctx context.Context, subscriptionID string) (*chip.Subscription, error) {
	if err := m.record("ResumeSubscription"); err != nil {
		return nil, err
	}
	return &chip.Subscription{
		ID:     subscriptionID,
		Status: "active",
	}, nil
}
