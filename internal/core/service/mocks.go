package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/DanielPopoola/donation-gateway/internal/core/ports"
	"github.com/google/uuid"
)

// MockRepository is an in-memory ports.Repository. WithTx serializes callers,
// which stands in for the row lock taken by FindOrderByIDForUpdate, and rolls
// back order writes when fn fails.
type MockRepository struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	parties      map[uuid.UUID]*domain.Party
	credentials  []*domain.Credential
	orders       map[uuid.UUID]*domain.Order
	transactions map[uuid.UUID]*domain.Transaction

	FindActiveCredentialFn      func(ctx context.Context, hostID uuid.UUID, service string) (*domain.Credential, error)
	FindPartyByIDFn             func(ctx context.Context, id uuid.UUID) (*domain.Party, error)
	FindOrderByIDFn             func(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateOrderFn               func(ctx context.Context, order *domain.Order) error
	UpdatePaymentMethodFn       func(ctx context.Context, pm *domain.PaymentMethod) error
	FindStaleProcessingOrdersFn func(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error)
	CreateTransactionFn         func(ctx context.Context, txn *domain.Transaction) error
	WithTxFn                    func(ctx context.Context, fn func(repo ports.Repository) error) error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		parties:      make(map[uuid.UUID]*domain.Party),
		orders:       make(map[uuid.UUID]*domain.Order),
		transactions: make(map[uuid.UUID]*domain.Transaction),
	}
}

func (m *MockRepository) SeedParty(p *domain.Party) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.parties[p.ID] = &cp
}

func (m *MockRepository) SeedCredential(c *domain.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.credentials = append(m.credentials, &cp)
}

func (m *MockRepository) SeedOrder(o *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = cloneOrder(o)
}

func (m *MockRepository) SeedTransaction(txn *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *txn
	m.transactions[txn.OrderID] = &cp
}

// Order returns the stored order, bypassing hooks.
func (m *MockRepository) Order(id uuid.UUID) *domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[id]; ok {
		return cloneOrder(o)
	}
	return nil
}

func (m *MockRepository) TransactionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transactions)
}

func (m *MockRepository) FindActiveCredential(ctx context.Context, hostID uuid.UUID, service string) (*domain.Credential, error) {
	if m.FindActiveCredentialFn != nil {
		return m.FindActiveCredentialFn(ctx, hostID, service)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var newest *domain.Credential
	for _, c := range m.credentials {
		if c.HostID != hostID || c.Service != service || c.DeletedAt != nil {
			continue
		}
		if newest == nil || c.CreatedAt.After(newest.CreatedAt) {
			newest = c
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
}

func (m *MockRepository) FindPartyByID(ctx context.Context, id uuid.UUID) (*domain.Party, error) {
	if m.FindPartyByIDFn != nil {
		return m.FindPartyByIDFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.parties[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.NewPartyNotFoundError(id.String())
}

func (m *MockRepository) FindOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if m.FindOrderByIDFn != nil {
		return m.FindOrderByIDFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[id]; ok {
		return cloneOrder(o), nil
	}
	return nil, domain.NewOrderNotFoundError(id.String())
}

func (m *MockRepository) FindOrderByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return m.FindOrderByID(ctx, id)
}

func (m *MockRepository) UpdateOrder(ctx context.Context, order *domain.Order) error {
	if m.UpdateOrderFn != nil {
		return m.UpdateOrderFn(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.orders[order.ID]
	if !ok {
		return domain.NewOrderNotFoundError(order.ID.String())
	}
	updated := cloneOrder(order)
	// payment methods are written by UpdatePaymentMethod only
	updated.PaymentMethod = existing.PaymentMethod
	updated.UpdatedAt = time.Now()
	m.orders[order.ID] = updated
	return nil
}

func (m *MockRepository) UpdatePaymentMethod(ctx context.Context, pm *domain.PaymentMethod) error {
	if m.UpdatePaymentMethodFn != nil {
		return m.UpdatePaymentMethodFn(ctx, pm)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.PaymentMethod != nil && o.PaymentMethod.ID == pm.ID {
			cp := *pm
			o.PaymentMethod = &cp
			return nil
		}
	}
	return fmt.Errorf("payment method %s not found", pm.ID)
}

func (m *MockRepository) FindStaleProcessingOrders(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error) {
	if m.FindStaleProcessingOrdersFn != nil {
		return m.FindStaleProcessingOrdersFn(ctx, olderThan, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().Add(-olderThan)
	var stale []*domain.Order
	for _, o := range m.orders {
		if o.Status == domain.OrderStatusProcessing && o.UpdatedAt.Before(cutoff) {
			stale = append(stale, cloneOrder(o))
		}
	}
	slices.SortFunc(stale, func(a, b *domain.Order) int {
		return a.UpdatedAt.Compare(b.UpdatedAt)
	})
	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (m *MockRepository) CreateTransaction(ctx context.Context, txn *domain.Transaction) error {
	if m.CreateTransactionFn != nil {
		return m.CreateTransactionFn(ctx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[txn.OrderID]; ok {
		return domain.NewDuplicateTransactionError(txn.OrderID.String())
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	txn.CreatedAt = time.Now()
	cp := *txn
	m.transactions[txn.OrderID] = &cp
	return nil
}

func (m *MockRepository) FindTransactionByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if txn, ok := m.transactions[orderID]; ok {
		cp := *txn
		return &cp, nil
	}
	return nil, nil
}

func (m *MockRepository) WithTx(ctx context.Context, fn func(repo ports.Repository) error) error {
	if m.WithTxFn != nil {
		return m.WithTxFn(ctx, fn)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *MockRepository) snapshot() map[uuid.UUID]*domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orders := make(map[uuid.UUID]*domain.Order, len(m.orders))
	for id, o := range m.orders {
		orders[id] = cloneOrder(o)
	}
	return orders
}

// restore rolls back order writes made inside a failed WithTx.
func (m *MockRepository) restore(orders map[uuid.UUID]*domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = orders
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	if o.PaymentMethod != nil {
		pm := *o.PaymentMethod
		cp.PaymentMethod = &pm
	}
	return &cp
}

// MockProvider
type MockProvider struct {
	mu    sync.Mutex
	calls map[string]int
	Delay time.Duration

	CreatePaymentFn  func(ctx context.Context, cred *domain.Credential, req domain.CreatePaymentRequest) (*domain.CreatedPayment, error)
	ExecutePaymentFn func(ctx context.Context, cred *domain.Credential, paymentID, payerID string) (*domain.CapturePayload, error)
}

func (m *MockProvider) inc(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

func (m *MockProvider) GetCalls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockProvider) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MockProvider) CreatePayment(ctx context.Context, cred *domain.Credential, req domain.CreatePaymentRequest) (*domain.CreatedPayment, error) {
	m.inc("CreatePayment")
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.CreatePaymentFn != nil {
		return m.CreatePaymentFn(ctx, cred, req)
	}
	return &domain.CreatedPayment{ID: "PAY-123", State: "created"}, nil
}

func (m *MockProvider) ExecutePayment(ctx context.Context, cred *domain.Credential, paymentID, payerID string) (*domain.CapturePayload, error) {
	m.inc("ExecutePayment")
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.ExecutePaymentFn != nil {
		return m.ExecutePaymentFn(ctx, cred, paymentID, payerID)
	}
	return NewCapturePayload(paymentID, "10.00", "USD", "")
}

// NewCapturePayload builds an approved capture the way the provider returns it.
// An empty fee omits related_resources entirely.
func NewCapturePayload(paymentID, total, currency, fee string) (*domain.CapturePayload, error) {
	txn := map[string]any{
		"amount": map[string]string{"total": total, "currency": currency},
	}
	if fee != "" {
		txn["related_resources"] = []any{
			map[string]any{"sale": map[string]any{
				"id":              "SALE-" + paymentID,
				"state":           "completed",
				"transaction_fee": map[string]string{"value": fee, "currency": currency},
			}},
		}
	}
	raw, err := json.Marshal(map[string]any{
		"id":           paymentID,
		"state":        "approved",
		"transactions": []any{txn},
	})
	if err != nil {
		return nil, err
	}
	return domain.ParseCapturePayload(raw)
}
