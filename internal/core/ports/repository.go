package ports

import (
	"context"
	"time"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/google/uuid"
)

// Repository is the datastore behind the pipeline.
type Repository interface {
	// FindActiveCredential returns the newest non-deleted credential, or nil when none exists.
	FindActiveCredential(ctx context.Context, hostID uuid.UUID, service string) (*domain.Credential, error)
	FindPartyByID(ctx context.Context, id uuid.UUID) (*domain.Party, error)

	FindOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindOrderByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateOrder(ctx context.Context, order *domain.Order) error
	UpdatePaymentMethod(ctx context.Context, pm *domain.PaymentMethod) error
	FindStaleProcessingOrders(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error)

	// CreateTransaction is a single atomic insert.
	CreateTransaction(ctx context.Context, txn *domain.Transaction) error
	// FindTransactionByOrderID returns the credit entry for the order, or nil.
	FindTransactionByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Transaction, error)

	// WithTx executes a function within a database transaction.
	WithTx(ctx context.Context, fn func(Repository) error) error
}
