package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/DanielPopoola/donation-gateway/internal/core/ports"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	pool *pgxpool.Pool
	q    Executor
}

func NewRepository(db *DB) *Repository {
	return &Repository{
		pool: db.Pool,
		q:    db.Pool,
	}
}

// FindActiveCredential returns the most recently created non-deleted credential, or nil.
func (r *Repository) FindActiveCredential(ctx context.Context, hostID uuid.UUID, service string) (*domain.Credential, error) {
	query := `
			SELECT id, host_id, service, client_id, secret, created_at, deleted_at
			FROM provider_credentials
			WHERE host_id = $1 AND service = $2 AND deleted_at IS NULL
			ORDER BY created_at DESC
			LIMIT 1
			`

	var c domain.Credential
	err := r.q.QueryRow(ctx, query, hostID, service).Scan(
		&c.ID,
		&c.HostID,
		&c.Service,
		&c.ClientID,
		&c.Secret,
		&c.CreatedAt,
		&c.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan credential: %w", err)
	}
	return &c, nil
}

func (r *Repository) FindPartyByID(ctx context.Context, id uuid.UUID) (*domain.Party, error) {
	query := `
			SELECT id, name, currency, host_id, host_fee_percent::text
			FROM parties
			WHERE id = $1
			`

	var (
		p          domain.Party
		hostFeeRaw string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Currency,
		&p.HostID,
		&hostFeeRaw,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewPartyNotFoundError(id.String())
		}
		return nil, fmt.Errorf("failed to scan party: %w", err)
	}

	p.HostFeePercent, err = decimal.NewFromString(hostFeeRaw)
	if err != nil {
		return nil, fmt.Errorf("parse host fee percent of party %s: %w", id, err)
	}
	return &p, nil
}

const orderColumns = `
			o.id, o.total_amount, o.currency, o.tax_amount, o.description,
			o.from_party_id, o.to_party_id, o.created_by_user_id,
			o.platform_fee_percent::text, o.data, o.status, o.processed_at,
			o.created_at, o.updated_at,
			pm.id, pm.service, pm.data, pm.confirmed_at`

func (r *Repository) FindOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `
			SELECT` + orderColumns + `
			FROM orders o
			LEFT JOIN payment_methods pm ON pm.id = o.payment_method_id
			WHERE o.id = $1
			`

	return scanOrder(r.q.QueryRow(ctx, query, id), id)
}

// FindOrderByIDForUpdate locks the order row until the surrounding transaction ends.
func (r *Repository) FindOrderByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `
			SELECT` + orderColumns + `
			FROM orders o
			LEFT JOIN payment_methods pm ON pm.id = o.payment_method_id
			WHERE o.id = $1
			FOR UPDATE OF o
			`

	return scanOrder(r.q.QueryRow(ctx, query, id), id)
}

func (r *Repository) UpdateOrder(ctx context.Context, o *domain.Order) error {
	query := `
			UPDATE orders SET status = $1, processed_at = $2, data = $3, updated_at = NOW()
			WHERE id = $4
	`

	cmdTag, err := r.q.Exec(ctx, query,
		o.Status,
		o.ProcessedAt,
		o.Data,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewOrderNotFoundError(o.ID.String())
	}
	return nil
}

func (r *Repository) UpdatePaymentMethod(ctx context.Context, pm *domain.PaymentMethod) error {
	query := `UPDATE payment_methods SET confirmed_at = $1, data = $2 WHERE id = $3`

	cmdTag, err := r.q.Exec(ctx, query, pm.ConfirmedAt, pm.Data, pm.ID)
	if err != nil {
		return fmt.Errorf("failed to update payment method: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("payment method %s not found", pm.ID)
	}
	return nil
}

// FindStaleProcessingOrders lists claimed orders untouched for longer than olderThan, oldest first.
func (r *Repository) FindStaleProcessingOrders(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error) {
	cutoff := time.Now().Add(-olderThan)

	query := `
			SELECT` + orderColumns + `
			FROM orders o
			LEFT JOIN payment_methods pm ON pm.id = o.payment_method_id
			WHERE o.status = 'PROCESSING' AND o.updated_at < $1
			ORDER BY o.updated_at ASC
			LIMIT $2
			`

	rows, err := r.q.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Order, error) {
		return scanOrder(row, uuid.Nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan stale orders: %w", err)
	}
	return orders, nil
}

// CreateTransaction inserts the ledger entry with one statement.
func (r *Repository) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	query := `INSERT INTO ledger_transactions (
				id, type, order_id, from_party_id, to_party_id, host_id, created_by_user_id,
				amount, currency, host_currency, amount_in_host_currency, host_currency_fx_rate,
				host_fee_in_host_currency, platform_fee_in_host_currency, payment_processor_fee_in_host_currency,
				tax_amount, description, data)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
				RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		t.ID,
		t.Type,
		t.OrderID,
		t.FromPartyID,
		t.ToPartyID,
		t.HostID,
		t.CreatedByUserID,
		t.Amount,
		t.Currency,
		t.HostCurrency,
		t.AmountInHostCurrency,
		t.HostCurrencyFxRate,
		t.HostFeeInHostCurrency,
		t.PlatformFeeInHostCurrency,
		t.PaymentProcessorFeeInHostCurrency,
		t.TaxAmount,
		t.Description,
		t.Data,
	).Scan(&t.CreatedAt)
	if err != nil {
		if violatesConstraint(err, ledgerOrderTypeConstraint) {
			return domain.NewDuplicateTransactionError(t.OrderID.String())
		}
		return fmt.Errorf("failed to create ledger transaction: %w", err)
	}
	return nil
}

func (r *Repository) FindTransactionByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Transaction, error) {
	query := `
			SELECT id, type, order_id, from_party_id, to_party_id, host_id, created_by_user_id,
				amount, currency, host_currency, amount_in_host_currency, host_currency_fx_rate,
				host_fee_in_host_currency, platform_fee_in_host_currency, payment_processor_fee_in_host_currency,
				tax_amount, description, data, created_at
			FROM ledger_transactions
			WHERE order_id = $1 AND type = $2
			`

	var t domain.Transaction
	err := r.q.QueryRow(ctx, query, orderID, domain.TransactionCredit).Scan(
		&t.ID,
		&t.Type,
		&t.OrderID,
		&t.FromPartyID,
		&t.ToPartyID,
		&t.HostID,
		&t.CreatedByUserID,
		&t.Amount,
		&t.Currency,
		&t.HostCurrency,
		&t.AmountInHostCurrency,
		&t.HostCurrencyFxRate,
		&t.HostFeeInHostCurrency,
		&t.PlatformFeeInHostCurrency,
		&t.PaymentProcessorFeeInHostCurrency,
		&t.TaxAmount,
		&t.Description,
		&t.Data,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan ledger transaction: %w", err)
	}
	return &t, nil
}

// WithTx executes a function within a database transaction
func (r *Repository) WithTx(ctx context.Context, fn func(ports.Repository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// no-op once committed
	defer tx.Rollback(ctx)

	repoWithTx := &Repository{
		pool: r.pool,
		q:    tx,
	}

	if err := fn(repoWithTx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func scanOrder(row pgx.Row, id uuid.UUID) (*domain.Order, error) {
	var (
		o              domain.Order
		platformFeeRaw string
		pmID           *uuid.UUID
		pmService      *string
		pmData         *domain.PaymentMethodData
		pmConfirmedAt  *time.Time
	)

	err := row.Scan(
		&o.ID,
		&o.TotalAmount,
		&o.Currency,
		&o.TaxAmount,
		&o.Description,
		&o.FromPartyID,
		&o.ToPartyID,
		&o.CreatedByUserID,
		&platformFeeRaw,
		&o.Data,
		&o.Status,
		&o.ProcessedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
		&pmID,
		&pmService,
		&pmData,
		&pmConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewOrderNotFoundError(id.String())
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	o.PlatformFeePercent, err = decimal.NewFromString(platformFeeRaw)
	if err != nil {
		return nil, fmt.Errorf("parse platform fee percent of order %s: %w", o.ID, err)
	}

	if pmID != nil {
		o.PaymentMethod = &domain.PaymentMethod{
			ID:          *pmID,
			ConfirmedAt: pmConfirmedAt,
		}
		if pmService != nil {
			o.PaymentMethod.Service = *pmService
		}
		if pmData != nil {
			o.PaymentMethod.Data = *pmData
		}
	}

	return &o, nil
}
