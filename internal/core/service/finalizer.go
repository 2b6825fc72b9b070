package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/DanielPopoola/donation-gateway/internal/core/ports"
	"github.com/google/uuid"
)

type OrderFinalizer struct {
	repo     ports.Repository
	payments *PaymentService
	builder  *TransactionBuilder
	logger   *slog.Logger
	now      func() time.Time
}

func NewOrderFinalizer(repo ports.Repository, payments *PaymentService, builder *TransactionBuilder, logger *slog.Logger) *OrderFinalizer {
	return &OrderFinalizer{
		repo:     repo,
		payments: payments,
		builder:  builder,
		logger:   logger,
		now:      time.Now,
	}
}

// Finalize captures the order's payment, records its ledger entry and marks
// the order and its payment method as settled. An order is captured at most once.
func (f *OrderFinalizer) Finalize(ctx context.Context, orderID uuid.UUID) (*domain.Transaction, error) {
	order, err := f.claim(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// capture and persistence outlive the caller; the client timeout bounds them
	execCtx := context.WithoutCancel(ctx)

	host, err := f.payments.ReceivingHost(execCtx, order)
	if err != nil {
		f.release(ctx, order.ID, err)
		return nil, err
	}

	payload, err := f.payments.capture(execCtx, order, host)
	if err != nil {
		if domain.IsOutcomeUnknown(err) {
			// the provider may have captured: keep the claim so nothing re-executes it
			f.logger.Warn("execute outcome unknown, order left in PROCESSING", "order_id", order.ID, "error", err)
			return nil, err
		}
		f.release(ctx, order.ID, err)
		return nil, err
	}

	txn, err := f.builder.Record(execCtx, order, host, payload)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeDuplicateTransaction) {
			f.logger.Error("ledger entry already exists for captured order", "order_id", order.ID, "error", err)
			return nil, domain.NewPartialCompletionError(order.ID.String(), err)
		}
		// leave the claim in place for the reconciler
		f.logger.Error("captured payment without ledger entry",
			"order_id", order.ID,
			"payment_id", order.PaymentMethod.Data.PaymentID,
			"error", err,
		)
		return nil, err
	}

	if err := f.MarkSettled(execCtx, order.ID); err != nil {
		f.logger.Error("ledger entry recorded but order not settled",
			"order_id", order.ID,
			"transaction_id", txn.ID,
			"error", err,
		)
		return nil, domain.NewPartialCompletionError(order.ID.String(), err)
	}

	f.logger.Info("order finalized", "order_id", order.ID, "transaction_id", txn.ID)
	return txn, nil
}

// MarkSettled sets processedAt and confirmedAt in one transaction.
func (f *OrderFinalizer) MarkSettled(ctx context.Context, orderID uuid.UUID) error {
	return f.repo.WithTx(ctx, func(txRepo ports.Repository) error {
		order, err := txRepo.FindOrderByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.IsProcessed() {
			return nil
		}

		if err := order.MarkPaid(f.now()); err != nil {
			return err
		}
		if err := txRepo.UpdateOrder(ctx, order); err != nil {
			return err
		}
		if order.PaymentMethod != nil {
			return txRepo.UpdatePaymentMethod(ctx, order.PaymentMethod)
		}
		return nil
	})
}

func (f *OrderFinalizer) claim(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var claimed *domain.Order
	err := f.repo.WithTx(ctx, func(txRepo ports.Repository) error {
		order, err := txRepo.FindOrderByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if order.IsProcessed() || order.Status == domain.OrderStatusPaid {
			return domain.NewOrderAlreadyProcessedError(orderID.String())
		}

		existing, err := txRepo.FindTransactionByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.NewPartialCompletionError(orderID.String(), nil)
		}

		if order.Status == domain.OrderStatusProcessing {
			return domain.NewRequestProcessingError()
		}

		if err := order.MarkProcessing(); err != nil {
			return err
		}
		if err := txRepo.UpdateOrder(ctx, order); err != nil {
			return err
		}

		claimed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// release returns a claimed order to ERROR after a failure that wrote nothing to the ledger.
func (f *OrderFinalizer) release(ctx context.Context, orderID uuid.UUID, cause error) {
	ctx = context.WithoutCancel(ctx)
	err := f.repo.WithTx(ctx, func(txRepo ports.Repository) error {
		order, err := txRepo.FindOrderByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderStatusProcessing {
			return nil
		}
		if err := order.MarkError(); err != nil {
			return err
		}
		return txRepo.UpdateOrder(ctx, order)
	})
	if err != nil {
		f.logger.Error("failed to release order claim", "order_id", orderID, "cause", cause, "error", err)
		return
	}
	f.logger.Warn("order finalization failed", "order_id", orderID, "error", cause)
}
