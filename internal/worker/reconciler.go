package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/DanielPopoola/donation-gateway/internal/core/ports"
	"github.com/google/uuid"
)

// OrderSettler applies the final marks to an order that already has its ledger entry.
type OrderSettler interface {
	MarkSettled(ctx context.Context, orderID uuid.UUID) error
}

// Summary counts what a single reconciliation cycle did.
type Summary struct {
	Scanned int
	Settled int
	Flagged int
	Failed  int
}

// Reconciler sweeps orders stuck in PROCESSING. Orders whose ledger entry exists
// are settled; the rest are flagged for manual review and never re-executed.
type Reconciler struct {
	repo        ports.Repository
	settler     OrderSettler
	interval    time.Duration
	gracePeriod time.Duration
	batchSize   int
	logger      *slog.Logger
}

func NewReconciler(
	repo ports.Repository,
	settler OrderSettler,
	interval time.Duration,
	gracePeriod time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		repo:        repo,
		settler:     settler,
		interval:    interval,
		gracePeriod: gracePeriod,
		batchSize:   batchSize,
		logger:      logger,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("starting background reconciler",
		"interval", r.interval,
		"grace_period", r.gracePeriod,
		"batch_size", r.batchSize,
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping background reconciler")
			return
		case <-ticker.C:
			r.run(ctx)
		}
	}
}

// RunOnce executes a single reconciliation cycle.
func (r *Reconciler) RunOnce(ctx context.Context) Summary {
	return r.run(ctx)
}

func (r *Reconciler) run(ctx context.Context) Summary {
	var s Summary

	stuck, err := r.repo.FindStaleProcessingOrders(ctx, r.gracePeriod, r.batchSize)
	if err != nil {
		r.logger.Error("failed to fetch stale orders", "error", err)
		return s
	}

	if len(stuck) == 0 {
		return s
	}

	r.logger.Info("reconciling stuck orders", "count", len(stuck))

	for _, order := range stuck {
		if ctx.Err() != nil {
			break
		}
		s.Scanned++

		txn, err := r.repo.FindTransactionByOrderID(ctx, order.ID)
		if err != nil {
			r.logger.Error("failed to look up ledger entry", "order_id", order.ID, "error", err)
			s.Failed++
			continue
		}

		if txn == nil {
			r.flag(order)
			s.Flagged++
			continue
		}

		if err := r.settler.MarkSettled(ctx, order.ID); err != nil {
			r.logger.Error("failed to settle order", "order_id", order.ID, "transaction_id", txn.ID, "error", err)
			s.Failed++
			continue
		}

		r.logger.Info("settled order from existing ledger entry", "order_id", order.ID, "transaction_id", txn.ID)
		s.Settled++
	}

	return s
}

// flag reports an order whose capture outcome is unknown. Executing it again
// could charge the donor twice.
func (r *Reconciler) flag(order *domain.Order) {
	var paymentID string
	if order.PaymentMethod != nil {
		paymentID = order.PaymentMethod.Data.PaymentID
	}
	r.logger.Warn("order stuck in PROCESSING without ledger entry, needs manual review",
		"order_id", order.ID,
		"payment_id", paymentID,
		"stuck_since", order.UpdatedAt,
	)
}
