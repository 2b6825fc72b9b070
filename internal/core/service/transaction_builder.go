package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/DanielPopoola/donation-gateway/internal/core/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionBuilder struct {
	repo   ports.Repository
	logger *slog.Logger
}

func NewTransactionBuilder(repo ports.Repository, logger *slog.Logger) *TransactionBuilder {
	return &TransactionBuilder{
		repo:   repo,
		logger: logger,
	}
}

// Build derives the credit ledger entry for a captured order. Nothing is persisted.
func (b *TransactionBuilder) Build(order *domain.Order, host *domain.Party, payload *domain.CapturePayload) (*domain.Transaction, error) {
	captured, err := payload.FirstTransaction()
	if err != nil {
		return nil, err
	}

	amountInHostCurrency, err := domain.ToMinorUnits(captured.Amount.Total)
	if err != nil {
		return nil, &domain.DomainError{
			Code:    domain.ErrCodeDataIntegrity,
			Message: fmt.Sprintf("unparseable captured amount %q", captured.Amount.Total),
			Err:     err,
		}
	}
	if amountInHostCurrency <= 0 {
		return nil, domain.NewDataIntegrityError(fmt.Sprintf("captured amount must be positive, got %d", amountInHostCurrency))
	}

	fee, err := payload.ProcessorFee()
	if err != nil {
		return nil, err
	}
	processorFee := domain.MajorToMinor(fee)

	fxRate := decimal.NewFromInt(order.TotalAmount).Div(decimal.NewFromInt(amountInHostCurrency))
	if !fxRate.IsPositive() {
		return nil, domain.NewDataIntegrityError(fmt.Sprintf("host currency fx rate must be positive, order total is %d", order.TotalAmount))
	}

	hostFee := domain.PercentOf(amountInHostCurrency, host.HostFeePercent)
	platformFee := platformFeeInHostCurrency(order, amountInHostCurrency, fxRate)

	if hostFee < 0 || platformFee < 0 || processorFee < 0 {
		return nil, domain.NewDataIntegrityError(fmt.Sprintf(
			"negative fee (host %d, platform %d, processor %d)", hostFee, platformFee, processorFee,
		))
	}

	data, err := mergeFeesOnTop(payload.Raw, order.Data.IsFeesOnTop)
	if err != nil {
		return nil, err
	}

	hostCurrency := captured.Amount.Currency
	if hostCurrency == "" {
		hostCurrency = host.Currency
	}

	return &domain.Transaction{
		ID:                                uuid.New(),
		Type:                              domain.TransactionCredit,
		OrderID:                           order.ID,
		FromPartyID:                       order.FromPartyID,
		ToPartyID:                         order.ToPartyID,
		HostID:                            host.ID,
		CreatedByUserID:                   order.CreatedByUserID,
		Amount:                            order.TotalAmount,
		Currency:                          order.Currency,
		HostCurrency:                      hostCurrency,
		AmountInHostCurrency:              amountInHostCurrency,
		HostCurrencyFxRate:                fxRate.InexactFloat64(),
		HostFeeInHostCurrency:             hostFee,
		PlatformFeeInHostCurrency:         platformFee,
		PaymentProcessorFeeInHostCurrency: processorFee,
		TaxAmount:                         order.TaxAmount,
		Description:                       order.Description,
		Data:                              data,
	}, nil
}

// Record builds the entry and writes it with a single insert.
func (b *TransactionBuilder) Record(ctx context.Context, order *domain.Order, host *domain.Party, payload *domain.CapturePayload) (*domain.Transaction, error) {
	txn, err := b.Build(order, host, payload)
	if err != nil {
		b.logger.Error("cannot derive ledger transaction", "order_id", order.ID, "error", err)
		return nil, err
	}

	if err := b.repo.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}

	b.logger.Info("ledger transaction recorded",
		"order_id", order.ID,
		"transaction_id", txn.ID,
		"amount_in_host_currency", txn.AmountInHostCurrency,
		"host_currency", txn.HostCurrency,
		"host_fee", txn.HostFeeInHostCurrency,
		"platform_fee", txn.PlatformFeeInHostCurrency,
		"processor_fee", txn.PaymentProcessorFeeInHostCurrency,
	)
	return txn, nil
}

// platformFeeInHostCurrency applies the order's fee policy. Fees-on-top orders
// carry the platform fee the payer added, in order currency.
func platformFeeInHostCurrency(order *domain.Order, amountInHostCurrency int64, fxRate decimal.Decimal) int64 {
	if order.Data.IsFeesOnTop {
		if order.Data.PlatformFee == 0 {
			return 0
		}
		return decimal.NewFromInt(order.Data.PlatformFee).Div(fxRate).Round(0).IntPart()
	}
	return domain.PercentOf(amountInHostCurrency, order.PlatformFeePercent)
}

// mergeFeesOnTop returns the raw capture payload with the isFeesOnTop flag added at the top level.
func mergeFeesOnTop(raw json.RawMessage, feesOnTop bool) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, &domain.DomainError{
				Code:    domain.ErrCodeDataIntegrity,
				Message: "capture payload is not a JSON object",
				Err:     err,
			}
		}
	}

	flag, err := json.Marshal(feesOnTop)
	if err != nil {
		return nil, err
	}
	fields["isFeesOnTop"] = flag

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode transaction data: %w", err)
	}
	return merged, nil
}
