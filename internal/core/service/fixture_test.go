package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fixture struct {
	repo        *MockRepository
	provider    *MockProvider
	credentials *CredentialResolver
	payments    *PaymentService
	builder     *TransactionBuilder
	finalizer   *OrderFinalizer

	host       *domain.Party
	collective *domain.Party
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := NewMockRepository()
	provider := &MockProvider{}

	host := &domain.Party{
		ID:             uuid.New(),
		Name:           "Open Source Collective",
		Currency:       "USD",
		HostFeePercent: decimal.NewFromInt(5),
	}
	hostID := host.ID
	collective := &domain.Party{
		ID:       uuid.New(),
		Name:     "webpack",
		Currency: "USD",
		HostID:   &hostID,
	}
	repo.SeedParty(host)
	repo.SeedParty(collective)
	repo.SeedCredential(&domain.Credential{
		ID:        uuid.New(),
		HostID:    host.ID,
		Service:   domain.ServicePayPal,
		ClientID:  "host-client-id",
		Secret:    "host-secret",
		CreatedAt: time.Now().Add(-time.Hour),
	})

	credentials := NewCredentialResolver(repo, logger)
	payments := NewPaymentService(repo, provider, credentials, logger)
	builder := NewTransactionBuilder(repo, logger)

	return &fixture{
		repo:        repo,
		provider:    provider,
		credentials: credentials,
		payments:    payments,
		builder:     builder,
		finalizer:   NewOrderFinalizer(repo, payments, builder, logger),
		host:        host,
		collective:  collective,
	}
}

func (f *fixture) newOrder(total int64, currency string) *domain.Order {
	now := time.Now()
	return &domain.Order{
		ID:              uuid.New(),
		TotalAmount:     total,
		Currency:        currency,
		Description:     "Monthly donation to webpack",
		FromPartyID:     uuid.New(),
		ToPartyID:       f.collective.ID,
		CreatedByUserID: uuid.New(),
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		PaymentMethod: &domain.PaymentMethod{
			ID:      uuid.New(),
			Service: domain.ServicePayPal,
			Data: domain.PaymentMethodData{
				PaymentID: "PAY-" + uuid.NewString()[:8],
				PayerID:   "PAYER-42",
			},
		},
	}
}

func (f *fixture) seedOrder(total int64, currency string) *domain.Order {
	order := f.newOrder(total, currency)
	f.repo.SeedOrder(order)
	return order
}

func mustCapture(t *testing.T, total, currency, fee string) *domain.CapturePayload {
	t.Helper()
	payload, err := NewCapturePayload("PAY-1", total, currency, fee)
	if err != nil {
		t.Fatalf("build capture payload: %v", err)
	}
	return payload
}
