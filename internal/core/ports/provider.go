package ports

import (
	"context"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
)

// ProviderPort is the remote payment provider. Every call authenticates
// with the supplied credential.
type ProviderPort interface {
	CreatePayment(ctx context.Context, cred *domain.Credential, req domain.CreatePaymentRequest) (*domain.CreatedPayment, error)
	ExecutePayment(ctx context.Context, cred *domain.Credential, paymentID, payerID string) (*domain.CapturePayload, error)
}
