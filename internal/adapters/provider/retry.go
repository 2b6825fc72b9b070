package provider

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/DanielPopoola/donation-gateway/internal/config"
	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/DanielPopoola/donation-gateway/internal/core/ports"
)

// RetryingProvider retries payment creation on upstream timeouts.
// Execution is passed through untouched: a repeated execute could capture twice.
type RetryingProvider struct {
	inner      ports.ProviderPort
	baseDelay  time.Duration
	maxRetries int
	logger     *slog.Logger
}

func NewRetryingProvider(inner ports.ProviderPort, cfg config.RetryConfig, logger *slog.Logger) *RetryingProvider {
	maxRetries := int(cfg.MaxRetries)
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryingProvider{
		inner:      inner,
		baseDelay:  cfg.BaseDelay,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// CreatePayment with retry logic
func (r *RetryingProvider) CreatePayment(ctx context.Context, cred *domain.Credential, req domain.CreatePaymentRequest) (*domain.CreatedPayment, error) {
	return retry(r, ctx, "create payment", func(ctx context.Context) (*domain.CreatedPayment, error) {
		return r.inner.CreatePayment(ctx, cred, req)
	})
}

func (r *RetryingProvider) ExecutePayment(ctx context.Context, cred *domain.Credential, paymentID, payerID string) (*domain.CapturePayload, error) {
	return r.inner.ExecutePayment(ctx, cred, paymentID, payerID)
}

func retry[T any](r *RetryingProvider, ctx context.Context, operation string, call func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := call(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !domain.IsErrorCode(err, domain.ErrCodeUpstreamTimeout) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			delay := r.backoff(attempt)
			r.logger.Warn("retrying provider call", "operation", operation, "attempt", attempt+1, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

// Backoff calculation with exponential delay and jitter
func (r *RetryingProvider) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)

	jitter := time.Duration(rand.Int63n(int64(r.baseDelay/2) + 1))

	return base + jitter
}
