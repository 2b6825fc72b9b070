package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/DanielPopoola/donation-gateway/internal/core/ports"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
)

// CreatePaymentCommand asks the provider for a pending payment payable to HostID's receiving host.
type CreatePaymentCommand struct {
	AmountCents int64     `validate:"required,gt=0"`
	Currency    string    `validate:"required,len=3,alpha"`
	HostID      uuid.UUID `validate:"required"`
}

type PaymentService struct {
	repo        ports.Repository
	provider    ports.ProviderPort
	credentials *CredentialResolver
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewPaymentService(
	repo ports.Repository,
	provider ports.ProviderPort,
	credentials *CredentialResolver,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		repo:        repo,
		provider:    provider,
		credentials: credentials,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Create registers a sale with the provider and returns the remote payment id.
func (s *PaymentService) Create(ctx context.Context, cmd CreatePaymentCommand) (string, error) {
	cmd.Currency = strings.ToUpper(strings.TrimSpace(cmd.Currency))
	if err := s.validateCommand(cmd); err != nil {
		return "", err
	}

	host, err := s.resolveHost(ctx, cmd.HostID)
	if err != nil {
		return "", err
	}

	cred, err := s.credentials.ResolveCredential(ctx, host.ID)
	if err != nil {
		return "", err
	}

	created, err := s.provider.CreatePayment(ctx, cred, domain.NewCreatePaymentRequest(cmd.AmountCents, cmd.Currency))
	if err != nil {
		return "", err
	}

	s.logger.Info("provider payment created",
		"payment_id", created.ID,
		"host_id", host.ID,
		"amount_cents", cmd.AmountCents,
		"currency", cmd.Currency,
	)
	return created.ID, nil
}

// Execute captures the payment referenced by the order's payment method.
// The order itself is left untouched.
func (s *PaymentService) Execute(ctx context.Context, order *domain.Order) (*domain.CapturePayload, error) {
	if err := requireCaptureIDs(order); err != nil {
		return nil, err
	}
	host, err := s.ReceivingHost(ctx, order)
	if err != nil {
		return nil, err
	}
	return s.capture(ctx, order, host)
}

// capture executes the order's payment with host's credential.
func (s *PaymentService) capture(ctx context.Context, order *domain.Order, host *domain.Party) (*domain.CapturePayload, error) {
	if err := requireCaptureIDs(order); err != nil {
		return nil, err
	}

	cred, err := s.credentials.ResolveCredential(ctx, host.ID)
	if err != nil {
		return nil, err
	}

	pm := order.PaymentMethod
	payload, err := s.provider.ExecutePayment(ctx, cred, pm.Data.PaymentID, pm.Data.PayerID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("provider payment executed",
		"order_id", order.ID,
		"payment_id", pm.Data.PaymentID,
		"state", payload.State,
	)
	return payload, nil
}

func requireCaptureIDs(order *domain.Order) error {
	pm := order.PaymentMethod
	switch {
	case pm == nil:
		return domain.NewMissingRequiredFieldError("payment method")
	case pm.Data.PaymentID == "":
		return domain.NewMissingRequiredFieldError("paymentID")
	case pm.Data.PayerID == "":
		return domain.NewMissingRequiredFieldError("payerID")
	}
	return nil
}

// ReceivingHost resolves the party that settles funds for the order's recipient.
func (s *PaymentService) ReceivingHost(ctx context.Context, order *domain.Order) (*domain.Party, error) {
	return s.resolveHost(ctx, order.ToPartyID)
}

func (s *PaymentService) resolveHost(ctx context.Context, partyID uuid.UUID) (*domain.Party, error) {
	party, err := s.repo.FindPartyByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	hostID := party.ReceivingHostID()
	if hostID == party.ID {
		return party, nil
	}
	return s.repo.FindPartyByID(ctx, hostID)
}

func (s *PaymentService) validateCommand(cmd CreatePaymentCommand) error {
	err := s.validate.Struct(cmd)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.NewValidationError(err.Error())
	}

	fe := fieldErrs[0]
	if fe.Tag() == "required" {
		return domain.NewMissingRequiredFieldError(fieldName(fe.Field()))
	}
	return domain.NewValidationError(fmt.Sprintf("%s is invalid (%s)", fieldName(fe.Field()), fe.Tag()))
}

func fieldName(field string) string {
	switch field {
	case "AmountCents":
		return "amount"
	case "Currency":
		return "currency"
	case "HostID":
		return "host_id"
	}
	return field
}
