package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/DanielPopoola/donation-gateway/internal/core/service"
	"github.com/DanielPopoola/donation-gateway/internal/interfaces/rest"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

type PaymentCreator interface {
	Create(ctx context.Context, cmd service.CreatePaymentCommand) (string, error)
}

type OrderFinalizer interface {
	Finalize(ctx context.Context, orderID uuid.UUID) (*domain.Transaction, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	payments  PaymentCreator
	finalizer OrderFinalizer
	health    HealthChecker
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewHandlers(payments PaymentCreator, finalizer OrderFinalizer, health HealthChecker, logger *slog.Logger) *Handlers {
	return &Handlers{
		payments:  payments,
		finalizer: finalizer,
		health:    health,
		validate:  validator.New(),
		logger:    logger,
	}
}

func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /payments", h.HandleCreatePayment)
	mux.HandleFunc("POST /orders/{id}/execute", h.HandleExecuteOrder)
	mux.HandleFunc("GET /healthz", h.HandleHealth)
}

type CreatePaymentRequest struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency" validate:"required"`
	HostID   string `json:"host_id" validate:"required,uuid"`
}

type CreatePaymentResponse struct {
	ID string `json:"id"`
}

func (h *Handlers) HandleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		rest.WriteError(w, requestValidationError(err), h.logger)
		return
	}

	id, err := h.payments.Create(r.Context(), service.CreatePaymentCommand{
		AmountCents: req.Amount,
		Currency:    req.Currency,
		HostID:      uuid.MustParse(req.HostID),
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, CreatePaymentResponse{ID: id})
}

func (h *Handlers) HandleExecuteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		rest.WriteError(w, domain.NewValidationError("order id must be a UUID"), h.logger)
		return
	}

	txn, err := h.finalizer.Finalize(r.Context(), orderID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, txn)
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("request body is required")
		}
		return domain.NewValidationError(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func requestValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidationError(err.Error())
	}
	fe := verrs[0]
	field := jsonFieldName(fe.Field())
	if fe.Tag() == "required" {
		return domain.NewMissingRequiredFieldError(field)
	}
	return domain.NewValidationError(fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
}

func jsonFieldName(field string) string {
	switch field {
	case "HostID":
		return "host_id"
	default:
		return strings.ToLower(field)
	}
}
