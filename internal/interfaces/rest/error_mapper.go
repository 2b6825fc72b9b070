package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
)

const errCodeInternal = "INTERNAL_ERROR"

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToHTTPStatus maps a pipeline error code to the status returned to callers.
func ToHTTPStatus(err error) int {
	switch domain.ErrorCode(err) {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeOrderNotFound, domain.ErrCodePartyNotFound:
		return http.StatusNotFound
	case domain.ErrCodeConfiguration, domain.ErrCodePaymentProvider:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeOrderAlreadyProcessed, domain.ErrCodeDuplicateTransaction:
		return http.StatusConflict
	case domain.ErrRequestProcessing:
		return http.StatusAccepted
	case domain.ErrCodeUpstreamAuth:
		return http.StatusBadGateway
	case domain.ErrCodeUpstreamTimeout, domain.ErrCodeUpstreamUnknown:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError maps pipeline errors to HTTP responses. Errors outside the
// taxonomy are logged and reported without their text.
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	status := ToHTTPStatus(err)
	detail := ErrorDetail{Code: errCodeInternal, Message: "internal server error"}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		detail = ErrorDetail{Code: domainErr.Code, Message: domainErr.Message}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "code", detail.Code, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Success: false, Error: detail})
}

// APIResponse wraps successful payloads.
type APIResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}
