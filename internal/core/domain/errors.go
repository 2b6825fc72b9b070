package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a classified pipeline error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the caller may safely try again.
func (e *DomainError) IsRetryable() bool {
	return e.Code == ErrCodeUpstreamTimeout || e.Code == ErrRequestProcessing
}

// Retryable interface for errors that can be retried
type Retryable interface {
	IsRetryable() bool
}

const (
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeConfiguration         = "CONFIGURATION_ERROR"
	ErrCodeUpstreamAuth          = "UPSTREAM_AUTH_ERROR"
	ErrCodePaymentProvider       = "PAYMENT_PROVIDER_ERROR"
	ErrCodeUpstreamTimeout       = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamUnknown       = "UPSTREAM_OUTCOME_UNKNOWN"
	ErrCodeDataIntegrity         = "DATA_INTEGRITY_ERROR"
	ErrCodePartialCompletion     = "PARTIAL_COMPLETION"
	ErrCodeOrderNotFound         = "ORDER_NOT_FOUND"
	ErrCodePartyNotFound         = "PARTY_NOT_FOUND"
	ErrCodeOrderAlreadyProcessed = "ORDER_ALREADY_PROCESSED"
	ErrCodeDuplicateTransaction  = "DUPLICATE_TRANSACTION"
	ErrRequestProcessing         = "REQUEST_PROCESSING"
)

func NewValidationError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return NewValidationError(fmt.Sprintf("%s is required", field))
}

func NewConfigurationError(hostID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeConfiguration,
		Message: fmt.Sprintf("provider not supported for this receiving party (%s)", hostID),
	}
}

func NewUpstreamAuthError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeUpstreamAuth,
		Message: "provider token exchange failed",
		Err:     err,
	}
}

func NewPaymentProviderError(message string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentProvider,
		Message: message,
		Err:     err,
	}
}

func NewUpstreamTimeoutError(operation string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeUpstreamTimeout,
		Message: fmt.Sprintf("timeout waiting for %s", operation),
		Err:     err,
	}
}

// NewUpstreamOutcomeUnknownError reports a request the provider may have acted on
// without the gateway seeing its answer.
func NewUpstreamOutcomeUnknownError(operation string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeUpstreamUnknown,
		Message: fmt.Sprintf("outcome of %s unknown", operation),
		Err:     err,
	}
}

func NewDataIntegrityError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeDataIntegrity,
		Message: message,
	}
}

func NewPartialCompletionError(orderID string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodePartialCompletion,
		Message: fmt.Sprintf("ledger transaction recorded but order %s not marked processed", orderID),
		Err:     err,
	}
}

func NewOrderNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeOrderNotFound,
		Message: fmt.Sprintf("order with ID %s not found", id),
	}
}

func NewPartyNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodePartyNotFound,
		Message: fmt.Sprintf("party with ID %s not found", id),
	}
}

func NewOrderAlreadyProcessedError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeOrderAlreadyProcessed,
		Message: fmt.Sprintf("order %s has already been processed", id),
	}
}

func NewDuplicateTransactionError(orderID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeDuplicateTransaction,
		Message: fmt.Sprintf("order %s already has a ledger transaction", orderID),
	}
}

func NewRequestProcessingError() *DomainError {
	return &DomainError{
		Code:    ErrRequestProcessing,
		Message: "order is being processed",
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ErrorCode returns the code of the outermost DomainError in the chain.
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsOutcomeUnknown reports whether the provider may have applied the request.
func IsOutcomeUnknown(err error) bool {
	code := ErrorCode(err)
	return code == ErrCodeUpstreamTimeout || code == ErrCodeUpstreamUnknown
}

// IsRetryable walks the chain for a Retryable error.
func IsRetryable(err error) bool {
	var r Retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}
