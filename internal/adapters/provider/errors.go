package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
	DebugID    string
	Body       string
}

// errorResponse covers both the payments API shape (name/message/debug_id)
// and the OAuth shape (error/error_description).
type errorResponse struct {
	Name             string `json:"name"`
	Message          string `json:"message"`
	DebugID          string `json:"debug_id"`
	Err              string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *APIError) Error() string {
	if e.DebugID != "" {
		return fmt.Sprintf("provider error [%s] (status: %d, debug_id: %s)", e.Name, e.StatusCode, e.DebugID)
	}
	return fmt.Sprintf("provider error [%s] (status: %d)", e.Name, e.StatusCode)
}

func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// parseAPIError extracts the most useful human message. When the body is not
// JSON the decode failure itself becomes the message.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Body:       string(body),
	}

	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		apiErr.Message = err.Error()
		return apiErr
	}

	apiErr.Name = firstNonEmpty(resp.Name, resp.Err)
	apiErr.DebugID = resp.DebugID
	apiErr.Message = firstNonEmpty(resp.Message, resp.ErrorDescription, apiErr.Name, http.StatusText(statusCode))
	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
