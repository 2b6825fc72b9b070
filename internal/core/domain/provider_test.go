package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCapturePayload_KeepsRawBytes(t *testing.T) {
	raw := []byte(`{"id":"PAY-1","state":"approved","transactions":[{"amount":{"total":"10.00","currency":"USD"}}],"extra":{"kept":true}}`)

	payload, err := domain.ParseCapturePayload(raw)
	require.NoError(t, err)

	assert.Equal(t, "PAY-1", payload.ID)
	assert.JSONEq(t, string(raw), string(payload.Raw))
}

func TestParseCapturePayload_InvalidJSON(t *testing.T) {
	_, err := domain.ParseCapturePayload([]byte(`{not json`))
	assert.Error(t, err)
}

func TestCapturePayload_FirstTransaction(t *testing.T) {
	t.Run("returns the first transaction", func(t *testing.T) {
		payload, err := domain.ParseCapturePayload([]byte(`{"transactions":[{"amount":{"total":"10.00","currency":"EUR"}},{"amount":{"total":"1.00","currency":"USD"}}]}`))
		require.NoError(t, err)

		txn, err := payload.FirstTransaction()
		require.NoError(t, err)
		assert.Equal(t, "10.00", txn.Amount.Total)
		assert.Equal(t, "EUR", txn.Amount.Currency)
	})

	t.Run("missing transactions is a data integrity error", func(t *testing.T) {
		payload, err := domain.ParseCapturePayload([]byte(`{"id":"PAY-1"}`))
		require.NoError(t, err)

		_, err = payload.FirstTransaction()
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeDataIntegrity))
	})
}

func TestCapturePayload_ProcessorFee(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"no transactions", `{}`, "0"},
		{"no related resources", `{"transactions":[{"amount":{"total":"10.00","currency":"USD"}}]}`, "0"},
		{"empty related resources", `{"transactions":[{"related_resources":[]}]}`, "0"},
		{"resource without sale", `{"transactions":[{"related_resources":[{"refund":{}}]}]}`, "0"},
		{"sale without fee", `{"transactions":[{"related_resources":[{"sale":{"id":"S1"}}]}]}`, "0"},
		{"fee without value", `{"transactions":[{"related_resources":[{"sale":{"transaction_fee":{}}}]}]}`, "0"},
		{"fee present", `{"transactions":[{"related_resources":[{"sale":{"transaction_fee":{"value":"0.59","currency":"USD"}}}]}]}`, "0.59"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := domain.ParseCapturePayload([]byte(tt.raw))
			require.NoError(t, err)

			fee, err := payload.ProcessorFee()
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(fee), "got %s", fee)
		})
	}
}

func TestCapturePayload_ProcessorFee_Unparseable(t *testing.T) {
	payload, err := domain.ParseCapturePayload([]byte(`{"transactions":[{"related_resources":[{"sale":{"transaction_fee":{"value":"abc"}}}]}]}`))
	require.NoError(t, err)

	_, err = payload.ProcessorFee()
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeDataIntegrity))
}

func TestNewCreatePaymentRequest(t *testing.T) {
	req := domain.NewCreatePaymentRequest(1050, "EUR")

	body, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))

	assert.Equal(t, "sale", decoded["intent"])
	assert.Equal(t, map[string]any{"payment_method": "paypal"}, decoded["payer"])

	txns := decoded["transactions"].([]any)
	require.Len(t, txns, 1)
	amount := txns[0].(map[string]any)["amount"].(map[string]any)
	assert.Equal(t, "10.50", amount["total"])
	assert.Equal(t, "EUR", amount["currency"])

	redirects := decoded["redirect_urls"].(map[string]any)
	assert.NotEmpty(t, redirects["return_url"])
	assert.NotEmpty(t, redirects["cancel_url"])
}
