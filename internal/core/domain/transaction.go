package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionCredit TransactionType = "CREDIT"
	TransactionDebit  TransactionType = "DEBIT"
)

// Transaction is an immutable ledger entry. All fee fields are in host currency.
type Transaction struct {
	ID                                uuid.UUID       `json:"id"`
	Type                              TransactionType `json:"type"`
	OrderID                           uuid.UUID       `json:"orderId"`
	FromPartyID                       uuid.UUID       `json:"fromPartyId"`
	ToPartyID                         uuid.UUID       `json:"toPartyId"`
	HostID                            uuid.UUID       `json:"hostId"`
	CreatedByUserID                   uuid.UUID       `json:"createdByUserId"`
	Amount                            int64           `json:"amount"`
	Currency                          string          `json:"currency"`
	HostCurrency                      string          `json:"hostCurrency"`
	AmountInHostCurrency              int64           `json:"amountInHostCurrency"`
	HostCurrencyFxRate                float64         `json:"hostCurrencyFxRate"`
	HostFeeInHostCurrency             int64           `json:"hostFeeInHostCurrency"`
	PlatformFeeInHostCurrency         int64           `json:"platformFeeInHostCurrency"`
	PaymentProcessorFeeInHostCurrency int64           `json:"paymentProcessorFeeInHostCurrency"`
	TaxAmount                         *int64          `json:"taxAmount,omitempty"`
	Description                       string          `json:"description"`
	Data                              json.RawMessage `json:"data,omitempty"`
	CreatedAt                         time.Time       `json:"createdAt"`
}
