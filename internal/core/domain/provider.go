package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	IntentSale          = "sale"
	PayerMethodPayPal   = "paypal"
	placeholderRedirect = "https://example.org/donations"
)

type ProviderAmount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type ProviderMoney struct {
	Value    string `json:"value"`
	Currency string `json:"currency,omitempty"`
}

type Payer struct {
	PaymentMethod string `json:"payment_method"`
}

type PaymentTransaction struct {
	Amount ProviderAmount `json:"amount"`
}

type RedirectURLs struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type CreatePaymentRequest struct {
	Intent       string               `json:"intent"`
	Payer        Payer                `json:"payer"`
	Transactions []PaymentTransaction `json:"transactions"`
	RedirectURLs RedirectURLs         `json:"redirect_urls"`
}

// NewCreatePaymentRequest builds a single-payer, single-transaction sale.
// Redirects are never followed: the flow is server-initiated.
func NewCreatePaymentRequest(amountCents int64, currency string) CreatePaymentRequest {
	return CreatePaymentRequest{
		Intent: IntentSale,
		Payer:  Payer{PaymentMethod: PayerMethodPayPal},
		Transactions: []PaymentTransaction{
			{Amount: ProviderAmount{Total: FormatMajorUnits(amountCents), Currency: currency}},
		},
		RedirectURLs: RedirectURLs{
			ReturnURL: placeholderRedirect,
			CancelURL: placeholderRedirect,
		},
	}
}

type CreatedPayment struct {
	ID    string `json:"id"`
	State string `json:"state,omitempty"`
}

type ExecutePaymentRequest struct {
	PayerID string `json:"payer_id"`
}

// CapturePayload is the provider's response to an execute call.
// Raw keeps the exact bytes for the audit trail.
type CapturePayload struct {
	ID           string               `json:"id"`
	State        string               `json:"state,omitempty"`
	Transactions []CaptureTransaction `json:"transactions"`

	Raw json.RawMessage `json:"-"`
}

type CaptureTransaction struct {
	Amount           ProviderAmount    `json:"amount"`
	RelatedResources []RelatedResource `json:"related_resources,omitempty"`
}

type RelatedResource struct {
	Sale *Sale `json:"sale,omitempty"`
}

type Sale struct {
	ID             string         `json:"id,omitempty"`
	State          string         `json:"state,omitempty"`
	TransactionFee *ProviderMoney `json:"transaction_fee,omitempty"`
}

func ParseCapturePayload(raw []byte) (*CapturePayload, error) {
	var p CapturePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode capture payload: %w", err)
	}
	p.Raw = append(json.RawMessage(nil), raw...)
	return &p, nil
}

// FirstTransaction returns transactions[0]; its absence means the capture
// cannot be booked.
func (p *CapturePayload) FirstTransaction() (*CaptureTransaction, error) {
	if p == nil || len(p.Transactions) == 0 {
		return nil, NewDataIntegrityError("capture payload has no transactions")
	}
	return &p.Transactions[0], nil
}

// ProcessorFee follows transactions[0].related_resources[0].sale.transaction_fee.value.
// Any missing link yields zero.
func (p *CapturePayload) ProcessorFee() (decimal.Decimal, error) {
	value, ok := p.processorFeeValue()
	if !ok {
		return decimal.Zero, nil
	}
	fee, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, &DomainError{
			Code:    ErrCodeDataIntegrity,
			Message: fmt.Sprintf("unparseable processor fee %q", value),
			Err:     err,
		}
	}
	return fee, nil
}

func (p *CapturePayload) processorFeeValue() (string, bool) {
	if p == nil || len(p.Transactions) == 0 {
		return "", false
	}
	resources := p.Transactions[0].RelatedResources
	if len(resources) == 0 || resources[0].Sale == nil {
		return "", false
	}
	fee := resources[0].Sale.TransactionFee
	if fee == nil || fee.Value == "" {
		return "", false
	}
	return fee.Value, true
}
