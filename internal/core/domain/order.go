package domain

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus tracks an order through finalization
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusError      OrderStatus = "ERROR"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

// OrderData is the free-form metadata attached to an order.
type OrderData struct {
	IsFeesOnTop bool  `json:"isFeesOnTop,omitempty"`
	PlatformFee int64 `json:"platformFee,omitempty"`
}

type Order struct {
	ID                 uuid.UUID
	TotalAmount        int64
	Currency           string
	TaxAmount          *int64
	Description        string
	FromPartyID        uuid.UUID
	ToPartyID          uuid.UUID
	CreatedByUserID    uuid.UUID
	PlatformFeePercent decimal.Decimal
	Data               OrderData
	Status             OrderStatus
	ProcessedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time

	PaymentMethod *PaymentMethod
}

// PaymentMethodData holds the provider identifiers collected at checkout.
type PaymentMethodData struct {
	PaymentID string `json:"paymentID,omitempty"`
	PayerID   string `json:"payerID,omitempty"`
}

type PaymentMethod struct {
	ID          uuid.UUID
	Service     string
	Data        PaymentMethodData
	ConfirmedAt *time.Time
}

func (o *Order) IsProcessed() bool {
	return o.ProcessedAt != nil
}

// MarkProcessing claims the order for a single finalizer.
func (o *Order) MarkProcessing() error {
	return o.transition(OrderStatusProcessing)
}

// MarkError releases the claim after a failure that left no ledger entry.
func (o *Order) MarkError() error {
	return o.transition(OrderStatusError)
}

// MarkPaid settles the order and confirms its payment method.
func (o *Order) MarkPaid(at time.Time) error {
	if err := o.transition(OrderStatusPaid); err != nil {
		return err
	}
	o.ProcessedAt = &at
	if o.PaymentMethod != nil {
		o.PaymentMethod.ConfirmedAt = &at
	}
	return nil
}

func (o *Order) transition(target OrderStatus) error {
	var allowed []OrderStatus
	switch o.Status {
	case OrderStatusPending, OrderStatusError:
		allowed = []OrderStatus{OrderStatusProcessing}
	case OrderStatusProcessing:
		allowed = []OrderStatus{OrderStatusPaid, OrderStatusError}
	}
	if !slices.Contains(allowed, target) {
		return ErrInvalidTransition
	}
	o.Status = target
	return nil
}
