package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServicePayPal tags credentials and payment methods belonging to the PayPal provider.
const ServicePayPal = "paypal"

// Party is a collective, an individual or a fiscal host.
type Party struct {
	ID             uuid.UUID
	Name           string
	Currency       string
	HostID         *uuid.UUID
	HostFeePercent decimal.Decimal
}

// ReceivingHostID is the party that settles funds on this party's behalf.
// A party without a host settles for itself.
func (p *Party) ReceivingHostID() uuid.UUID {
	if p.HostID != nil {
		return *p.HostID
	}
	return p.ID
}

// Credential is a connected provider account owned by a host.
type Credential struct {
	ID        uuid.UUID
	HostID    uuid.UUID
	Service   string
	ClientID  string
	Secret    string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Usable reports whether the credential can be exchanged for a token.
func (c *Credential) Usable() bool {
	return c != nil && c.DeletedAt == nil && c.ClientID != "" && c.Secret != ""
}
