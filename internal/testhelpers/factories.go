package testhelpers

import (
	"context"
	"testing"
	"time"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// InsertHost stores a self-hosted party with the given fee.
func (td *TestDatabase) InsertHost(t *testing.T, currency string, feePercent decimal.Decimal) *domain.Party {
	p := &domain.Party{
		ID:             uuid.New(),
		Name:           "host-" + uuid.NewString()[:8],
		Currency:       currency,
		HostFeePercent: feePercent,
	}
	td.insertParty(t, p)
	return p
}

// InsertCollective stores a party hosted by host.
func (td *TestDatabase) InsertCollective(t *testing.T, host *domain.Party) *domain.Party {
	p := &domain.Party{
		ID:       uuid.New(),
		Name:     "collective-" + uuid.NewString()[:8],
		Currency: host.Currency,
		HostID:   &host.ID,
	}
	td.insertParty(t, p)
	return p
}

func (td *TestDatabase) insertParty(t *testing.T, p *domain.Party) {
	_, err := td.DB.Pool.Exec(context.Background(),
		`INSERT INTO parties (id, name, currency, host_id, host_fee_percent) VALUES ($1, $2, $3, $4, $5::numeric)`,
		p.ID, p.Name, p.Currency, p.HostID, p.HostFeePercent.String(),
	)
	require.NoError(t, err)
}

func (td *TestDatabase) InsertCredential(t *testing.T, hostID uuid.UUID, clientID, secret string, createdAt time.Time) *domain.Credential {
	c := &domain.Credential{
		ID:        uuid.New(),
		HostID:    hostID,
		Service:   domain.ServicePayPal,
		ClientID:  clientID,
		Secret:    secret,
		CreatedAt: createdAt,
	}
	_, err := td.DB.Pool.Exec(context.Background(),
		`INSERT INTO provider_credentials (id, host_id, service, client_id, secret, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.HostID, c.Service, c.ClientID, c.Secret, c.CreatedAt,
	)
	require.NoError(t, err)
	return c
}

// InsertOrder stores a PENDING order to collective together with its payment method.
func (td *TestDatabase) InsertOrder(t *testing.T, donor, collective *domain.Party, total int64, currency string) *domain.Order {
	ctx := context.Background()

	pm := &domain.PaymentMethod{
		ID:      uuid.New(),
		Service: domain.ServicePayPal,
		Data: domain.PaymentMethodData{
			PaymentID: "PAY-" + uuid.NewString()[:8],
			PayerID:   "PAYER-42",
		},
	}
	_, err := td.DB.Pool.Exec(ctx,
		`INSERT INTO payment_methods (id, service, data) VALUES ($1, $2, $3)`,
		pm.ID, pm.Service, pm.Data,
	)
	require.NoError(t, err)

	o := &domain.Order{
		ID:                 uuid.New(),
		TotalAmount:        total,
		Currency:           currency,
		Description:        "donation to " + collective.Name,
		FromPartyID:        donor.ID,
		ToPartyID:          collective.ID,
		CreatedByUserID:    uuid.New(),
		PlatformFeePercent: decimal.Zero,
		Status:             domain.OrderStatusPending,
		PaymentMethod:      pm,
	}
	_, err = td.DB.Pool.Exec(ctx,
		`INSERT INTO orders (id, total_amount, currency, description, from_party_id, to_party_id,
			created_by_user_id, data, status, payment_method_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.TotalAmount, o.Currency, o.Description, o.FromPartyID, o.ToPartyID,
		o.CreatedByUserID, o.Data, o.Status, pm.ID,
	)
	require.NoError(t, err)
	return o
}

// AgeOrder moves the order's updated_at into the past.
func (td *TestDatabase) AgeOrder(t *testing.T, orderID uuid.UUID, by time.Duration) {
	_, err := td.DB.Pool.Exec(context.Background(),
		`UPDATE orders SET updated_at = NOW() - make_interval(secs => $1) WHERE id = $2`,
		by.Seconds(), orderID,
	)
	require.NoError(t, err)
}
