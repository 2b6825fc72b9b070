package postgres_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/donation-gateway/internal/adapters/postgres"
	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/DanielPopoola/donation-gateway/internal/core/ports"
	"github.com/DanielPopoola/donation-gateway/internal/core/service"
	"github.com/DanielPopoola/donation-gateway/internal/testhelpers"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	suite.Suite
	testDB *testhelpers.TestDatabase
	repo   *postgres.Repository

	host       *domain.Party
	collective *domain.Party
	donor      *domain.Party
}

func TestRepositoryTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration tests in short mode")
	}
	suite.Run(t, new(RepositoryTestSuite))
}

func (suite *RepositoryTestSuite) SetupSuite() {
	suite.testDB = testhelpers.SetupTestDatabase(suite.T())
	suite.repo = postgres.NewRepository(suite.testDB.DB)
}

func (suite *RepositoryTestSuite) TearDownSuite() {
	suite.testDB.Cleanup(suite.T())
}

func (suite *RepositoryTestSuite) SetupTest() {
	t := suite.T()
	suite.testDB.CleanTables(t)

	suite.host = suite.testDB.InsertHost(t, "USD", decimal.RequireFromString("5"))
	suite.collective = suite.testDB.InsertCollective(t, suite.host)
	suite.donor = suite.testDB.InsertHost(t, "USD", decimal.Zero)
}

func (suite *RepositoryTestSuite) TestFindActiveCredential_NewestWins() {
	ctx := context.Background()
	t := suite.T()

	suite.testDB.InsertCredential(t, suite.host.ID, "old-id", "old-secret", time.Now().Add(-2*time.Hour))
	newest := suite.testDB.InsertCredential(t, suite.host.ID, "new-id", "new-secret", time.Now().Add(-time.Minute))

	cred, err := suite.repo.FindActiveCredential(ctx, suite.host.ID, domain.ServicePayPal)

	suite.Require().NoError(err)
	suite.Require().NotNil(cred)
	suite.Equal(newest.ID, cred.ID)
	suite.Equal("new-id", cred.ClientID)
}

func (suite *RepositoryTestSuite) TestFindActiveCredential_IgnoresDeleted() {
	ctx := context.Background()
	t := suite.T()

	kept := suite.testDB.InsertCredential(t, suite.host.ID, "kept", "s", time.Now().Add(-time.Hour))
	deleted := suite.testDB.InsertCredential(t, suite.host.ID, "gone", "s", time.Now())
	_, err := suite.testDB.DB.Pool.Exec(ctx, `UPDATE provider_credentials SET deleted_at = NOW() WHERE id = $1`, deleted.ID)
	suite.Require().NoError(err)

	cred, err := suite.repo.FindActiveCredential(ctx, suite.host.ID, domain.ServicePayPal)

	suite.Require().NoError(err)
	suite.Equal(kept.ID, cred.ID)
}

func (suite *RepositoryTestSuite) TestFindActiveCredential_None() {
	cred, err := suite.repo.FindActiveCredential(context.Background(), suite.collective.ID, domain.ServicePayPal)

	suite.NoError(err)
	suite.Nil(cred)
}

func (suite *RepositoryTestSuite) TestFindPartyByID() {
	ctx := context.Background()

	host, err := suite.repo.FindPartyByID(ctx, suite.host.ID)
	suite.Require().NoError(err)
	suite.True(decimal.NewFromInt(5).Equal(host.HostFeePercent))
	suite.Nil(host.HostID)

	collective, err := suite.repo.FindPartyByID(ctx, suite.collective.ID)
	suite.Require().NoError(err)
	suite.Equal(suite.host.ID, collective.ReceivingHostID())

	_, err = suite.repo.FindPartyByID(ctx, uuid.New())
	suite.True(domain.IsErrorCode(err, domain.ErrCodePartyNotFound))
}

func (suite *RepositoryTestSuite) TestFindOrderByID_LoadsPaymentMethod() {
	ctx := context.Background()
	seeded := suite.testDB.InsertOrder(suite.T(), suite.donor, suite.collective, 1000, "USD")

	order, err := suite.repo.FindOrderByID(ctx, seeded.ID)

	suite.Require().NoError(err)
	suite.Equal(int64(1000), order.TotalAmount)
	suite.Equal(domain.OrderStatusPending, order.Status)
	suite.Nil(order.ProcessedAt)
	suite.Require().NotNil(order.PaymentMethod)
	suite.Equal(seeded.PaymentMethod.Data.PaymentID, order.PaymentMethod.Data.PaymentID)
	suite.Equal("PAYER-42", order.PaymentMethod.Data.PayerID)

	_, err = suite.repo.FindOrderByID(ctx, uuid.New())
	suite.True(domain.IsErrorCode(err, domain.ErrCodeOrderNotFound))
}

func (suite *RepositoryTestSuite) TestUpdateOrderAndPaymentMethod() {
	ctx := context.Background()
	seeded := suite.testDB.InsertOrder(suite.T(), suite.donor, suite.collective, 1000, "USD")

	order, err := suite.repo.FindOrderByID(ctx, seeded.ID)
	suite.Require().NoError(err)
	suite.Require().NoError(order.MarkProcessing())
	suite.Require().NoError(order.MarkPaid(time.Now()))

	suite.Require().NoError(suite.repo.UpdateOrder(ctx, order))
	suite.Require().NoError(suite.repo.UpdatePaymentMethod(ctx, order.PaymentMethod))

	reloaded, err := suite.repo.FindOrderByID(ctx, seeded.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusPaid, reloaded.Status)
	suite.NotNil(reloaded.ProcessedAt)
	suite.NotNil(reloaded.PaymentMethod.ConfirmedAt)
}

func (suite *RepositoryTestSuite) TestCreateTransaction_DuplicateRejected() {
	ctx := context.Background()
	order := suite.testDB.InsertOrder(suite.T(), suite.donor, suite.collective, 1000, "USD")

	first := suite.newTransaction(order)
	suite.Require().NoError(suite.repo.CreateTransaction(ctx, first))
	suite.False(first.CreatedAt.IsZero())

	err := suite.repo.CreateTransaction(ctx, suite.newTransaction(order))
	suite.True(domain.IsErrorCode(err, domain.ErrCodeDuplicateTransaction), "got %v", err)

	stored, err := suite.repo.FindTransactionByOrderID(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(first.ID, stored.ID)
	suite.Equal(int64(50), stored.HostFeeInHostCurrency)
	suite.JSONEq(`{"id":"PAY-1","isFeesOnTop":false}`, string(stored.Data))
}

func (suite *RepositoryTestSuite) TestFindTransactionByOrderID_None() {
	txn, err := suite.repo.FindTransactionByOrderID(context.Background(), uuid.New())

	suite.NoError(err)
	suite.Nil(txn)
}

func (suite *RepositoryTestSuite) TestWithTx_RollsBackOnError() {
	ctx := context.Background()
	seeded := suite.testDB.InsertOrder(suite.T(), suite.donor, suite.collective, 1000, "USD")
	boom := errors.New("boom")

	err := suite.repo.WithTx(ctx, func(tx ports.Repository) error {
		order, err := tx.FindOrderByIDForUpdate(ctx, seeded.ID)
		if err != nil {
			return err
		}
		if err := order.MarkProcessing(); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		return boom
	})
	suite.ErrorIs(err, boom)

	order, err := suite.repo.FindOrderByID(ctx, seeded.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusPending, order.Status)
}

func (suite *RepositoryTestSuite) TestFindStaleProcessingOrders() {
	ctx := context.Background()
	t := suite.T()

	stale := suite.testDB.InsertOrder(t, suite.donor, suite.collective, 1000, "USD")
	fresh := suite.testDB.InsertOrder(t, suite.donor, suite.collective, 1000, "USD")
	pending := suite.testDB.InsertOrder(t, suite.donor, suite.collective, 1000, "USD")

	for _, id := range []uuid.UUID{stale.ID, fresh.ID} {
		_, err := suite.testDB.DB.Pool.Exec(ctx, `UPDATE orders SET status = 'PROCESSING' WHERE id = $1`, id)
		suite.Require().NoError(err)
	}
	suite.testDB.AgeOrder(t, stale.ID, 10*time.Minute)
	suite.testDB.AgeOrder(t, pending.ID, 10*time.Minute)

	orders, err := suite.repo.FindStaleProcessingOrders(ctx, 5*time.Minute, 10)

	suite.Require().NoError(err)
	suite.Require().Len(orders, 1)
	suite.Equal(stale.ID, orders[0].ID)
	suite.NotNil(orders[0].PaymentMethod)
}

func (suite *RepositoryTestSuite) TestFinalize_ConcurrentCallsCaptureOnce() {
	ctx := context.Background()
	t := suite.T()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	suite.testDB.InsertCredential(t, suite.host.ID, "client", "secret", time.Now())
	order := suite.testDB.InsertOrder(t, suite.donor, suite.collective, 1000, "USD")

	provider := &service.MockProvider{Delay: 50 * time.Millisecond}
	credentials := service.NewCredentialResolver(suite.repo, logger)
	payments := service.NewPaymentService(suite.repo, provider, credentials, logger)
	finalizer := service.NewOrderFinalizer(suite.repo, payments, service.NewTransactionBuilder(suite.repo, logger), logger)

	const callers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := finalizer.Finalize(ctx, order.ID); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	suite.Equal(1, successes)
	suite.Equal(1, provider.GetCalls("ExecutePayment"))

	settled, err := suite.repo.FindOrderByID(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusPaid, settled.Status)
	suite.NotNil(settled.ProcessedAt)
	suite.NotNil(settled.PaymentMethod.ConfirmedAt)

	txn, err := suite.repo.FindTransactionByOrderID(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1000), txn.AmountInHostCurrency)
	suite.Equal(int64(50), txn.HostFeeInHostCurrency)
	suite.Equal(suite.host.ID, txn.HostID)
}

func (suite *RepositoryTestSuite) newTransaction(order *domain.Order) *domain.Transaction {
	return &domain.Transaction{
		ID:                    uuid.New(),
		Type:                  domain.TransactionCredit,
		OrderID:               order.ID,
		FromPartyID:           order.FromPartyID,
		ToPartyID:             order.ToPartyID,
		HostID:                suite.host.ID,
		CreatedByUserID:       order.CreatedByUserID,
		Amount:                order.TotalAmount,
		Currency:              order.Currency,
		HostCurrency:          "USD",
		AmountInHostCurrency:  order.TotalAmount,
		HostCurrencyFxRate:    1,
		HostFeeInHostCurrency: 50,
		Description:           order.Description,
		Data:                  []byte(`{"id":"PAY-1","isFeesOnTop":false}`),
	}
}
