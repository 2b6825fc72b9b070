package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DanielPopoola/donation-gateway/internal/adapters/postgres"
	"github.com/DanielPopoola/donation-gateway/internal/adapters/provider"
	"github.com/DanielPopoola/donation-gateway/internal/config"
	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/DanielPopoola/donation-gateway/internal/core/service"
	"github.com/DanielPopoola/donation-gateway/internal/interfaces/rest"
	"github.com/DanielPopoola/donation-gateway/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/donation-gateway/internal/interfaces/rest/middleware"
	"github.com/DanielPopoola/donation-gateway/internal/testhelpers"
	"github.com/DanielPopoola/donation-gateway/internal/worker"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hostClientID = "host-client"
	hostSecret   = "host-secret"
)

// fakePayPal answers the token, create and execute endpoints.
type fakePayPal struct {
	server       *httptest.Server
	executeCalls atomic.Int32
	executeDelay time.Duration
}

func newFakePayPal(t *testing.T) *fakePayPal {
	fp := &fakePayPal{}
	fp.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/v1/oauth2/token":
			user, pass, _ := r.BasicAuth()
			if user != hostClientID || pass != hostSecret {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":32400}`))
		case r.URL.Path == "/v1/payments/payment":
			_, _ = w.Write([]byte(`{"id":"PAY-E2E","state":"created"}`))
		case strings.HasSuffix(r.URL.Path, "/execute"):
			fp.executeCalls.Add(1)
			time.Sleep(fp.executeDelay)
			paymentID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/payments/payment/"), "/execute")
			_, _ = w.Write([]byte(`{"id":"` + paymentID + `","state":"approved","transactions":[{"amount":{"total":"10.00","currency":"USD"},` +
				`"related_resources":[{"sale":{"id":"SALE-1","state":"completed","transaction_fee":{"value":"0.59","currency":"USD"}}}]}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fp.server.Close)
	return fp
}

type env struct {
	testDB     *testhelpers.TestDatabase
	repo       *postgres.Repository
	finalizer  *service.OrderFinalizer
	handler    http.Handler
	paypal     *fakePayPal
	cfg        *config.Config
	host       *domain.Party
	collective *domain.Party
	donor      *domain.Party
}

func setupIntegration(t *testing.T) *env {
	t.Helper()
	testDB := testhelpers.SetupTestDatabase(t)
	t.Cleanup(func() { testDB.Cleanup(t) })
	paypal := newFakePayPal(t)

	// config is loaded the way the binary loads it
	vars := map[string]string{
		"DONATIONS_PRIMARY__ENV":                 "test",
		"DONATIONS_SERVER__PORT":                 "8081",
		"DONATIONS_SERVER__READ_TIMEOUT":         "15s",
		"DONATIONS_SERVER__WRITE_TIMEOUT":        "15s",
		"DONATIONS_SERVER__IDLE_TIMEOUT":         "60s",
		"DONATIONS_DATABASE__HOST":               testDB.Config.Host,
		"DONATIONS_DATABASE__PORT":               strconv.Itoa(testDB.Config.Port),
		"DONATIONS_DATABASE__USER":               testDB.Config.User,
		"DONATIONS_DATABASE__PASSWORD":           testDB.Config.Password,
		"DONATIONS_DATABASE__NAME":               testDB.Config.Name,
		"DONATIONS_DATABASE__SSL_MODE":           "disable",
		"DONATIONS_DATABASE__MAX_OPEN_CONNS":     "10",
		"DONATIONS_DATABASE__MAX_IDLE_CONNS":     "2",
		"DONATIONS_DATABASE__CONN_MAX_LIFETIME":  "5m",
		"DONATIONS_DATABASE__CONN_MAX_IDLE_TIME": "5m",
		"DONATIONS_PROVIDER__ENVIRONMENT":        "sandbox",
		"DONATIONS_PROVIDER__SANDBOX_URL":        paypal.server.URL + "/v1",
		"DONATIONS_PROVIDER__REQUEST_TIMEOUT":    "5s",
		"DONATIONS_RETRY__BASE_DELAY":            "1ms",
		"DONATIONS_RETRY__MAX_RETRIES":           "3",
		"DONATIONS_WORKER__INTERVAL":             "1s",
		"DONATIONS_WORKER__BATCH_SIZE":           "10",
		"DONATIONS_WORKER__GRACE_PERIOD":         "1m",
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := postgres.NewRepository(testDB.DB)

	client, err := provider.NewClient(cfg.Provider, logger)
	require.NoError(t, err)
	retrying := provider.NewRetryingProvider(client, cfg.Retry, logger)

	credentials := service.NewCredentialResolver(repo, logger)
	payments := service.NewPaymentService(repo, retrying, credentials, logger)
	finalizer := service.NewOrderFinalizer(repo, payments, service.NewTransactionBuilder(repo, logger), logger)

	mux := http.NewServeMux()
	handlers.NewHandlers(payments, finalizer, testDB.DB, logger).RegisterRoutes(mux)
	handler := middleware.Recovery(logger)(mux)
	handler = middleware.Timeout(cfg.Server.WriteTimeout)(handler)
	handler = middleware.Logging(logger)(handler)

	host := testDB.InsertHost(t, "USD", decimal.NewFromInt(5))
	testDB.InsertCredential(t, host.ID, hostClientID, hostSecret, time.Now().Add(-time.Hour))

	return &env{
		testDB:     testDB,
		repo:       repo,
		finalizer:  finalizer,
		handler:    handler,
		paypal:     paypal,
		cfg:        cfg,
		host:       host,
		collective: testDB.InsertCollective(t, host),
		donor:      testDB.InsertHost(t, "USD", decimal.Zero),
	}
}

func (e *env) post(path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, &buf))
	return w
}

func TestIntegration_FullFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	e := setupIntegration(t)
	ctx := context.Background()

	// 1. create the payment on behalf of the collective
	w := e.post("/payments", map[string]any{
		"amount":   1000,
		"currency": "USD",
		"host_id":  e.collective.ID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"data":{"id":"PAY-E2E"}}`, w.Body.String())

	// 2. the donor approves; the order references the created payment
	order := e.testDB.InsertOrder(t, e.donor, e.collective, 1000, "USD")

	w = e.post("/orders/"+order.ID.String()+"/execute", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data domain.Transaction `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1000), resp.Data.AmountInHostCurrency)
	assert.Equal(t, int64(50), resp.Data.HostFeeInHostCurrency)
	assert.Equal(t, int64(59), resp.Data.PaymentProcessorFeeInHostCurrency)
	assert.Equal(t, e.host.ID, resp.Data.HostID)

	// 3. verify final state
	settled, err := e.repo.FindOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, settled.Status)
	assert.NotNil(t, settled.ProcessedAt)
	assert.NotNil(t, settled.PaymentMethod.ConfirmedAt)

	// 4. a second execute is rejected without touching the provider
	w = e.post("/orders/"+order.ID.String()+"/execute", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int32(1), e.paypal.executeCalls.Load())
}

func TestIntegration_NoCredentialForHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	e := setupIntegration(t)

	w := e.post("/payments", map[string]any{
		"amount":   1000,
		"currency": "USD",
		"host_id":  e.donor.ID.String(),
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp rest.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.ErrCodeConfiguration, resp.Error.Code)
}

func TestIntegration_ConcurrentDoubleExecute(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	e := setupIntegration(t)
	e.paypal.executeDelay = 100 * time.Millisecond
	order := e.testDB.InsertOrder(t, e.donor, e.collective, 1000, "USD")

	const numRequests = 5
	var wg sync.WaitGroup
	results := make(chan int, numRequests)

	for range numRequests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- e.post("/orders/"+order.ID.String()+"/execute", nil).Code
		}()
	}

	wg.Wait()
	close(results)

	ok := 0
	for code := range results {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusAccepted, http.StatusConflict:
		default:
			t.Errorf("unexpected concurrent request status: %d", code)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, int32(1), e.paypal.executeCalls.Load())

	txn, err := e.repo.FindTransactionByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, txn)
}

func TestIntegration_CrashSimulationReconciliation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	e := setupIntegration(t)
	ctx := context.Background()

	// simulate a crash after the ledger insert: order still PROCESSING, marks missing
	order := e.testDB.InsertOrder(t, e.donor, e.collective, 1000, "USD")
	_, err := e.testDB.DB.Pool.Exec(ctx, `UPDATE orders SET status = 'PROCESSING' WHERE id = $1`, order.ID)
	require.NoError(t, err)
	require.NoError(t, e.repo.CreateTransaction(ctx, &domain.Transaction{
		ID:                   uuid.New(),
		Type:                 domain.TransactionCredit,
		OrderID:              order.ID,
		FromPartyID:          order.FromPartyID,
		ToPartyID:            order.ToPartyID,
		HostID:               e.host.ID,
		CreatedByUserID:      order.CreatedByUserID,
		Amount:               1000,
		Currency:             "USD",
		HostCurrency:         "USD",
		AmountInHostCurrency: 1000,
		HostCurrencyFxRate:   1,
	}))
	e.testDB.AgeOrder(t, order.ID, 2*time.Minute)

	// a claimed order without a ledger entry is only flagged
	unknown := e.testDB.InsertOrder(t, e.donor, e.collective, 1000, "USD")
	_, err = e.testDB.DB.Pool.Exec(ctx, `UPDATE orders SET status = 'PROCESSING' WHERE id = $1`, unknown.ID)
	require.NoError(t, err)
	e.testDB.AgeOrder(t, unknown.ID, 2*time.Minute)

	reconciler := worker.NewReconciler(
		e.repo,
		e.finalizer,
		e.cfg.Worker.Interval,
		e.cfg.Worker.GracePeriod,
		e.cfg.Worker.BatchSize,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	summary := reconciler.RunOnce(ctx)
	assert.Equal(t, worker.Summary{Scanned: 2, Settled: 1, Flagged: 1}, summary)

	settled, err := e.repo.FindOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, settled.Status)
	assert.NotNil(t, settled.PaymentMethod.ConfirmedAt)

	stillClaimed, err := e.repo.FindOrderByID(ctx, unknown.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, stillClaimed.Status)
	assert.Equal(t, int32(0), e.paypal.executeCalls.Load())
}
