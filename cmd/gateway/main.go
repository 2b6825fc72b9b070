package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanielPopoola/donation-gateway/internal/adapters/postgres"
	"github.com/DanielPopoola/donation-gateway/internal/adapters/provider"
	"github.com/DanielPopoola/donation-gateway/internal/config"
	"github.com/DanielPopoola/donation-gateway/internal/core/service"
	"github.com/DanielPopoola/donation-gateway/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/donation-gateway/internal/interfaces/rest/middleware"
	"github.com/DanielPopoola/donation-gateway/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("gateway stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting donation gateway",
		"env", cfg.Primary.Env,
		"port", cfg.Server.Port,
		"provider_environment", cfg.Provider.Environment,
	)

	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	repo := postgres.NewRepository(db)

	client, err := provider.NewClient(cfg.Provider, logger)
	if err != nil {
		return fmt.Errorf("create provider client: %w", err)
	}
	paypal := provider.NewRetryingProvider(client, cfg.Retry, logger)

	credentials := service.NewCredentialResolver(repo, logger)
	payments := service.NewPaymentService(repo, paypal, credentials, logger)
	finalizer := service.NewOrderFinalizer(repo, payments, service.NewTransactionBuilder(repo, logger), logger)

	reconciler := worker.NewReconciler(
		repo,
		finalizer,
		cfg.Worker.Interval,
		cfg.Worker.GracePeriod,
		cfg.Worker.BatchSize,
		logger,
	)
	go reconciler.Start(ctx)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      newRouter(cfg.Server, handlers.NewHandlers(payments, finalizer, db, logger), logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout + 5*time.Second,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

// newRouter registers the routes and wraps them, outermost first: logging,
// rate limit, timeout, recovery.
func newRouter(cfg config.ServerConfig, h *handlers.Handlers, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	handler := middleware.Recovery(logger)(mux)
	handler = middleware.Timeout(cfg.WriteTimeout)(handler)
	if cfg.RateLimit > 0 {
		handler = middleware.RateLimit(middleware.NewClientLimiter(cfg.RateLimit, cfg.RateBurst))(handler)
	}
	return middleware.Logging(logger)(handler)
}
