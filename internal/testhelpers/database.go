package testhelpers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/DanielPopoola/donation-gateway/internal/adapters/postgres"
	"github.com/DanielPopoola/donation-gateway/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgImage    = "postgres:16-alpine"
	pgUser     = "ledger"
	pgPassword = "ledger"
	pgDatabase = "donations"
)

// ledgerTables lists every table in dependency order, children first.
var ledgerTables = []string{
	"ledger_transactions",
	"orders",
	"payment_methods",
	"provider_credentials",
	"parties",
}

// TestDatabase is a throwaway postgres with the donation schema applied.
type TestDatabase struct {
	DB     *postgres.DB
	Config *config.DatabaseConfig

	container testcontainers.Container
}

func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			},
			// postgres restarts once after initdb
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err, "start postgres container")

	dbConfig, err := containerConfig(ctx, container)
	require.NoError(t, err)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := postgres.Connect(ctx, dbConfig, quiet)
	require.NoError(t, err, "connect to postgres container")

	require.NoError(t, applyMigrations(ctx, db.Pool))

	return &TestDatabase{
		DB:        db,
		Config:    dbConfig,
		container: container,
	}
}

func containerConfig(ctx context.Context, c testcontainers.Container) (*config.DatabaseConfig, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("container port: %w", err)
	}

	return &config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            pgUser,
		Password:        pgPassword,
		Name:            pgDatabase,
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	}, nil
}

// Cleanup closes the pool and removes the container.
func (td *TestDatabase) Cleanup(t *testing.T) {
	td.DB.Close()
	require.NoError(t, td.container.Terminate(context.Background()))
}

// CleanTables empties every ledger table between tests.
func (td *TestDatabase) CleanTables(t *testing.T) {
	for _, table := range ledgerTables {
		_, err := td.DB.Pool.Exec(context.Background(), "DELETE FROM "+table)
		require.NoError(t, err, "clean %s", table)
	}
}

// applyMigrations runs every *.up.sql under db/migrations in name order.
func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	dir := filepath.Join(moduleRoot(), "db", "migrations")

	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("list migrations in %s: %w", dir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %s", dir)
	}
	slices.Sort(files)

	for _, file := range files {
		sql, err := os.ReadFile(file) //nolint:gosec // fixed test path
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

func moduleRoot() string {
	_, file, _, _ := runtime.Caller(0)
	// internal/testhelpers/database.go
	return filepath.Join(filepath.Dir(file), "..", "..")
}
