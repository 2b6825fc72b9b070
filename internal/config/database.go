package config

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	applicationName     = "donation-gateway"
	poolHealthCheckTick = 30 * time.Second
)

// DSN renders the connection URL with credentials escaped.
func (c *DatabaseConfig) DSN() string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return dsn.String()
}

// PgxConfig sizes the ledger pool from the connection settings.
func (c *DatabaseConfig) PgxConfig(_ context.Context) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(c.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config for %s:%d: %w", c.Host, c.Port, err)
	}

	poolCfg.MaxConns = int32(c.MaxOpenConns)
	poolCfg.MinConns = int32(c.MaxIdleConns)
	poolCfg.MaxConnLifetime = c.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = c.ConnMaxIdleTime
	poolCfg.HealthCheckPeriod = poolHealthCheckTick
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	return poolCfg, nil
}
