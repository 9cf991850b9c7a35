package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"  // registers the "pgx" driver
	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver
	_ "modernc.org/sqlite"              // registers the "sqlite" driver

	"github.com/example/schemasync/internal/persistence"
)

const probeQuery = "SELECT 1"

// ConnectorConfig describes how to reach the target database.
type ConnectorConfig struct {
	// Dialect selects the driver and statement syntax.
	Dialect Dialect

	// DSN is the driver connection string.
	DSN string

	// ConnMaxLifetime bounds how long the pinned connection may be reused.
	ConnMaxLifetime time.Duration
}

// Connector opens short-lived sessions against the target database. Each
// session owns its own pool and is released by Session.Close.
type Connector struct {
	config ConnectorConfig
	open   func(driverName, dsn string) (*sql.DB, error)
}

// NewConnector validates config and returns a Connector.
func NewConnector(config ConnectorConfig) (*Connector, error) {
	if config.Dialect == nil {
		return nil, errors.New("connector: dialect is required")
	}
	if config.DSN == "" {
		return nil, errors.New("connector: DSN cannot be empty")
	}
	if config.ConnMaxLifetime < 0 {
		return nil, errors.New("connector: ConnMaxLifetime cannot be negative")
	}
	return &Connector{config: config, open: sql.Open}, nil
}

// Dialect returns the dialect the connector was configured with.
func (c *Connector) Dialect() Dialect {
	return c.config.Dialect
}

// Open connects to the database and pins a single connection for the
// lifetime of the returned session.
func (c *Connector) Open(ctx context.Context) (*Session, error) {
	db, err := c.open(c.config.Dialect.DriverName(), c.config.DSN)
	if err != nil {
		return nil, persistence.NewConnectivityError("open", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if c.config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.config.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, persistence.NewConnectivityError("ping", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, persistence.NewConnectivityError("acquire connection", err)
	}

	return &Session{db: db, conn: conn}, nil
}

// Session is one acquired database connection.
type Session struct {
	db   *sql.DB
	conn *sql.Conn
}

// Conn exposes the pinned connection.
func (s *Session) Conn() *sql.Conn {
	return s.conn
}

// Probe runs a trivial query to confirm the server accepts statements.
func (s *Session) Probe(ctx context.Context) error {
	var one int
	if err := s.conn.QueryRowContext(ctx, probeQuery).Scan(&one); err != nil {
		return persistence.NewConnectivityError("probe", err)
	}
	return nil
}

// ExecBatch sends batch to the server as a single statement string. The
// driver error is returned unwrapped so callers can classify it.
func (s *Session) ExecBatch(ctx context.Context, batch string) error {
	_, err := s.conn.ExecContext(ctx, batch)
	return err
}

// Close releases the connection and its pool. Closing the pool drops any
// transaction the server still holds open for the connection.
func (s *Session) Close() error {
	connErr := s.conn.Close()
	dbErr := s.db.Close()
	if connErr != nil && !errors.Is(connErr, sql.ErrConnDone) {
		return fmt.Errorf("close connection: %w", connErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close database: %w", dbErr)
	}
	return nil
}
