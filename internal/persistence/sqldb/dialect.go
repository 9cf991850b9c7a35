package sqldb

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/example/schemasync/internal/persistence"
)

// Supported dialect names.
const (
	DialectSQLServer = "sqlserver"
	DialectPostgres  = "postgres"
	DialectSQLite    = "sqlite"
)

// Tracking table columns.
const (
	columnRevision   = "revision_hash"
	columnDeployedAt = "deployed_at"
)

// sqlServerTxNameLimit is the longest transaction name T-SQL accepts.
const sqlServerTxNameLimit = 32

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*){0,2}$`)

// Dialect renders the statements whose syntax differs between database
// engines: batch transaction markers and the tracking table queries.
type Dialect interface {
	// Name returns the dialect identifier used in configuration.
	Name() string
	// DriverName returns the database/sql driver registered for the dialect.
	DriverName() string
	// BeginBatch opens a transaction labeled with the target revision.
	BeginBatch(label string) string
	// CommitBatch closes the transaction opened by BeginBatch, keeping its effects.
	CommitBatch(label string) string
	// RollbackBatch closes the transaction opened by BeginBatch, discarding its effects.
	RollbackBatch(label string) string
	// LatestMarkerQuery selects the revision of the most recent row.
	LatestMarkerQuery(table string) string
	// HistoryQuery selects up to limit rows newest first; limit <= 0 selects all.
	HistoryQuery(table string, limit int) string
	// InsertMarkerStatement appends a (revision, deployed_at) row.
	InsertMarkerStatement(table string) string
	// CreateTableStatement creates the tracking table when it is missing.
	CreateTableStatement(table string) string
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DialectSQLServer, "mssql":
		return sqlServerDialect{}, nil
	case DialectPostgres, "postgresql", "pgx":
		return postgresDialect{}, nil
	case DialectSQLite, "sqlite3":
		return sqliteDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported dialect %q (want %s, %s or %s)", name, DialectSQLServer, DialectPostgres, DialectSQLite)
}

// ValidateTableName checks that table is a plain identifier, optionally
// qualified by schema and database.
func ValidateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("%w: %q", persistence.ErrInvalidTableName, table)
	}
	return nil
}

// singleLine keeps a label from breaking out of a comment line.
func singleLine(label string) string {
	label = strings.TrimSpace(label)
	if i := strings.IndexAny(label, "\r\n"); i >= 0 {
		label = label[:i]
	}
	return label
}

type sqlServerDialect struct{}

func (sqlServerDialect) Name() string       { return DialectSQLServer }
func (sqlServerDialect) DriverName() string { return "sqlserver" }

func (d sqlServerDialect) BeginBatch(label string) string {
	return "SET XACT_ABORT ON;\nBEGIN TRANSACTION " + d.txName(label) + ";"
}

func (d sqlServerDialect) CommitBatch(label string) string {
	return "COMMIT TRANSACTION " + d.txName(label) + ";"
}

func (d sqlServerDialect) RollbackBatch(label string) string {
	return "ROLLBACK TRANSACTION " + d.txName(label) + ";"
}

func (sqlServerDialect) txName(label string) string {
	name := singleLine(label)
	if len(name) > sqlServerTxNameLimit {
		name = name[:sqlServerTxNameLimit]
	}
	if name == "" {
		name = "schemasync"
	}
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (sqlServerDialect) LatestMarkerQuery(table string) string {
	return fmt.Sprintf("SELECT TOP 1 %s FROM %s ORDER BY %s DESC", columnRevision, table, columnDeployedAt)
}

func (sqlServerDialect) HistoryQuery(table string, limit int) string {
	top := ""
	if limit > 0 {
		top = fmt.Sprintf("TOP %d ", limit)
	}
	return fmt.Sprintf("SELECT %s%s, %s FROM %s ORDER BY %s DESC", top, columnRevision, columnDeployedAt, table, columnDeployedAt)
}

func (sqlServerDialect) InsertMarkerStatement(table string) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (@p1, @p2)", table, columnRevision, columnDeployedAt)
}

func (sqlServerDialect) CreateTableStatement(table string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s NVARCHAR(255) NOT NULL, %s DATETIME2 NOT NULL)",
		table, table, columnRevision, columnDeployedAt)
}

type postgresDialect struct{}

func (postgresDialect) Name() string       { return DialectPostgres }
func (postgresDialect) DriverName() string { return "pgx" }

func (postgresDialect) BeginBatch(label string) string {
	return "-- schemasync revision " + singleLine(label) + "\nBEGIN;"
}

func (postgresDialect) CommitBatch(string) string   { return "COMMIT;" }
func (postgresDialect) RollbackBatch(string) string { return "ROLLBACK;" }

func (postgresDialect) LatestMarkerQuery(table string) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s DESC LIMIT 1", columnRevision, table, columnDeployedAt)
}

func (postgresDialect) HistoryQuery(table string, limit int) string {
	return limitedHistory(table, limit)
}

func (postgresDialect) InsertMarkerStatement(table string) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES ($1, $2)", table, columnRevision, columnDeployedAt)
}

func (postgresDialect) CreateTableStatement(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s TEXT NOT NULL, %s TIMESTAMPTZ NOT NULL)", table, columnRevision, columnDeployedAt)
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return DialectSQLite }
func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) BeginBatch(label string) string {
	return "-- schemasync revision " + singleLine(label) + "\nBEGIN TRANSACTION;"
}

func (sqliteDialect) CommitBatch(string) string   { return "COMMIT;" }
func (sqliteDialect) RollbackBatch(string) string { return "ROLLBACK;" }

func (sqliteDialect) LatestMarkerQuery(table string) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s DESC LIMIT 1", columnRevision, table, columnDeployedAt)
}

func (sqliteDialect) HistoryQuery(table string, limit int) string {
	return limitedHistory(table, limit)
}

func (sqliteDialect) InsertMarkerStatement(table string) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", table, columnRevision, columnDeployedAt)
}

func (sqliteDialect) CreateTableStatement(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s TEXT NOT NULL, %s TIMESTAMP NOT NULL)", table, columnRevision, columnDeployedAt)
}

func limitedHistory(table string, limit int) string {
	query := fmt.Sprintf("SELECT %s, %s FROM %s ORDER BY %s DESC", columnRevision, columnDeployedAt, table, columnDeployedAt)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return query
}
