package testfixtures

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// SQLiteDatabase is a file-backed SQLite database in a test's temporary
// directory. The file outlives individual connections so that state written
// by one session can be inspected by the next.
type SQLiteDatabase struct {
	Path string
	db   *sql.DB
}

// NewSQLiteDatabase creates an empty database file and registers cleanup with tb.
func NewSQLiteDatabase(tb testing.TB) *SQLiteDatabase {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "target.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		tb.Fatalf("failed to open sqlite database: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		tb.Fatalf("failed to create sqlite database: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	return &SQLiteDatabase{Path: path, db: db}
}

// DSN returns the connection string for the sqlite dialect.
func (d *SQLiteDatabase) DSN() string {
	return d.Path
}

// Exec runs statements directly, outside of the code under test.
func (d *SQLiteDatabase) Exec(tb testing.TB, statements string) {
	tb.Helper()
	if _, err := d.db.Exec(statements); err != nil {
		tb.Fatalf("exec %q: %v", statements, err)
	}
}

// TableExists reports whether a table named name is present.
func (d *SQLiteDatabase) TableExists(tb testing.TB, name string) bool {
	tb.Helper()
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	if err != nil {
		tb.Fatalf("lookup table %s: %v", name, err)
	}
	return count > 0
}

// CountRows returns the number of rows in table.
func (d *SQLiteDatabase) CountRows(tb testing.TB, table string) int {
	tb.Helper()
	var count int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
		tb.Fatalf("count rows in %s: %v", table, err)
	}
	return count
}
