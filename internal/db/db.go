package db

import (
	"fmt"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Driver names registered with database/sql.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Driver returns the driver that serves the given data source.
// postgres:// URLs go to pgx, everything else is a SQLite path.
func Driver(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// Open opens a database connection and configures it for the ledger.
func Open(dsn string) (*sqlx.DB, error) {
	driver := Driver(dsn)
	source := dsn
	if driver == DriverSQLite {
		source = sqliteDSN(dsn)
	}

	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection of an in-memory database is a separate database.
	if driver == DriverSQLite && dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}

// sqliteDSN builds a modernc.org/sqlite URI. Pragmas go in the DSN so that
// every pooled connection gets them, and write transactions start with
// BEGIN IMMEDIATE so concurrent writers queue on busy_timeout instead of
// failing on lock upgrade.
func sqliteDSN(path string) string {
	pragmas := []string{
		"busy_timeout(5000)",
		"journal_mode(WAL)",
		"foreign_keys(ON)",
		"synchronous(NORMAL)",
	}

	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	q.Set("_txlock", "immediate")
	q.Set("_time_format", "sqlite")

	return "file:" + path + "?" + q.Encode()
}
