package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"swapiexport/internal/etl"
)

// Driver identifies the database engine behind a locator.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverMongoDB  Driver = "mongodb"
)

// DetectDriver maps a locator onto a driver: a URL scheme for servers, a
// file extension for SQLite.
func DetectDriver(locator string) (Driver, bool) {
	lower := strings.ToLower(locator)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPostgres, true
	case strings.HasPrefix(lower, "mysql://"):
		return DriverMySQL, true
	case strings.HasPrefix(lower, "mongodb://"), strings.HasPrefix(lower, "mongodb+srv://"):
		return DriverMongoDB, true
	}
	switch strings.ToLower(filepath.Ext(locator)) {
	case ".db", ".sqlite", ".sqlite3":
		return DriverSQLite, true
	}
	return "", false
}

// OpenSQL opens and pings a database/sql handle for a SQL locator.
func OpenSQL(ctx context.Context, locator string) (*sql.DB, Dialect, error) {
	driver, ok := DetectDriver(locator)
	if !ok || driver == DriverMongoDB {
		return nil, Dialect{}, fmt.Errorf("not a SQL locator: %q", Redact(locator))
	}

	var (
		dsn string
		err error
	)
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(locator)
	case DriverPostgres:
		dsn, err = postgresDSN(locator)
	case DriverMySQL:
		dsn, err = mysqlDSN(locator)
	}
	if err != nil {
		return nil, Dialect{}, err
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, Dialect{}, fmt.Errorf("connect %s: %w", driver, err)
	}
	return db, DialectFor(driver), nil
}

// Redact hides the password of a URL locator so it can be logged.
func Redact(locator string) string { return etl.Redact(locator) }
