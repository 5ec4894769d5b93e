package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	moderncsqlite "modernc.org/sqlite" // SQLite driver
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
)

//go:embed migrations
var migrations embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// NewDB connects to the database of the given type ("postgres" or "sqlite").
func NewDB(dbType, dataSourceName string, logger *zap.Logger) (*sqlx.DB, error) {
	switch dbType {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	if dbType == DriverSQLite {
		dataSourceName = withSQLiteTimeFormat(dataSourceName)
	}

	db, err := sqlx.Connect(dbType, dataSourceName)
	if err != nil {
		return nil, err
	}

	if dbType == DriverSQLite {
		// One connection serializes writers and keeps in-memory databases alive.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
			db.Close()
			return nil, err
		}
	}

	logger.Info("Successfully connected to the database!", zap.String("type", dbType))
	return db, nil
}

// withSQLiteTimeFormat stores timestamps as "YYYY-MM-DD HH:MM:SS.fff+00:00"
// so they sort as text.
func withSQLiteTimeFormat(dsn string) string {
	if strings.Contains(dsn, "_time_format=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_time_format=sqlite"
}

func newMigrate(db *sqlx.DB) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)
	switch db.DriverName() {
	case DriverPostgres:
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case DriverSQLite:
		driver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", db.DriverName())
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't get database instance for running migrations: %w", err)
	}

	src, err := iofs.New(migrations, "migrations/"+db.DriverName())
	if err != nil {
		return nil, fmt.Errorf("couldn't open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "cyber_guard", driver)
	if err != nil {
		return nil, fmt.Errorf("couldn't create migrate instance: %w", err)
	}
	return m, nil
}

// MigrateDB applies every pending migration.
func MigrateDB(db *sqlx.DB, logger *zap.Logger) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("couldn't run database migration: %w", err)
	}
	logger.Info("Database migration was run successfully")
	return nil
}

// RollbackDB reverts every applied migration.
func RollbackDB(db *sqlx.DB, logger *zap.Logger) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("couldn't roll back database migration: %w", err)
	}
	logger.Info("Database migration was rolled back")
	return nil
}

// clock hands out strictly increasing UTC timestamps so that created_at
// ordering matches insertion order within one process.
type clock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}

var storageClock = &clock{}

const retryDelay = 50 * time.Millisecond

// read runs a read-only query, retrying once on failure. Failures surface
// as storage errors; notFound errors are returned unchanged.
func read(ctx context.Context, op func() error) error {
	err := backoff.Retry(func() error {
		err := op()
		if err != nil && isNotFound(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), 1), ctx))
	if err == nil || isNotFound(err) {
		return err
	}
	return apperr.Storage(err)
}

// write runs an insert, retrying once when the failure is transient. Any
// other failure is returned at once as a storage error.
func write(ctx context.Context, op func() error) error {
	err := backoff.Retry(func() error {
		err := op()
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), 1), ctx))
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// isTransient reports connection faults and lock or serialization conflicts.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 08: connection exception, 40: transaction rollback.
		switch pqErr.Code.Class() {
		case "08", "40":
			return true
		}
		return false
	}
	var liteErr *moderncsqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

// clampLimit bounds list sizes to [1, 100].
func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 100 {
		return 100
	}
	return limit
}
