package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DB wraps the SQLite database connection.
// A DB is created closed; Open is called explicitly or lazily by the first operation.
type DB struct {
	path   string
	logger logrus.FieldLogger
	now    func() time.Time

	mu      sync.Mutex
	conn    *sql.DB
	closed  bool
	version int
}

// Option configures a DB
type Option func(*DB)

// WithLogger sets the logger used by the store
func WithLogger(logger logrus.FieldLogger) Option {
	return func(db *DB) {
		db.logger = logger
	}
}

// WithClock overrides the time source used for record timestamps
func WithClock(now func() time.Time) Option {
	return func(db *DB) {
		db.now = now
	}
}

// New creates a store handle for the database at dbPath without touching the disk
func New(dbPath string, opts ...Option) *DB {
	db := &DB{
		path:   dbPath,
		logger: logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Open opens the database and applies migrations. It is idempotent and safe to call
// from several goroutines; only the first successful call does any work.
func (db *DB) Open(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return fmt.Errorf("%w: database is closed", ErrStoreUnavailable)
	}
	if db.conn != nil {
		return nil
	}

	// Ensure the directory exists
	if dir := filepath.Dir(db.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: failed to create database directory: %w", ErrStoreUnavailable, err)
		}
	}

	conn, err := sql.Open("sqlite3", db.path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("%w: failed to open database: %w", ErrStoreUnavailable, err)
	}

	// SQLite works best with single connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("%w: failed to connect to database: %w", ErrStoreUnavailable, err)
	}

	version, err := runMigrations(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: failed to run migrations: %w", ErrStoreUnavailable, err)
	}

	db.conn = conn
	db.version = version
	db.logger.WithFields(logrus.Fields{"path": db.path, "schema_version": version}).Info("Database opened")
	return nil
}

// Close closes the database connection. A closed DB cannot be reopened.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.closed = true
	if db.conn == nil {
		return nil
	}
	err := db.conn.Close()
	db.conn = nil
	return err
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// SchemaVersion returns the applied migration version
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	if _, err := db.handle(ctx); err != nil {
		return 0, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.version, nil
}

// runMigrations applies the embedded migrations and returns the resulting version
func runMigrations(conn *sql.DB) (int, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return 0, fmt.Errorf("error loading migrations: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(conn, &sqlitemigrate.Config{})
	if err != nil {
		return 0, fmt.Errorf("error creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return 0, fmt.Errorf("error creating migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("error running migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("error reading schema version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("schema version %d is dirty", version)
	}
	return int(version), nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// handle opens the database if needed and returns the live connection
func (db *DB) handle(ctx context.Context) (*sql.DB, error) {
	if err := db.Open(ctx); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.conn == nil {
		return nil, fmt.Errorf("%w: database is closed", ErrStoreUnavailable)
	}
	return db.conn, nil
}

// withTx runs fn inside a single transaction. Nothing fn wrote survives if it fails.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	conn, err := db.handle(ctx)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.WithError(rbErr).Warn("Rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// nowMillis returns the current time in epoch milliseconds
func (db *DB) nowMillis() int64 {
	return db.now().UnixMilli()
}

// Stats represents database statistics
type Stats struct {
	ConversationCount int64 `json:"conversationCount"`
	MessageCount      int64 `json:"messageCount"`
	FileCount         int64 `json:"fileCount"`
	FileBytes         int64 `json:"fileBytes"`
	DBSizeBytes       int64 `json:"dbSizeBytes"`
	SchemaVersion     int   `json:"schemaVersion"`
}

// GetStats returns database statistics
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	conn, err := db.handle(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM conversations", &stats.ConversationCount},
		{"SELECT COUNT(*) FROM messages", &stats.MessageCount},
		{"SELECT COUNT(*) FROM files", &stats.FileCount},
		{"SELECT COALESCE(SUM(size), 0) FROM files", &stats.FileBytes},
	}
	for _, c := range counts {
		if err := conn.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to collect stats: %w", err)
		}
	}

	// Get database size (page_count * page_size)
	var pageCount, pageSize int64
	if err := conn.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := conn.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("failed to get page size: %w", err)
	}
	stats.DBSizeBytes = pageCount * pageSize

	stats.SchemaVersion, err = db.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// Vacuum optimizes the database file
func (db *DB) Vacuum(ctx context.Context) error {
	conn, err := db.handle(ctx)
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}
