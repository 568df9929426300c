// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code: no C compiler needed.
//
// LIFECYCLE:
// The store is an explicitly constructed object. New opens the pool, applies
// migrations and hands back a *DB; the composition root injects it into the
// services and calls Close exactly once on shutdown. After Close every method
// fails with a "Database is not connected" server error instead of touching a
// closed pool.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/user-service/internal/apperror"
	"github.com/sakif/user-service/internal/repository/sqlite/migrations"
)

// MsgNotConnected is reported for any operation on a closed or nil store.
const MsgNotConnected = "Database is not connected"

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn      *sql.DB
	logger    *slog.Logger
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/users.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database (great for tests, lost on close)
//
// sql.Open() does NOT actually open a connection, so we Ping to surface a bad
// path or permissions problem at startup instead of on the first request.
func New(ctx context.Context, dbPath string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows a single writer. One pooled connection also keeps a
	// ":memory:" database from splitting into one database per connection.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	if err := migrations.Run(ctx, conn, logger); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{conn: conn, logger: logger}, nil
}

// Close closes the database connection pool. Calling it more than once is
// safe; only the first call closes the pool and its result is returned to
// every caller.
func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		db.closed.Store(true)
		db.closeErr = db.conn.Close()
	})
	return db.closeErr
}

// Ping verifies the pool can still reach the database.
func (db *DB) Ping(ctx context.Context) error {
	conn, err := db.handle()
	if err != nil {
		return err
	}
	if err := conn.PingContext(ctx); err != nil {
		return apperror.Server(MsgNotConnected, err)
	}
	return nil
}

// handle returns the live pool or a server error if the store is closed.
func (db *DB) handle() (*sql.DB, error) {
	if db == nil || db.conn == nil || db.closed.Load() {
		return nil, apperror.Server(MsgNotConnected, nil)
	}
	return db.conn, nil
}
