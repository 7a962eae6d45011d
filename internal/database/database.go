package database

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
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrClosed is returned once the database has been sealed for a restore.
var ErrClosed = errors.New("database is closed for restore")

// DB is the live SQLite store. Every operation runs inside Acquire so that
// Seal can wait for in-flight work before the file is replaced.
type DB struct {
	conn *sql.DB
	path string

	mu     sync.RWMutex
	sealed bool
}

func New(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	if err := migrateUp(path); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return &DB{conn: conn, path: path}, nil
}

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path)
}

// migrateUp runs on its own handle because closing a migrate instance closes
// the underlying *sql.DB.
func migrateUp(path string) error {
	conn, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return fmt.Errorf("opening database for migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(conn, &sqlite3.Config{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating migration driver: %w", err)
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		conn.Close()
		return fmt.Errorf("loading migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		conn.Close()
		return fmt.Errorf("preparing migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// Path is the on-disk location of the live store.
func (d *DB) Path() string {
	return d.path
}

// Acquire hands out the connection pool for one operation. The caller must
// invoke release when done.
func (d *DB) Acquire() (conn *sql.DB, release func(), err error) {
	d.mu.RLock()
	if d.sealed {
		d.mu.RUnlock()
		return nil, nil, ErrClosed
	}

	return d.conn, d.mu.RUnlock, nil
}

// PingContext reports whether the store is open and reachable.
func (d *DB) PingContext(ctx context.Context) error {
	conn, release, err := d.Acquire()
	if err != nil {
		return err
	}
	defer release()

	return conn.PingContext(ctx)
}

// Seal waits for in-flight operations, refuses new ones and closes every
// handle to the file. It is not reversible: a sealed store is only reopened by
// a new process.
func (d *DB) Seal() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sealed {
		return ErrClosed
	}

	d.sealed = true

	if err := d.conn.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	return nil
}

// Close is the shutdown path. Closing an already sealed store is not an error.
func (d *DB) Close() error {
	if err := d.Seal(); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}

	return nil
}
