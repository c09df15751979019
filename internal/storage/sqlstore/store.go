package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/hbnb/internal/config"
	"github.com/roach88/hbnb/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

// Supported database/sql driver names. They double as goqu dialect names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// linkTable holds the Place/Amenity pairs.
const linkTable = "place_amenity"

var errClosed = errors.New("store is closed and has no DSN to reconnect with")

func init() {
	storage.Register(config.StorageDB, func(ctx context.Context, cfg config.Config) (storage.Backend, error) {
		return Open(ctx, cfg.DB.Driver, cfg.DB.DSN, WithReset(cfg.IsTest()))
	})
}

// Store is the relational backend.
type Store struct {
	driver  string
	dsn     string
	dialect goqu.DialectWrapper
	logger  *slog.Logger
	reset   bool

	mu    sync.RWMutex
	db    *sql.DB
	stage *stage
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithReset drops every table before the schema is created on first
// connect. Reconnects after Close never drop.
func WithReset(reset bool) Option {
	return func(s *Store) { s.reset = reset }
}

// Open connects to dsn with driver ("sqlite3" or "postgres") and makes sure
// the schema exists.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	s, err := newStore(driver, opts)
	if err != nil {
		return nil, err
	}
	s.dsn = dsn

	db, err := s.connect(ctx, s.reset)
	if err != nil {
		return nil, err
	}
	s.db = db
	return s, nil
}

// New wraps an existing handle without touching the schema. A store built
// this way cannot reconnect after Close.
func New(db *sql.DB, driver string, opts ...Option) (*Store, error) {
	s, err := newStore(driver, opts)
	if err != nil {
		return nil, err
	}
	s.db = db
	return s, nil
}

func newStore(driver string, opts []Option) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	s := &Store{
		driver:  driver,
		dialect: goqu.Dialect(driver),
		logger:  slog.Default(),
		stage:   newStage(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Driver returns the database/sql driver name.
func (s *Store) Driver() string {
	return s.driver
}

// connect opens a pool, applies per-driver settings and the schema.
func (s *Store) connect(ctx context.Context, reset bool) (*sql.DB, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, storage.DurabilityError("open", fmt.Errorf("open database: %w", err))
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storage.DurabilityError("open", fmt.Errorf("connect to database: %w", err))
	}

	if s.driver == DriverSQLite {
		// SQLite allows one writer at a time.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, storage.DurabilityError("open", err)
		}
	}

	if reset {
		if err := dropSchema(ctx, db); err != nil {
			db.Close()
			return nil, storage.DurabilityError("open", err)
		}
		s.logger.Info("dropped all tables", "driver", s.driver)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, storage.DurabilityError("open", fmt.Errorf("apply schema: %w", err))
	}

	s.logger.Debug("database connected", "driver", s.driver)
	return db, nil
}

// applyPragmas sets the SQLite connection configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func dropSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range tableNames() {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

// read runs fn under the read lock with an open handle, reconnecting first
// if the store was closed.
func (s *Store) read(ctx context.Context, op string, fn func(db *sql.DB) error) error {
	s.mu.RLock()
	if s.db != nil {
		defer s.mu.RUnlock()
		return wrapRead(op, fn(s.db))
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}
	return wrapRead(op, fn(s.db))
}

// write runs fn under the write lock with an open handle.
func (s *Store) write(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}
	return fn()
}

func (s *Store) ensureOpen(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if s.dsn == "" {
		return storage.DurabilityError("open", errClosed)
	}
	db, err := s.connect(ctx, false)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func wrapRead(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *storage.Error
	if errors.As(err, &se) {
		return err
	}
	return storage.DurabilityError(op, err)
}

// Reload implements storage.Backend. Staged work is discarded; the database
// is the durable state, so this only checks the connection.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = newStage()
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}
	if err := s.db.PingContext(ctx); err != nil {
		return storage.DurabilityError("reload", err)
	}
	return nil
}

// Close implements storage.Backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = newStage()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return storage.DurabilityError("close", err)
	}
	return nil
}
