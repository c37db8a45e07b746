// Package store implements the durable state described in spec.md §4.5/§6:
// cities, meetings, items, attachments, city_matters, matter_appearances,
// and the queue table, in a single embedded SQLite file.
//
// Grounded on the teacher's pkg/database (embed.FS + golang-migrate +
// iofs.New migration loading, connection-pool config shape), with the ORM
// layer swapped from ent to jmoiron/sqlx + hand-written SQL — see DESIGN.md
// for why ent could not be carried forward (go generate is off-limits here).
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations
var migrationsFS embed.FS

// Config mirrors the teacher's pkg/database.Config shape, trimmed to what
// an embedded single-writer SQLite file needs.
type Config struct {
	Path            string // filesystem path, or ":memory:" for tests
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns sane defaults for a single-process embedded store.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		MaxOpenConns:    1, // SQLite is single-writer; one connection avoids SQLITE_BUSY entirely
		ConnMaxLifetime: time.Hour,
	}
}

// Store wraps a sqlx.DB and provides the City/Meeting/Item/Attachment/
// Matter/HealthStats operations spec.md §4.5 describes.
type Store struct {
	db *sqlx.DB
}

// Open creates (or opens) the SQLite file at cfg.Path, applying any pending
// migrations before returning.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sqlx.Open("sqlite3", cfg.Path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging store: %w", err)
	}

	if err := runMigrations(db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db.DB
}

// SQLX exposes the sqlx handle so pkg/queue can share this Store's single
// SQLite connection instead of opening a second one to the same file.
func (s *Store) SQLX() *sqlx.DB {
	return s.db
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("creating sqlite3 migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("applying migrations: %w", err)
	}

	// Do not call m.Close(): that also closes the *sql.DB passed via
	// sqlite3.WithInstance, which would break the shared connection.
	return sourceDriver.Close()
}
