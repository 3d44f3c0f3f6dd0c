// Package sqlstore is an SQL implementation of session storage (postgres or sqlite3).
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratep "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/iris/internal/session"
)

// Supported drivers.
const (
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

//go:embed migrations
var migrations embed.FS

var log = logrus.WithField("layer", "storage").WithField("package", "sqlstore")

var errBeginCalledWithinTx = errors.New("can not begin tx in tx")

type store struct {
	ext sqlx.ExtContext
}

// Open connects to the database, applies migrations and returns storage.
func Open(driver, dsn string) (session.Storage, error) {
	if driver != Postgres && driver != SQLite {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	if driver == SQLite {
		// sqlite does not support concurrent writers
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}

	if err := Migrate(db.DB, driver); err != nil {
		_ = db.Close()
		return nil, err
	}

	return New(db), nil
}

// New returns storage over an already migrated database.
func New(db *sqlx.DB) session.Storage {
	return store{ext: db}
}

// Migrate applies embedded migrations for the driver.
func Migrate(db *sql.DB, driver string) error {
	src, err := iofs.New(migrations, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	var d database.Driver
	switch driver {
	case Postgres:
		d, err = migratep.WithInstance(db, &migratep.Config{})
	case SQLite:
		d, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create database migrate driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", src, driver, d)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	switch v, dirty, err := migrator.Version(); err {
	case nil:
		log.Infof("database version %d with dirty state %t", v, dirty)
	case migrate.ErrNilVersion:
		log.Info("database version: nil")
	default:
		return fmt.Errorf("failed to get version: %w", err)
	}

	switch err := migrator.Up(); err {
	case nil:
		log.Info("database was migrated")
	case migrate.ErrNoChange:
		log.Info("database is up-to-date")
	default:
		return fmt.Errorf("failed to migrate db: %w", err)
	}

	return nil
}

func (s store) inTx(ctx context.Context, f func(s store) error) error {
	db, ok := s.ext.(*sqlx.DB)
	if !ok {
		return errBeginCalledWithinTx
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to create tx: %w", err)
	}

	if err := f(store{ext: tx}); err != nil {
		if err := tx.Rollback(); err != nil {
			log.WithError(err).Error("failed to rollback tx")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}

	return nil
}

func (s store) Get(ctx context.Context, key string) (string, error) {
	var v string

	if err := sqlx.GetContext(ctx, s.ext, &v,
		s.ext.Rebind(`SELECT entry_value FROM session_entry WHERE entry_key = ?`), key,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", session.ErrNotFound
		}
		return "", fmt.Errorf("failed to query: %w", err)
	}

	return v, nil
}

func (s store) Set(ctx context.Context, entries map[string]string) error {
	return s.inTx(ctx, func(s store) error {
		for k, v := range entries {
			if _, err := s.ext.ExecContext(ctx, s.ext.Rebind(`
				INSERT INTO session_entry (entry_key, entry_value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
				ON CONFLICT (entry_key) DO UPDATE SET entry_value = excluded.entry_value, updated_at = excluded.updated_at
			`), k, v); err != nil {
				return fmt.Errorf("failed to exec: %w", err)
			}
		}

		return nil
	})
}

func (s store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM session_entry WHERE entry_key IN (?)`, keys)
	if err != nil {
		return fmt.Errorf("failed to construct IN clause: %w", err)
	}

	if _, err := s.ext.ExecContext(ctx, s.ext.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s store) Ping(ctx context.Context) error {
	db, ok := s.ext.(*sqlx.DB)
	if !ok {
		return nil
	}

	return db.PingContext(ctx)
}

func (s store) Close() error {
	db, ok := s.ext.(*sqlx.DB)
	if !ok {
		return nil
	}

	return db.Close()
}
