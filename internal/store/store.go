// Package store is the Payout Store: durable, single-writer, per-currency
// SQLite storage for Payout rows, with every state-changing operation run
// inside a true EXCLUSIVE transaction.
//
// Structurally this follows the teacher's internal/storage package (Config/
// New/Close, a WAL-mode DSN, initSchema with CREATE TABLE IF NOT EXISTS plus
// indexes). The one material departure is transactional: the teacher never
// opens a sql.Tx at all. The original Python client forced this by hand,
// registering SQLAlchemy "connect" and "begin" event listeners that issued
// a literal "BEGIN EXCLUSIVE" on every transaction. mattn/go-sqlite3
// exposes the same behavior declaratively via the _txlock=exclusive DSN
// parameter, so every db.Begin() in this package already opens with
// BEGIN EXCLUSIVE.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the durable record store for one currency.
type Store struct {
	db   *sql.DB
	path string
}

// Config configures a single currency's Store.
type Config struct {
	// Path is the SQLite file path for this currency (spec.md §6.3:
	// "rpc_<CURRENCY>.sqlite" or equivalent).
	Path string
}

// Open opens (creating if necessary) the SQLite file at cfg.Path and
// ensures its schema exists. Every transaction subsequently opened via
// db.Begin() is a real EXCLUSIVE transaction.
func Open(cfg Config) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
		}
	}

	dsn := cfg.Path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=exclusive"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", cfg.Path, err)
	}

	// SQLite permits exactly one writer; a single pooled connection also
	// makes "exclusive transaction" mean what it says within this process.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: cfg.Path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS payouts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	pid           TEXT NOT NULL UNIQUE,
	user          TEXT NOT NULL,
	address       TEXT NOT NULL,
	amount        TEXT NOT NULL,
	currency_code TEXT NOT NULL,
	txid          TEXT,
	locked        INTEGER NOT NULL DEFAULT 0,
	associated    INTEGER NOT NULL DEFAULT 0,
	lock_time     INTEGER,
	paid_time     INTEGER,
	assoc_time    INTEGER,
	pull_time     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payouts_currency ON payouts(currency_code);
CREATE INDEX IF NOT EXISTS idx_payouts_txid ON payouts(txid);
CREATE INDEX IF NOT EXISTS idx_payouts_locked ON payouts(locked);
CREATE INDEX IF NOT EXISTS idx_payouts_associated ON payouts(associated);
`

func (s *Store) initSchema() error {
	_, err := s.db.Exec(schema)
	return err
}

// DropAndCreate destroys and recreates the payouts table. This is the
// "init_db" operation (spec.md §4.4.6): destructive, operator-only.
func (s *Store) DropAndCreate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS payouts"); err != nil {
		return fmt.Errorf("store: drop payouts: %w", err)
	}
	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("store: recreate schema: %w", err)
	}
	return tx.Commit()
}
