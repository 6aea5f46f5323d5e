// Package store is the local registry and cache persistence layer, backed by
// an embedded SQLite database.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// schema creates every table on first open. CREATE TABLE IF NOT EXISTS keeps
// re-opens idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS customer_definitions (
    cx_id            INTEGER PRIMARY KEY AUTOINCREMENT,
    cx_name          VARCHAR(64) NOT NULL UNIQUE,
    email_address    VARCHAR(256) NOT NULL DEFAULT '',
    create_time      DATETIME NOT NULL,
    last_used_time   DATETIME NOT NULL,
    aws_profile      VARCHAR(256) NOT NULL,
    athena_s3_bucket VARCHAR(256) NOT NULL DEFAULT '',
    cur_db_name      VARCHAR(256) NOT NULL DEFAULT '',
    cur_db_table     VARCHAR(256) NOT NULL DEFAULT '',
    cur_region       VARCHAR(64)  NOT NULL DEFAULT '',
    min_spend        INTEGER NOT NULL DEFAULT 0,
    acc_regex        VARCHAR(128) NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS payer_accounts (
    payer_id   TEXT NOT NULL PRIMARY KEY,
    account_id TEXT NOT NULL,
    cx_id      INTEGER NOT NULL REFERENCES customer_definitions(cx_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS available_reports (
    report_id          INTEGER PRIMARY KEY AUTOINCREMENT,
    report_name        TEXT NOT NULL UNIQUE,
    report_description TEXT NOT NULL DEFAULT '',
    report_provider    TEXT NOT NULL,
    service_name       TEXT NOT NULL DEFAULT '',
    common_name        TEXT NOT NULL DEFAULT '',
    display            BOOLEAN NOT NULL DEFAULT 1,
    configurable       BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS cache_entries (
    cache_id       INTEGER PRIMARY KEY AUTOINCREMENT,
    cx_id          INTEGER NOT NULL REFERENCES customer_definitions(cx_id) ON DELETE CASCADE,
    partition_type TEXT NOT NULL,
    fingerprint    TEXT NOT NULL,
    payload        BLOB NOT NULL,
    created_at     DATETIME NOT NULL,
    UNIQUE (cx_id, partition_type, fingerprint)
);

CREATE TABLE IF NOT EXISTS instance_pricing (
    family            TEXT NOT NULL,
    instance_type     TEXT NOT NULL,
    location          TEXT NOT NULL,
    od_price_per_unit REAL NOT NULL DEFAULT 0,
    ri_price_per_unit REAL NOT NULL DEFAULT 0,
    UNIQUE (instance_type, location)
);

CREATE TABLE IF NOT EXISTS graviton_equivalents (
    family     TEXT NOT NULL UNIQUE,
    generation TEXT NOT NULL DEFAULT '',
    graviton   TEXT NOT NULL
);
`

// Store wraps the sqlx connection to the embedded database.
type Store struct {
	db *sqlx.DB
}

// Open connects to (creating if necessary) the SQLite database at path and
// ensures the schema exists. Use ":memory:" in tests.
//
// _busy_timeout gives writers from the same process a grace window instead of
// an immediate SQLITE_BUSY; the engine is single-writer per customer, so this
// only covers configure commands racing a run.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	// SQLite handles one writer at a time; a single connection avoids
	// table-lock churn between the registry and the cache layer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}
