// Package db is the sqlite persistence layer for services, clients,
// appointments, financial records and bot settings.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"barberbot/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = model.ErrNotFound
	// ErrClientExists is returned when a client phone is already registered.
	ErrClientExists = errors.New("client already exists")
)

// DB wraps sql.DB for the bot.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, path: path, logger: logger}
	if err := db.createTables(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS services (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			price REAL NOT NULL,
			duration INTEGER NOT NULL,
			description TEXT,
			active BOOLEAN NOT NULL DEFAULT 1,
			sort_order INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			phone TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			notes TEXT,
			total_visits INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			last_visit TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			client_phone TEXT NOT NULL,
			client_name TEXT NOT NULL,
			service_id TEXT NOT NULL,
			service_name TEXT NOT NULL,
			price REAL NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			notes TEXT,
			reminder_sent BOOLEAN NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			confirmed_at TEXT,
			FOREIGN KEY (client_id) REFERENCES clients(id)
		)`,
		`CREATE TABLE IF NOT EXISTS financial_records (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
			category TEXT NOT NULL,
			amount REAL NOT NULL,
			description TEXT,
			date TEXT NOT NULL,
			appointment_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_appointments_date ON appointments(date, time)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_phone ON appointments(client_phone)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_reminder ON appointments(reminder_sent, date)`,
		`CREATE INDEX IF NOT EXISTS idx_financial_date ON financial_records(date)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.DB.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: model.FormatTimestamp(*t), Valid: true}
}
