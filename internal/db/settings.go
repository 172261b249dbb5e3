package db

import (
	"context"
	"database/sql"
	"errors"
)

// ManagerChannelKey stores the manager channel identifier.
const ManagerChannelKey = "manager_group_jid"

// GetConfig returns the value stored under key.
func (db *DB) GetConfig(ctx context.Context, key string) (string, error) {
	var v string
	err := db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

// SetConfig stores value under key, replacing any previous value.
func (db *DB) SetConfig(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
