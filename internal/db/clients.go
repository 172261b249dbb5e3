package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"barberbot/internal/model"
)

const clientColumns = `id, phone, name, notes, total_visits, created_at, last_visit`

func scanClient(row interface{ Scan(...any) error }) (model.Client, error) {
	var (
		c         model.Client
		notes     sql.NullString
		createdAt string
		lastVisit sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Phone, &c.Name, &notes, &c.TotalVisits, &createdAt, &lastVisit); err != nil {
		return c, err
	}
	c.Notes = notes.String

	var err error
	if c.CreatedAt, err = model.ParseTimestamp(createdAt); err != nil {
		return c, fmt.Errorf("client %s created_at: %w", c.ID, err)
	}
	if c.LastVisit, err = model.ParseOptionalTimestamp(lastVisit.String); err != nil {
		return c, fmt.Errorf("client %s last_visit: %w", c.ID, err)
	}
	return c, nil
}

// GetClientByPhone returns the client registered under phone.
func (db *DB) GetClientByPhone(ctx context.Context, phone string) (*model.Client, error) {
	c, err := scanClient(db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE phone = ?`, phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// InsertClient stores a new client. A duplicate phone yields ErrClientExists.
func (db *DB) InsertClient(ctx context.Context, c *model.Client) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO clients (id, phone, name, notes, total_visits, created_at, last_visit)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Phone, c.Name, nullString(c.Notes), c.TotalVisits,
		model.FormatTimestamp(c.CreatedAt), nullTimestamp(c.LastVisit),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: clients.phone") {
			return fmt.Errorf("%w: %s", ErrClientExists, c.Phone)
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// RecordClientVisit increments the visit counter and stamps last_visit.
func (db *DB) RecordClientVisit(ctx context.Context, clientID string, at time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE clients SET total_visits = total_visits + 1, last_visit = ? WHERE id = ?`,
		model.FormatTimestamp(at), clientID,
	)
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListClients returns clients by name.
func (db *DB) ListClients(ctx context.Context) ([]model.Client, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var out []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
