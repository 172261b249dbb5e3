package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"barberbot/internal/model"
)

const serviceColumns = `id, name, price, duration, description, active`

func scanService(row interface{ Scan(...any) error }) (model.Service, error) {
	var (
		s    model.Service
		desc sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Price, &s.Duration, &desc, &s.Active); err != nil {
		return s, err
	}
	s.Description = desc.String
	return s, nil
}

// SyncServices inserts new catalog entries and deactivates services missing
// from it. Existing services keep their name, price and duration; only the
// active flag and the menu order follow the catalog.
func (db *DB) SyncServices(ctx context.Context, services []model.Service) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seen := make(map[string]struct{}, len(services))
	for i, s := range services {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO services (id, name, price, duration, description, active, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				active = excluded.active,
				sort_order = excluded.sort_order`,
			s.ID, s.Name, s.Price, s.Duration, nullString(s.Description), s.Active, i,
		)
		if err != nil {
			return fmt.Errorf("sync service %s: %w", s.ID, err)
		}
		seen[s.ID] = struct{}{}
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM services WHERE active = 1`)
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if _, ok := seen[id]; !ok {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `UPDATE services SET active = 0 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deactivate service %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// CountServices returns how many services exist, active or not.
func (db *DB) CountServices(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM services`).Scan(&n)
	return n, err
}

// ListActiveServices returns active services in menu order.
func (db *DB) ListActiveServices(ctx context.Context) ([]model.Service, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE active = 1 ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetService returns a service by id, active or not.
func (db *DB) GetService(ctx context.Context, id string) (*model.Service, error) {
	s, err := scanService(db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
