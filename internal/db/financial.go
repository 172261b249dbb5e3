package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"barberbot/internal/model"
)

// InsertFinancialRecord stores a record. Records are never updated.
func (db *DB) InsertFinancialRecord(ctx context.Context, r *model.FinancialRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO financial_records (id, type, category, amount, description, date, appointment_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Type), r.Category, r.Amount, r.Description,
		model.FormatTimestamp(r.Date), nullString(r.AppointmentID),
	)
	if err != nil {
		return fmt.Errorf("insert financial record: %w", err)
	}
	return nil
}

// ListFinancialRecords returns records with from <= date <= to, newest first.
// A zero bound is open.
func (db *DB) ListFinancialRecords(ctx context.Context, from, to time.Time) ([]model.FinancialRecord, error) {
	query := `SELECT id, type, category, amount, description, date, appointment_id FROM financial_records WHERE 1 = 1`
	var args []any
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, model.FormatTimestamp(from))
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, model.FormatTimestamp(to))
	}
	query += ` ORDER BY date DESC, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query financial records: %w", err)
	}
	defer rows.Close()

	var out []model.FinancialRecord
	for rows.Next() {
		var (
			r             model.FinancialRecord
			typ, date     string
			description   sql.NullString
			appointmentID sql.NullString
		)
		if err := rows.Scan(&r.ID, &typ, &r.Category, &r.Amount, &description, &date, &appointmentID); err != nil {
			return nil, err
		}
		r.Type = model.RecordType(typ)
		r.Description = description.String
		r.AppointmentID = appointmentID.String
		if r.Date, err = model.ParseTimestamp(date); err != nil {
			return nil, fmt.Errorf("financial record %s date: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
