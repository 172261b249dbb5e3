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

const appointmentColumns = `id, client_id, client_phone, client_name, service_id, service_name, price,
	date, time, end_time, status, notes, reminder_sent, created_at, confirmed_at`

func scanAppointment(row interface{ Scan(...any) error }) (model.Appointment, error) {
	var (
		a           model.Appointment
		status      string
		notes       sql.NullString
		createdAt   string
		confirmedAt sql.NullString
	)
	err := row.Scan(&a.ID, &a.ClientID, &a.ClientPhone, &a.ClientName, &a.ServiceID, &a.ServiceName, &a.Price,
		&a.Date, &a.Time, &a.EndTime, &status, &notes, &a.ReminderSent, &createdAt, &confirmedAt)
	if err != nil {
		return a, err
	}

	a.Status = model.AppointmentStatus(status)
	if !a.Status.Valid() {
		return a, fmt.Errorf("appointment %s: unknown status %q", a.ID, status)
	}
	a.Notes = notes.String
	if a.CreatedAt, err = model.ParseTimestamp(createdAt); err != nil {
		return a, fmt.Errorf("appointment %s created_at: %w", a.ID, err)
	}
	if a.ConfirmedAt, err = model.ParseOptionalTimestamp(confirmedAt.String); err != nil {
		return a, fmt.Errorf("appointment %s confirmed_at: %w", a.ID, err)
	}
	return a, nil
}

func (db *DB) queryAppointments(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+appointmentColumns+` FROM appointments `+query, args...)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertAppointment stores a new appointment.
func (db *DB) InsertAppointment(ctx context.Context, a *model.Appointment) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO appointments (id, client_id, client_phone, client_name, service_id, service_name, price,
			date, time, end_time, status, notes, reminder_sent, created_at, confirmed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ClientID, a.ClientPhone, a.ClientName, a.ServiceID, a.ServiceName, a.Price,
		a.Date, a.Time, a.EndTime, string(a.Status), nullString(a.Notes), a.ReminderSent,
		model.FormatTimestamp(a.CreatedAt), nullTimestamp(a.ConfirmedAt),
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

// GetAppointment returns an appointment by full id.
func (db *DB) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := scanAppointment(db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindAppointmentByPrefix returns the earliest created appointment whose id
// starts with prefix. The prefix must carry at least a full short id.
func (db *DB) FindAppointmentByPrefix(ctx context.Context, prefix string) (*model.Appointment, error) {
	if len(prefix) < len(model.AppointmentIDPrefix)+model.ShortIDLength {
		return nil, ErrNotFound
	}
	list, err := db.queryAppointments(ctx,
		`WHERE substr(id, 1, length(?)) = ? ORDER BY created_at, id LIMIT 1`, prefix, prefix)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

// ListAppointmentsByDate returns every appointment on date, any status, by time.
func (db *DB) ListAppointmentsByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	return db.queryAppointments(ctx, `WHERE date = ? ORDER BY time, created_at`, date)
}

// ListAppointmentsBetween returns non-cancelled appointments with
// from <= date <= to, by date and time.
func (db *DB) ListAppointmentsBetween(ctx context.Context, from, to string) ([]model.Appointment, error) {
	return db.queryAppointments(ctx,
		`WHERE date >= ? AND date <= ? AND status != 'cancelled' ORDER BY date, time`, from, to)
}

// ListUpcomingAppointments returns pending and confirmed appointments from
// today on.
func (db *DB) ListUpcomingAppointments(ctx context.Context, today string) ([]model.Appointment, error) {
	return db.queryAppointments(ctx,
		`WHERE date >= ? AND status IN ('pending', 'confirmed') ORDER BY date, time`, today)
}

// ListClientAppointments returns a client's upcoming non-cancelled appointments.
func (db *DB) ListClientAppointments(ctx context.Context, phone, today string) ([]model.Appointment, error) {
	return db.queryAppointments(ctx,
		`WHERE client_phone = ? AND date >= ? AND status IN ('pending', 'confirmed') ORDER BY date, time`, phone, today)
}

// UpdateAppointmentStatus sets the status. Confirming also stamps confirmed_at.
// Only transitions allowed by the appointment lifecycle are applied; others
// return model.ErrInvalidTransition and leave the row untouched.
func (db *DB) UpdateAppointmentStatus(ctx context.Context, id string, status model.AppointmentStatus, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	sources := model.SourcesOf(status)
	if len(sources) == 0 {
		return fmt.Errorf("%w: nothing moves to %s", model.ErrInvalidTransition, status)
	}

	set := `status = ?`
	args := []any{string(status)}
	if status == model.StatusConfirmed {
		set += `, confirmed_at = ?`
		args = append(args, model.FormatTimestamp(at))
	}
	args = append(args, id)
	for _, s := range sources {
		args = append(args, string(s))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(sources)), ", ")

	res, err := db.ExecContext(ctx,
		`UPDATE appointments SET `+set+` WHERE id = ? AND status IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	current, err := db.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s to %s", model.ErrInvalidTransition, current.Status, status)
}

// ListAppointmentsForReminders returns confirmed appointments in the date
// range that have not been reminded yet.
func (db *DB) ListAppointmentsForReminders(ctx context.Context, from, to string) ([]model.Appointment, error) {
	return db.queryAppointments(ctx,
		`WHERE date >= ? AND date <= ? AND status = 'confirmed' AND reminder_sent = 0 ORDER BY date, time`, from, to)
}

// MarkReminderSent flags an appointment as reminded.
func (db *DB) MarkReminderSent(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, `UPDATE appointments SET reminder_sent = 1 WHERE id = ?`, id)
	return err
}
