package db

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barberbot/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "barber.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var created = time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

func seedClient(t *testing.T, db *DB, phone, name string) *model.Client {
	t.Helper()
	c := model.NewClient(phone, name, created)
	require.NoError(t, db.InsertClient(context.Background(), c))
	return c
}

func seedAppointment(t *testing.T, db *DB, c *model.Client, id, date, start, end string, status model.AppointmentStatus, at time.Time) *model.Appointment {
	t.Helper()
	a := &model.Appointment{
		ID:          id,
		ClientID:    c.ID,
		ClientPhone: c.Phone,
		ClientName:  c.Name,
		ServiceID:   "svc_1",
		ServiceName: "Corte Masculino",
		Price:       35,
		Date:        date,
		Time:        start,
		EndTime:     end,
		Status:      status,
		CreatedAt:   at,
	}
	require.NoError(t, db.InsertAppointment(context.Background(), a))
	return a
}

func TestSyncServices(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.SyncServices(ctx, model.DefaultServices()))
	active, err := db.ListActiveServices(ctx)
	require.NoError(t, err)
	require.Len(t, active, len(model.DefaultServices()))
	assert.Equal(t, "svc_1", active[0].ID)

	defaults := model.DefaultServices()
	catalog := []model.Service{
		{ID: "svc_2", Name: "Barba", Price: 30, Duration: 30, Active: true},
		{ID: "svc_1", Name: "Corte", Price: 50, Duration: 45, Description: "Tesoura", Active: true},
		{ID: "svc_7", Name: "Sobrancelha", Price: 20, Duration: 15, Active: true},
	}
	require.NoError(t, db.SyncServices(ctx, catalog))

	active, err = db.ListActiveServices(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, []string{"svc_2", "svc_1", "svc_7"}, []string{active[0].ID, active[1].ID, active[2].ID})
	// Existing services keep what they were created with.
	assert.Equal(t, defaults[1], active[0])
	assert.Equal(t, defaults[0], active[1])
	assert.Equal(t, catalog[2], active[2])

	svc, err := db.GetService(ctx, "svc_3")
	require.NoError(t, err)
	assert.False(t, svc.Active)

	n, err := db.CountServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(model.DefaultServices())+1, n)

	// Returning to the catalog reactivates a service.
	require.NoError(t, db.SyncServices(ctx, defaults))
	svc, err = db.GetService(ctx, "svc_3")
	require.NoError(t, err)
	assert.True(t, svc.Active)
	assert.Equal(t, defaults[2], *svc)

	_, err = db.GetService(ctx, "svc_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClients(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := db.GetClientByPhone(ctx, "5511")
	assert.ErrorIs(t, err, ErrNotFound)

	c := seedClient(t, db, "5511", "João")
	got, err := db.GetClientByPhone(ctx, "5511")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "João", got.Name)
	assert.Zero(t, got.TotalVisits)
	assert.Nil(t, got.LastVisit)
	assert.True(t, got.CreatedAt.Equal(created))

	err = db.InsertClient(ctx, model.NewClient("5511", "Outro", created))
	assert.ErrorIs(t, err, ErrClientExists)

	visit := created.Add(48 * time.Hour)
	require.NoError(t, db.RecordClientVisit(ctx, c.ID, visit))
	got, err = db.GetClientByPhone(ctx, "5511")
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalVisits)
	require.NotNil(t, got.LastVisit)
	assert.True(t, got.LastVisit.Equal(visit))

	assert.ErrorIs(t, db.RecordClientVisit(ctx, "cli_missing", visit), ErrNotFound)

	seedClient(t, db, "5522", "ana")
	list, err := db.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ana", list[0].Name)
}

func TestAppointments_RoundTripAndPrefix(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	c := seedClient(t, db, "5511", "João")

	a := seedAppointment(t, db, c, "apt_ab12cd34000000000000000000000001", "2026-03-10", "10:00", "11:00", model.StatusPending, created)
	seedAppointment(t, db, c, "apt_ab12cd34000000000000000000000002", "2026-03-10", "14:00", "15:00", model.StatusPending, created.Add(time.Minute))

	got, err := db.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, *a, *got)

	found, err := db.FindAppointmentByPrefix(ctx, model.ShortIDLookupKey("AB12CD34"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)

	_, err = db.FindAppointmentByPrefix(ctx, model.ShortIDLookupKey("ffffffff"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.FindAppointmentByPrefix(ctx, model.ShortIDLookupKey(""))
	assert.ErrorIs(t, err, ErrNotFound)
	for _, short := range []string{"a", "ab12", "AB12CD3"} {
		_, err = db.FindAppointmentByPrefix(ctx, model.ShortIDLookupKey(short))
		assert.ErrorIs(t, err, ErrNotFound, short)
	}

	_, err = db.GetAppointment(ctx, "apt_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppointments_StatusAndListings(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	c := seedClient(t, db, "5511", "João")
	other := seedClient(t, db, "5522", "Ana")

	past := seedAppointment(t, db, c, "apt_00000001", "2026-03-08", "10:00", "11:00", model.StatusConfirmed, created)
	pending := seedAppointment(t, db, c, "apt_00000002", "2026-03-10", "13:00", "14:00", model.StatusPending, created)
	early := seedAppointment(t, db, other, "apt_00000003", "2026-03-10", "09:00", "10:00", model.StatusPending, created)
	cancelled := seedAppointment(t, db, c, "apt_00000004", "2026-03-11", "09:00", "10:00", model.StatusPending, created)

	confirmAt := created.Add(time.Hour)
	require.NoError(t, db.UpdateAppointmentStatus(ctx, pending.ID, model.StatusConfirmed, confirmAt))
	require.NoError(t, db.UpdateAppointmentStatus(ctx, cancelled.ID, model.StatusCancelled, confirmAt))
	assert.ErrorIs(t, db.UpdateAppointmentStatus(ctx, "apt_nope", model.StatusConfirmed, confirmAt), ErrNotFound)
	assert.Error(t, db.UpdateAppointmentStatus(ctx, pending.ID, "bogus", confirmAt))

	err := db.UpdateAppointmentStatus(ctx, cancelled.ID, model.StatusConfirmed, confirmAt)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.ErrorIs(t, db.UpdateAppointmentStatus(ctx, pending.ID, model.StatusConfirmed, confirmAt), model.ErrInvalidTransition)
	stillCancelled, err := db.GetAppointment(ctx, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stillCancelled.Status)
	assert.Nil(t, stillCancelled.ConfirmedAt)

	got, err := db.GetAppointment(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	require.NotNil(t, got.ConfirmedAt)
	assert.True(t, got.ConfirmedAt.Equal(confirmAt))

	byDate, err := db.ListAppointmentsByDate(ctx, "2026-03-10")
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	assert.Equal(t, early.ID, byDate[0].ID)

	upcoming, err := db.ListUpcomingAppointments(ctx, "2026-03-09")
	require.NoError(t, err)
	ids := make([]string, 0, len(upcoming))
	for _, a := range upcoming {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{early.ID, pending.ID}, ids)

	between, err := db.ListAppointmentsBetween(ctx, "2026-03-08", "2026-03-11")
	require.NoError(t, err)
	assert.Len(t, between, 3)
	assert.Equal(t, past.ID, between[0].ID)

	mine, err := db.ListClientAppointments(ctx, "5511", "2026-03-09")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, pending.ID, mine[0].ID)

	remind, err := db.ListAppointmentsForReminders(ctx, "2026-03-09", "2026-03-10")
	require.NoError(t, err)
	require.Len(t, remind, 1)
	require.NoError(t, db.MarkReminderSent(ctx, remind[0].ID))
	remind, err = db.ListAppointmentsForReminders(ctx, "2026-03-09", "2026-03-10")
	require.NoError(t, err)
	assert.Empty(t, remind)
}

func TestFinancialRecords(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	older := model.NewFinancialRecord(model.RecordExpense, "Aluguel", 1200, "Março", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	newer := model.NewFinancialRecord(model.RecordIncome, "Barba", 75.5, "", time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC))
	outside := model.NewFinancialRecord(model.RecordIncome, "Barba", 10, "", time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC))
	for _, r := range []*model.FinancialRecord{older, newer, outside} {
		require.NoError(t, db.InsertFinancialRecord(ctx, r))
	}

	list, err := db.ListFinancialRecords(ctx, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, "", list[0].Description)
	assert.InDelta(t, 75.5, list[0].Amount, 1e-9)
	assert.Equal(t, model.RecordExpense, list[1].Type)

	all, err := db.ListFinancialRecords(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestConfig(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := db.GetConfig(ctx, ManagerChannelKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.SetConfig(ctx, ManagerChannelKey, "-100123"))
	require.NoError(t, db.SetConfig(ctx, ManagerChannelKey, "-100456"))
	v, err := db.GetConfig(ctx, ManagerChannelKey)
	require.NoError(t, err)
	assert.Equal(t, "-100456", v)
}

func TestBackupAndCleanup(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedClient(t, db, "5511", "João")

	dir := filepath.Join(t.TempDir(), "backups")
	logger := zerolog.New(io.Discard)
	svc := NewBackupService(db, BackupOptions{Dir: dir, Retention: 24 * time.Hour}, &logger)

	path, err := svc.PerformBackup(ctx)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	restored, err := NewDB(path, &logger)
	require.NoError(t, err)
	defer restored.Close()
	c, err := restored.GetClientByPhone(ctx, "5511")
	require.NoError(t, err)
	assert.Equal(t, "João", c.Name)

	stale := filepath.Join(dir, "backup_20200101_000000.db")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	old := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	keep := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(keep, old, old))

	removed, err := CleanupBackups(dir, 24*time.Hour, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, keep)
	assert.FileExists(t, path)
}
