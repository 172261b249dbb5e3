package reminders

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"barberbot/internal/model"
)

type fakeStore struct {
	mu     sync.Mutex
	apts   []model.Appointment
	marked []string
	from   string
	to     string
	err    error
}

func (f *fakeStore) ListAppointmentsForReminders(_ context.Context, from, to string) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.from, f.to = from, to
	return append([]model.Appointment(nil), f.apts...), f.err
}

func (f *fakeStore) MarkReminderSent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendReminder(ctx context.Context, a *model.Appointment) error {
	return m.Called(ctx, a.ID).Error(0)
}

type recordingSender struct {
	to, text string
}

func (r *recordingSender) SendText(_ context.Context, to, text string) error {
	r.to, r.text = to, text
	return nil
}

func newTestService(store Store, notifier Notifier) *Service {
	now := func() time.Time { return time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC) }
	logger := zerolog.New(io.Discard)
	return NewService(Config{Lead: 24 * time.Hour, MaxConcurrent: 2}, store, notifier, time.UTC, now, &logger)
}

func apt(id, date, clock string) model.Appointment {
	return model.Appointment{ID: id, ClientPhone: "p_" + id, ClientName: "Ana", ServiceName: "Corte", Date: date, Time: clock, Status: model.StatusConfirmed}
}

func TestCheckNow_SendsDueReminders(t *testing.T) {
	store := &fakeStore{apts: []model.Appointment{
		apt("apt_past", "2026-03-09", "09:00"),
		apt("apt_soon", "2026-03-09", "15:00"),
		apt("apt_tomorrow", "2026-03-10", "09:30"),
		apt("apt_late", "2026-03-10", "11:00"),
	}}
	notifier := new(mockNotifier)
	notifier.On("SendReminder", mock.Anything, "apt_soon").Return(nil).Once()
	notifier.On("SendReminder", mock.Anything, "apt_tomorrow").Return(nil).Once()

	sent := newTestService(store, notifier).CheckNow(context.Background())

	assert.Equal(t, 2, sent)
	assert.Equal(t, "2026-03-09", store.from)
	assert.Equal(t, "2026-03-10", store.to)
	assert.ElementsMatch(t, []string{"apt_soon", "apt_tomorrow"}, store.marked)
	notifier.AssertExpectations(t)
}

func TestCheckNow_FailedSendIsNotMarked(t *testing.T) {
	store := &fakeStore{apts: []model.Appointment{apt("apt_a", "2026-03-09", "16:00")}}
	notifier := new(mockNotifier)
	notifier.On("SendReminder", mock.Anything, "apt_a").Return(errors.New("blocked")).Once()

	sent := newTestService(store, notifier).CheckNow(context.Background())

	assert.Zero(t, sent)
	assert.Empty(t, store.marked)
	notifier.AssertExpectations(t)
}

func TestCheckNow_StoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	notifier := new(mockNotifier)

	assert.Zero(t, newTestService(store, notifier).CheckNow(context.Background()))
	notifier.AssertNotCalled(t, "SendReminder", mock.Anything, mock.Anything)
}

func TestTextNotifier(t *testing.T) {
	sender := &recordingSender{}
	a := apt("apt_x", "2026-03-09", "15:00")

	require.NoError(t, TextNotifier{Sender: sender}.SendReminder(context.Background(), &a))
	assert.Equal(t, "p_apt_x", sender.to)
	assert.Contains(t, sender.text, "Olá, Ana!")
	assert.Contains(t, sender.text, "*Corte*")
	assert.Contains(t, sender.text, "09 de março de 2026 às 15:00")
}

func TestFormatReminder_EscapesName(t *testing.T) {
	a := apt("apt_x", "2026-03-09", "15:00")
	a.ClientName = "Ana_Maria"
	assert.Contains(t, FormatReminder(&a), `Olá, Ana\_Maria!`)
}
