package booking

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barberbot/internal/model"
	"barberbot/internal/slots"
)

type memStore struct {
	services     []model.Service
	clients      map[string]*model.Client
	appointments []model.Appointment
	visits       map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		services: []model.Service{
			{ID: "svc_1", Name: "Corte", Price: 50, Duration: 45, Active: true},
			{ID: "svc_2", Name: "Barba", Price: 35, Duration: 30, Active: true},
		},
		clients: make(map[string]*model.Client),
		visits:  make(map[string]int),
	}
}

func (m *memStore) ListActiveServices(_ context.Context) ([]model.Service, error) {
	return m.services, nil
}

func (m *memStore) GetService(_ context.Context, id string) (*model.Service, error) {
	for i := range m.services {
		if m.services[i].ID == id {
			s := m.services[i]
			return &s, nil
		}
	}
	return nil, model.ErrNotFound
}

func (m *memStore) GetClientByPhone(_ context.Context, phone string) (*model.Client, error) {
	c, ok := m.clients[phone]
	if !ok {
		return nil, model.ErrNotFound
	}
	return c, nil
}

func (m *memStore) InsertClient(_ context.Context, c *model.Client) error {
	m.clients[c.Phone] = c
	return nil
}

func (m *memStore) RecordClientVisit(_ context.Context, clientID string, _ time.Time) error {
	m.visits[clientID]++
	return nil
}

func (m *memStore) InsertAppointment(_ context.Context, a *model.Appointment) error {
	m.appointments = append(m.appointments, *a)
	return nil
}

func (m *memStore) ListAppointmentsByDate(_ context.Context, date string) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range m.appointments {
		if a.Date == date {
			out = append(out, a)
		}
	}
	return out, nil
}

// Monday 2026-03-09.
func newTestHandler(t *testing.T, store Store, hour, minute int) *Handler {
	t.Helper()
	now := time.Date(2026, 3, 9, hour, minute, 0, 0, time.UTC)
	calc, err := slots.NewCalculator(slots.DefaultSchedule(), time.UTC, func() time.Time { return now })
	require.NoError(t, err)
	return NewHandler(store, calc, 0)
}

func feed(t *testing.T, h *Handler, s *Session, inputs ...string) Result {
	t.Helper()
	var res Result
	for _, in := range inputs {
		var err error
		res, err = h.HandleInput(context.Background(), s, in)
		require.NoError(t, err, "input %q", in)
	}
	return res
}

func TestFSMTransitions(t *testing.T) {
	fsm := NewFSM()

	tests := []struct {
		name        string
		from        State
		to          State
		shouldAllow bool
	}{
		{"idle to service", StateIdle, StateSelectingService, true},
		{"service to date", StateSelectingService, StateSelectingDate, true},
		{"date to time", StateSelectingDate, StateSelectingTime, true},
		{"time back to date", StateSelectingTime, StateSelectingDate, true},
		{"time skips name", StateSelectingTime, StateConfirming, true},
		{"name to confirm", StateAwaitingName, StateConfirming, true},
		{"confirm to complete", StateConfirming, StateComplete, true},
		{"same state", StateSelectingDate, StateSelectingDate, true},
		{"idle to confirm", StateIdle, StateConfirming, false},
		{"service to time", StateSelectingService, StateSelectingTime, false},
		{"complete to confirm", StateComplete, StateConfirming, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.shouldAllow, fsm.CanTransition(tt.from, tt.to))
		})
	}
}

func TestHandler_FullBookingNewClient(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(t, store, 8, 0)

	s, res, err := h.Start(context.Background(), "5511999")
	require.NoError(t, err)
	assert.Equal(t, StateSelectingService, s.State)
	assert.Contains(t, res.Message, "*1* - Corte (R$ 50.00)")

	res = feed(t, h, s, "1")
	assert.Equal(t, StateSelectingDate, res.State)
	assert.Contains(t, res.Message, "*1* - 09/03 (segunda-feira)")

	res = feed(t, h, s, "1")
	assert.Equal(t, StateSelectingTime, res.State)
	assert.Contains(t, res.Message, "*1* - 09:00")
	assert.NotContains(t, res.Message, "12:00")

	res = feed(t, h, s, "1")
	assert.Equal(t, StateAwaitingName, res.State)

	res = feed(t, h, s, "João")
	assert.Equal(t, StateConfirming, res.State)
	assert.Contains(t, res.Message, "09:00 às 09:45")
	assert.Contains(t, res.Message, "João")

	res = feed(t, h, s, "confirmar")
	assert.True(t, res.Done)
	assert.Equal(t, StateComplete, res.State)
	require.NotNil(t, res.Appointment)

	require.Len(t, store.appointments, 1)
	apt := store.appointments[0]
	assert.Equal(t, model.StatusPending, apt.Status)
	assert.Equal(t, "2026-03-09", apt.Date)
	assert.Equal(t, "09:00", apt.Time)
	assert.Equal(t, "09:45", apt.EndTime)
	assert.Equal(t, "svc_1", apt.ServiceID)
	assert.Equal(t, "João", apt.ClientName)
	assert.Len(t, apt.ShortID(), model.ShortIDLength)
	assert.True(t, strings.HasPrefix(apt.ID, model.AppointmentIDPrefix+apt.ShortID()))

	client := store.clients["5511999"]
	require.NotNil(t, client)
	assert.Equal(t, "João", client.Name)
	assert.Zero(t, client.TotalVisits)
	assert.Equal(t, client.ID, apt.ClientID)
	assert.Empty(t, store.visits)

	assert.Contains(t, FormatManagerNotice(res.Appointment), "confirmar "+apt.ShortID())
}

func TestHandler_ExistingClientSkipsName(t *testing.T) {
	store := newMemStore()
	store.clients["5511999"] = &model.Client{ID: "cli_1", Phone: "5511999", Name: "Maria", TotalVisits: 3}
	h := newTestHandler(t, store, 8, 0)

	s, _, err := h.Start(context.Background(), "5511999")
	require.NoError(t, err)

	res := feed(t, h, s, "2", "1", "1")
	assert.Equal(t, StateConfirming, res.State)
	assert.Contains(t, res.Message, "Maria")

	res = feed(t, h, s, "sim")
	assert.True(t, res.Done)
	require.Len(t, store.appointments, 1)
	assert.Equal(t, "cli_1", store.appointments[0].ClientID)
	assert.Equal(t, 1, store.visits["cli_1"])
}

func TestHandler_CancelTokensInEveryState(t *testing.T) {
	steps := map[State][]string{
		StateSelectingService: nil,
		StateSelectingDate:    {"1"},
		StateSelectingTime:    {"1", "1"},
		StateAwaitingName:     {"1", "1", "1"},
		StateConfirming:       {"1", "1", "1", "Ana"},
	}

	for state, inputs := range steps {
		for _, token := range []string{"0", "cancelar", "CANCEL"} {
			t.Run(string(state)+"/"+token, func(t *testing.T) {
				store := newMemStore()
				h := newTestHandler(t, store, 8, 0)
				s, _, err := h.Start(context.Background(), "5511")
				require.NoError(t, err)
				feed(t, h, s, inputs...)
				require.Equal(t, state, s.State)

				res := feed(t, h, s, token)
				assert.True(t, res.Done)
				assert.Equal(t, StateCanceled, res.State)
				assert.Empty(t, store.appointments)
			})
		}
	}
}

func TestHandler_InvalidInputRePrompts(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(t, store, 8, 0)
	s, _, err := h.Start(context.Background(), "5511")
	require.NoError(t, err)

	for _, in := range []string{"abc", "3", "-1", ""} {
		res := feed(t, h, s, in)
		assert.Equal(t, StateSelectingService, res.State, "input %q", in)
		assert.Contains(t, res.Message, "Opção inválida")
	}

	res := feed(t, h, s, "1", "8")
	assert.Equal(t, StateSelectingDate, res.State)

	res = feed(t, h, s, "1", "99")
	assert.Equal(t, StateSelectingTime, res.State)
	assert.Contains(t, res.Message, "número do horário")

	res = feed(t, h, s, "1", "J")
	assert.Equal(t, StateAwaitingName, res.State)
	assert.Contains(t, res.Message, "Nome inválido")

	res = feed(t, h, s, "Jo", "talvez")
	assert.Equal(t, StateConfirming, res.State)
	assert.Contains(t, res.Message, "*confirmar*")

	res = feed(t, h, s, "não")
	assert.True(t, res.Done)
	assert.Empty(t, store.appointments)
}

func TestHandler_NoSlotsStaysOnDate(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(t, store, 19, 30)
	s, _, err := h.Start(context.Background(), "5511")
	require.NoError(t, err)

	res := feed(t, h, s, "1", "1")
	assert.Equal(t, StateSelectingDate, res.State)
	assert.Contains(t, res.Message, "Não há horários disponíveis")
	assert.Empty(t, s.Date)

	res = feed(t, h, s, "2")
	assert.Equal(t, StateSelectingTime, res.State)
	assert.Equal(t, "2026-03-10", s.Date)
}

func TestHandler_ReselectDateFromTimeStep(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(t, store, 8, 0)
	s, _, err := h.Start(context.Background(), "5511")
	require.NoError(t, err)

	res := feed(t, h, s, "1", "1")
	require.Equal(t, "2026-03-09", s.Date)
	assert.Contains(t, res.Message, "*data N* - Trocar a data")

	res = feed(t, h, s, "data 2")
	assert.Equal(t, StateSelectingTime, res.State)
	assert.Equal(t, "2026-03-10", s.Date)
	assert.Contains(t, res.Message, "10 de março de 2026")

	res = feed(t, h, s, "data 9")
	assert.Equal(t, StateSelectingTime, res.State)
	assert.Equal(t, "2026-03-10", s.Date)
}

func TestHandler_CommitRechecksAvailability(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(t, store, 8, 0)
	s, _, err := h.Start(context.Background(), "5511")
	require.NoError(t, err)

	res := feed(t, h, s, "1", "1", "1", "Ana")
	require.Equal(t, StateConfirming, res.State)

	store.appointments = append(store.appointments, model.Appointment{
		ID: "apt_other", Date: "2026-03-09", Time: "09:00", EndTime: "10:00", Status: model.StatusConfirmed,
	})

	res = feed(t, h, s, "confirmar")
	assert.False(t, res.Done)
	assert.Equal(t, StateSelectingTime, res.State)
	assert.Contains(t, res.Message, "acabou de ser reservado")
	assert.NotContains(t, res.Message, "*1* - 09:00")
	assert.Len(t, store.appointments, 1)
	assert.Empty(t, store.clients)
}

func TestHandler_StartWithoutServices(t *testing.T) {
	store := newMemStore()
	store.services = nil
	h := newTestHandler(t, store, 8, 0)

	_, res, err := h.Start(context.Background(), "5511")
	require.NoError(t, err)
	assert.True(t, res.Done)
}

func TestIsCancelToken(t *testing.T) {
	assert.True(t, IsCancelToken(" Cancelar "))
	assert.True(t, IsCancelToken("0"))
	assert.False(t, IsCancelToken("confirmar"))
}
