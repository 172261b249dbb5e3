package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"barberbot/internal/model"
	"barberbot/internal/slots"
)

const (
	// DefaultMenuDays is how many business days the date menu offers.
	DefaultMenuDays = 7
	// DefaultHorizon is how far ahead business days are searched.
	DefaultHorizon = 30
)

var (
	cancelTokens  = map[string]bool{"0": true, "cancelar": true, "cancel": true}
	confirmTokens = map[string]bool{"confirmar": true, "sim": true, "s": true}
	declineTokens = map[string]bool{"não": true, "nao": true, "n": true}
)

// IsCancelToken reports whether input aborts any flow step.
func IsCancelToken(input string) bool {
	return cancelTokens[strings.ToLower(strings.TrimSpace(input))]
}

// Handler drives booking sessions.
type Handler struct {
	fsm      *FSM
	store    Store
	calc     *slots.Calculator
	menuDays int
	horizon  int
}

// NewHandler creates a handler. menuDays <= 0 selects DefaultMenuDays.
func NewHandler(store Store, calc *slots.Calculator, menuDays int) *Handler {
	if menuDays <= 0 {
		menuDays = DefaultMenuDays
	}
	return &Handler{
		fsm:      NewFSM(),
		store:    store,
		calc:     calc,
		menuDays: menuDays,
		horizon:  DefaultHorizon,
	}
}

// Start opens a session for phone at the service menu. When no service is
// active the returned result is Done and the session must not be stored.
func (h *Handler) Start(ctx context.Context, phone string) (*Session, Result, error) {
	services, err := h.store.ListActiveServices(ctx)
	if err != nil {
		return nil, Result{}, fmt.Errorf("list services: %w", err)
	}
	s := &Session{Phone: phone, State: StateIdle}
	if len(services) == 0 {
		return s, Result{State: StateIdle, Message: msgNoServices, Done: true}, nil
	}
	if err := h.move(s, StateSelectingService); err != nil {
		return nil, Result{}, err
	}
	return s, Result{State: s.State, Message: FormatServiceMenu(services)}, nil
}

// HandleInput advances s with one customer message. The cancel tokens are
// honored in every state before the per-state handler runs.
func (h *Handler) HandleInput(ctx context.Context, s *Session, input string) (Result, error) {
	input = strings.TrimSpace(input)
	command := strings.ToLower(input)

	if cancelTokens[command] {
		s.State = StateCanceled
		return Result{State: StateCanceled, Message: msgCanceled, Done: true}, nil
	}

	switch s.State {
	case StateSelectingService:
		return h.handleService(ctx, s, command)
	case StateSelectingDate:
		return h.handleDate(ctx, s, command)
	case StateSelectingTime:
		return h.handleTime(ctx, s, command)
	case StateAwaitingName:
		return h.handleName(ctx, s, input)
	case StateConfirming:
		return h.handleConfirm(ctx, s, command)
	default:
		return Result{}, fmt.Errorf("unknown booking state: %s", s.State)
	}
}

func (h *Handler) move(s *Session, to State) error {
	if !h.fsm.CanTransition(s.State, to) {
		return fmt.Errorf("booking transition %s -> %s not allowed", s.State, to)
	}
	s.State = to
	return nil
}

func (h *Handler) dates() []string {
	return h.calc.BusinessDays(h.horizon).Take(h.menuDays)
}

func (h *Handler) handleService(ctx context.Context, s *Session, command string) (Result, error) {
	services, err := h.store.ListActiveServices(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list services: %w", err)
	}
	idx, ok := parseIndex(command, len(services))
	if !ok {
		return Result{State: s.State, Message: msgInvalidService + "\n\n" + FormatServiceMenu(services)}, nil
	}

	s.ServiceID = services[idx].ID
	if err := h.move(s, StateSelectingDate); err != nil {
		return Result{}, err
	}
	return Result{State: s.State, Message: FormatDateMenu(h.dates())}, nil
}

func (h *Handler) handleDate(ctx context.Context, s *Session, command string) (Result, error) {
	dates := h.dates()
	idx, ok := parseIndex(command, len(dates))
	if !ok {
		return Result{State: s.State, Message: msgInvalidDate}, nil
	}
	return h.selectDate(ctx, s, dates[idx])
}

// selectDate shows the free times for date. With nothing free the session
// goes back to, or stays at, the date menu.
func (h *Handler) selectDate(ctx context.Context, s *Session, date string) (Result, error) {
	service, times, err := h.freeTimes(ctx, s.ServiceID, date)
	if err != nil {
		return Result{}, err
	}
	if len(times) == 0 {
		if err := h.move(s, StateSelectingDate); err != nil {
			return Result{}, err
		}
		return Result{State: s.State, Message: msgNoSlots + "\n\n" + FormatDateMenu(h.dates())}, nil
	}

	if err := h.move(s, StateSelectingTime); err != nil {
		return Result{}, err
	}
	s.Date = date
	s.Time = ""
	return Result{State: s.State, Message: FormatTimeMenu(date, service, times)}, nil
}

func (h *Handler) freeTimes(ctx context.Context, serviceID, date string) (*model.Service, []string, error) {
	service, err := h.store.GetService(ctx, serviceID)
	if err != nil {
		return nil, nil, fmt.Errorf("get service %s: %w", serviceID, err)
	}
	existing, err := h.store.ListAppointmentsByDate(ctx, date)
	if err != nil {
		return nil, nil, fmt.Errorf("list appointments for %s: %w", date, err)
	}
	return service, h.calc.AvailableSlots(date, service.Duration, existing), nil
}

// handleTime accepts a time index, or "data N" to pick another date using
// the date menu numbering.
func (h *Handler) handleTime(ctx context.Context, s *Session, command string) (Result, error) {
	if rest, ok := cutDatePrefix(command); ok {
		dates := h.dates()
		idx, ok := parseIndex(rest, len(dates))
		if !ok {
			return Result{State: s.State, Message: msgInvalidDate}, nil
		}
		return h.selectDate(ctx, s, dates[idx])
	}

	_, times, err := h.freeTimes(ctx, s.ServiceID, s.Date)
	if err != nil {
		return Result{}, err
	}
	idx, ok := parseIndex(command, len(times))
	if !ok {
		return Result{State: s.State, Message: msgInvalidTime}, nil
	}
	s.Time = times[idx]

	client, err := h.store.GetClientByPhone(ctx, s.Phone)
	switch {
	case err == nil:
		s.ClientID = client.ID
		s.ClientName = client.Name
		return h.showConfirmation(ctx, s)
	case errors.Is(err, model.ErrNotFound):
		if err := h.move(s, StateAwaitingName); err != nil {
			return Result{}, err
		}
		return Result{State: s.State, Message: msgAskName}, nil
	default:
		return Result{}, fmt.Errorf("get client: %w", err)
	}
}

func (h *Handler) handleName(ctx context.Context, s *Session, input string) (Result, error) {
	if len([]rune(input)) < 2 {
		return Result{State: s.State, Message: msgInvalidName}, nil
	}
	s.ClientName = input
	return h.showConfirmation(ctx, s)
}

func (h *Handler) showConfirmation(ctx context.Context, s *Session) (Result, error) {
	service, err := h.store.GetService(ctx, s.ServiceID)
	if err != nil {
		return Result{}, fmt.Errorf("get service %s: %w", s.ServiceID, err)
	}
	end, err := slots.ComputeEndTime(s.Time, service.Duration)
	if err != nil {
		return Result{}, err
	}
	if err := h.move(s, StateConfirming); err != nil {
		return Result{}, err
	}
	return Result{State: s.State, Message: FormatConfirmation(service, s.Date, s.Time, end, s.ClientName)}, nil
}

func (h *Handler) handleConfirm(ctx context.Context, s *Session, command string) (Result, error) {
	switch {
	case confirmTokens[command]:
		return h.commit(ctx, s)
	case declineTokens[command]:
		s.State = StateCanceled
		return Result{State: StateCanceled, Message: msgCanceled, Done: true}, nil
	default:
		return Result{State: s.State, Message: msgConfirmHelp}, nil
	}
}

// commit persists the appointment after checking the slot is still free.
func (h *Handler) commit(ctx context.Context, s *Session) (Result, error) {
	service, err := h.store.GetService(ctx, s.ServiceID)
	if err != nil {
		return Result{}, fmt.Errorf("get service %s: %w", s.ServiceID, err)
	}
	existing, err := h.store.ListAppointmentsByDate(ctx, s.Date)
	if err != nil {
		return Result{}, fmt.Errorf("list appointments for %s: %w", s.Date, err)
	}
	if !slots.IsAvailable(s.Date, s.Time, service.Duration, existing, "") {
		return h.slotTaken(s, service, existing)
	}

	now := h.calc.Now()
	client, err := h.upsertClient(ctx, s, now)
	if err != nil {
		return Result{}, err
	}

	end, err := slots.ComputeEndTime(s.Time, service.Duration)
	if err != nil {
		return Result{}, err
	}
	apt := &model.Appointment{
		ID:          model.NewAppointmentID(),
		ClientID:    client.ID,
		ClientPhone: client.Phone,
		ClientName:  s.ClientName,
		ServiceID:   service.ID,
		ServiceName: service.Name,
		Price:       service.Price,
		Date:        s.Date,
		Time:        s.Time,
		EndTime:     end,
		Status:      model.StatusPending,
		CreatedAt:   now,
	}
	if err := h.store.InsertAppointment(ctx, apt); err != nil {
		return Result{}, fmt.Errorf("insert appointment: %w", err)
	}

	if err := h.move(s, StateComplete); err != nil {
		return Result{}, err
	}
	return Result{State: s.State, Message: FormatBooked(apt), Done: true, Appointment: apt}, nil
}

func (h *Handler) slotTaken(s *Session, service *model.Service, existing []model.Appointment) (Result, error) {
	times := h.calc.AvailableSlots(s.Date, service.Duration, existing)
	s.Time = ""
	if len(times) == 0 {
		if err := h.move(s, StateSelectingDate); err != nil {
			return Result{}, err
		}
		return Result{State: s.State, Message: msgNoSlots + "\n\n" + FormatDateMenu(h.dates())}, nil
	}
	if err := h.move(s, StateSelectingTime); err != nil {
		return Result{}, err
	}
	return Result{State: s.State, Message: msgSlotTaken + "\n\n" + FormatTimeMenu(s.Date, service, times)}, nil
}

// upsertClient creates the client on a first booking and counts a visit on
// later ones.
func (h *Handler) upsertClient(ctx context.Context, s *Session, now time.Time) (*model.Client, error) {
	client, err := h.store.GetClientByPhone(ctx, s.Phone)
	switch {
	case err == nil:
		if err := h.store.RecordClientVisit(ctx, client.ID, now); err != nil {
			return nil, fmt.Errorf("record visit: %w", err)
		}
		if s.ClientName == "" {
			s.ClientName = client.Name
		}
		return client, nil
	case errors.Is(err, model.ErrNotFound):
		client = model.NewClient(s.Phone, s.ClientName, now)
		if err := h.store.InsertClient(ctx, client); err != nil {
			return nil, fmt.Errorf("insert client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("get client: %w", err)
	}
}

func parseIndex(command string, n int) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(command))
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}

func cutDatePrefix(command string) (string, bool) {
	for _, p := range []string{"data ", "dia "} {
		if rest, ok := strings.CutPrefix(command, p); ok {
			return rest, true
		}
	}
	return "", false
}
