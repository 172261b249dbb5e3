// Package booking implements the customer booking dialog.
package booking

import (
	"context"
	"time"

	"barberbot/internal/model"
)

// State represents the current step of the booking dialog.
type State string

const (
	StateIdle             State = "idle"
	StateSelectingService State = "selecting_service"
	StateSelectingDate    State = "selecting_date"
	StateSelectingTime    State = "selecting_time"
	StateAwaitingName     State = "awaiting_name"
	StateConfirming       State = "confirming"
	StateComplete         State = "complete"
	StateCanceled         State = "canceled"
)

// Session is the in-flight booking of one customer. Fields are exported so
// the session can be kept in any session store.
type Session struct {
	Phone      string `json:"phone"`
	State      State  `json:"state"`
	ServiceID  string `json:"service_id,omitempty"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	ClientName string `json:"client_name,omitempty"`
	ClientID   string `json:"client_id,omitempty"`
}

// Active reports whether the session is mid-dialog.
func (s *Session) Active() bool {
	return s != nil && s.State != StateIdle && s.State != StateComplete && s.State != StateCanceled
}

// FSM holds the allowed state transitions.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates a new FSM with predefined transitions.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateIdle:             {StateSelectingService},
			StateSelectingService: {StateSelectingDate, StateCanceled},
			StateSelectingDate:    {StateSelectingTime, StateCanceled},
			StateSelectingTime:    {StateAwaitingName, StateConfirming, StateSelectingDate, StateCanceled},
			StateAwaitingName:     {StateConfirming, StateCanceled},
			StateConfirming:       {StateComplete, StateSelectingTime, StateSelectingDate, StateCanceled},
			StateComplete:         {StateIdle},
			StateCanceled:         {StateIdle},
		},
	}
}

// CanTransition checks if transition is allowed. Staying put is always allowed.
func (f *FSM) CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Result is the outcome of one customer message.
type Result struct {
	State   State
	Message string
	// Done means the dialog ended and the session must be discarded.
	Done bool
	// Appointment is set when the booking was committed.
	Appointment *model.Appointment
}

// Store is the persistence the dialog reads from and writes to.
type Store interface {
	ListActiveServices(ctx context.Context) ([]model.Service, error)
	GetService(ctx context.Context, id string) (*model.Service, error)
	GetClientByPhone(ctx context.Context, phone string) (*model.Client, error)
	InsertClient(ctx context.Context, c *model.Client) error
	RecordClientVisit(ctx context.Context, clientID string, at time.Time) error
	InsertAppointment(ctx context.Context, a *model.Appointment) error
	ListAppointmentsByDate(ctx context.Context, date string) ([]model.Appointment, error)
}
