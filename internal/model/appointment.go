package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned for a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// AppointmentIDPrefix prefixes every appointment identifier.
const AppointmentIDPrefix = "apt_"

// ShortIDLength is the number of id characters managers type in commands.
const ShortIDLength = 8

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// transitions lists the statuses each status may move to. Cancelled, completed
// and no-show are terminal: a cancelled slot may already belong to someone else.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted, StatusNoShow},
}

// CanTransition reports whether an appointment in s may move to to.
func (s AppointmentStatus) CanTransition(to AppointmentStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesOf returns the statuses that may move to to.
func SourcesOf(to AppointmentStatus) []AppointmentStatus {
	var out []AppointmentStatus
	for _, from := range []AppointmentStatus{StatusPending, StatusConfirmed} {
		if from.CanTransition(to) {
			out = append(out, from)
		}
	}
	return out
}

// Appointment is a booked service for a client on a civil date.
// Date is YYYY-MM-DD, Time and EndTime are HH:MM.
type Appointment struct {
	ID           string            `json:"id"`
	ClientID     string            `json:"client_id"`
	ClientPhone  string            `json:"client_phone"`
	ClientName   string            `json:"client_name"`
	ServiceID    string            `json:"service_id"`
	ServiceName  string            `json:"service_name"`
	Price        float64           `json:"price"`
	Date         string            `json:"date"`
	Time         string            `json:"time"`
	EndTime      string            `json:"end_time"`
	Status       AppointmentStatus `json:"status"`
	Notes        string            `json:"notes,omitempty"`
	ReminderSent bool              `json:"reminder_sent"`
	CreatedAt    time.Time         `json:"created_at"`
	ConfirmedAt  *time.Time        `json:"confirmed_at,omitempty"`
}

// NewAppointmentID returns a fresh "apt_" identifier.
func NewAppointmentID() string {
	return AppointmentIDPrefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// ShortID returns the prefix managers use to reference the appointment.
func (a *Appointment) ShortID() string {
	id := strings.TrimPrefix(a.ID, AppointmentIDPrefix)
	if len(id) > ShortIDLength {
		return id[:ShortIDLength]
	}
	return id
}

// IsCancelled reports whether the appointment no longer occupies its slot.
func (a *Appointment) IsCancelled() bool {
	return a.Status == StatusCancelled
}

// IsUpcoming reports whether the appointment still expects the client.
func (a *Appointment) IsUpcoming() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed
}

// StartsAt resolves the civil date and time in loc.
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", a.Date+" "+a.Time, loc)
}

// ShortIDLookupKey rebuilds the id prefix for a manager-typed short id.
func ShortIDLookupKey(short string) string {
	return AppointmentIDPrefix + strings.ToLower(strings.TrimSpace(short))
}
