package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Event types published by the bot.
const (
	AppointmentCreated       = "appointment.created"
	AppointmentStatusChanged = "appointment.status_changed"
	FinancialRecorded        = "financial.recorded"
	ManagerChannelInstalled  = "manager.channel_installed"
)

// StatusChange is the payload of AppointmentStatusChanged.
type StatusChange struct {
	AppointmentID string    `json:"appointment_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	At            time.Time `json:"at"`
}

// allEvents is the subscription key that receives every event type.
const allEvents = "*"

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// NewEvent encodes payload as JSON.
func NewEvent(eventType, key string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Key: key, Payload: data, CreatedAt: time.Now()}, nil
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// Bus provides in-process pub/sub for events.
type Bus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler EventHandler) {
	b.Subscribe(allEvents, handler)
}

// Publish runs the subscribers of the event type synchronously and joins
// their errors.
func (b *Bus) Publish(event Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.subscribers[allEvents]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}
