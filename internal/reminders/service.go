// Package reminders notifies clients ahead of their confirmed appointments.
package reminders

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"barberbot/internal/markdown"
	"barberbot/internal/metrics"
	"barberbot/internal/model"
	"barberbot/internal/slots"
)

// Store provides access to appointments that may need a reminder.
type Store interface {
	// ListAppointmentsForReminders returns confirmed, not yet reminded
	// appointments with from <= date <= to.
	ListAppointmentsForReminders(ctx context.Context, from, to string) ([]model.Appointment, error)

	// MarkReminderSent flags the appointment as reminded.
	MarkReminderSent(ctx context.Context, id string) error
}

// Notifier delivers a reminder to the client of an appointment.
type Notifier interface {
	SendReminder(ctx context.Context, a *model.Appointment) error
}

// TextSender is the outbound side of a chat transport.
type TextSender interface {
	SendText(ctx context.Context, to, text string) error
}

// Config holds configuration for the reminder service.
type Config struct {
	// CheckInterval is how often to scan for upcoming appointments.
	// Default: 15 minutes.
	CheckInterval time.Duration

	// Lead is how long before the start a reminder becomes due.
	// Default: 24 hours.
	Lead time.Duration

	// MaxConcurrent limits parallel sends. Default: 10.
	MaxConcurrent int
}

// Service sends appointment reminders.
type Service struct {
	config   Config
	store    Store
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService creates a reminder service. now defaults to time.Now.
func NewService(config Config, store Store, notifier Notifier, loc *time.Location, now func() time.Time, logger *zerolog.Logger) *Service {
	if config.CheckInterval <= 0 {
		config.CheckInterval = 15 * time.Minute
	}
	if config.Lead <= 0 {
		config.Lead = 24 * time.Hour
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		config:   config,
		store:    store,
		notifier: notifier,
		loc:      loc,
		now:      now,
		logger:   logger.With().Str("component", "reminders").Logger(),
	}
}

// Run checks immediately and then on every tick until ctx is done.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info().
		Dur("check_interval", s.config.CheckInterval).
		Dur("lead", s.config.Lead).
		Msg("reminder service started")

	s.CheckNow(ctx)

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reminder service stopped")
			return
		case <-ticker.C:
			s.CheckNow(ctx)
		}
	}
}

// CheckNow sends every due reminder and returns how many were delivered.
func (s *Service) CheckNow(ctx context.Context) int {
	now := s.now().In(s.loc)
	until := now.Add(s.config.Lead)

	appointments, err := s.store.ListAppointmentsForReminders(ctx, now.Format("2006-01-02"), until.Format("2006-01-02"))
	if err != nil {
		s.logger.Error().Err(err).Msg("list appointments for reminders")
		return 0
	}

	sem := make(chan struct{}, s.config.MaxConcurrent)
	var (
		wg   sync.WaitGroup
		sent atomic.Int32
	)

	for i := range appointments {
		a := &appointments[i]
		start, err := a.StartsAt(s.loc)
		if err != nil {
			s.logger.Error().Err(err).Str("appointment_id", a.ID).Msg("bad appointment start")
			continue
		}
		if start.Before(now) || start.After(until) {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.send(ctx, a); err != nil {
				s.logger.Error().Err(err).
					Str("appointment_id", a.ID).
					Str("client", a.ClientPhone).
					Msg("send reminder")
				return
			}
			sent.Add(1)
		}()
	}

	wg.Wait()
	return int(sent.Load())
}

func (s *Service) send(ctx context.Context, a *model.Appointment) error {
	if err := s.notifier.SendReminder(ctx, a); err != nil {
		return err
	}
	metrics.IncReminderSent()

	// The client was already notified; a failed mark only risks a repeat.
	if err := s.store.MarkReminderSent(ctx, a.ID); err != nil {
		s.logger.Error().Err(err).Str("appointment_id", a.ID).Msg("mark reminder sent")
	}

	s.logger.Info().Str("appointment_id", a.ID).Str("client", a.ClientPhone).Msg("reminder sent")
	return nil
}

// TextNotifier sends reminders as chat text.
type TextNotifier struct {
	Sender TextSender
}

func (n TextNotifier) SendReminder(ctx context.Context, a *model.Appointment) error {
	return n.Sender.SendText(ctx, a.ClientPhone, FormatReminder(a))
}

// FormatReminder renders the reminder text for a.
func FormatReminder(a *model.Appointment) string {
	return fmt.Sprintf("⏰ *Lembrete de agendamento*\n\nOlá, %s! Seu horário de *%s* é %s.\n\nAté lá! 💈",
		markdown.Escape(a.ClientName), a.ServiceName, slots.FormatDateTime(a.Date, a.Time))
}
