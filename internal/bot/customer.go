package bot

import (
	"context"
	"errors"
	"fmt"

	"barberbot/internal/booking"
	"barberbot/internal/events"
	"barberbot/internal/metrics"
	"barberbot/internal/model"
	"barberbot/internal/session"
)

type customerAction int

const (
	actionMainMenu customerAction = iota
	actionCancel
	actionBook
	actionServices
	actionMyAppointments
	actionHelp
)

var customerTokens = map[string]customerAction{
	"menu": actionMainMenu, "oi": actionMainMenu, "olá": actionMainMenu, "ola": actionMainMenu,
	"início": actionMainMenu, "inicio": actionMainMenu,
	"0": actionCancel, "cancelar": actionCancel, "cancel": actionCancel,
	"1": actionBook, "agendar": actionBook,
	"2": actionServices, "serviços": actionServices, "servicos": actionServices, "servico": actionServices,
	"3": actionMyAppointments, "meus horários": actionMyAppointments, "meus horarios": actionMyAppointments,
	"ajuda": actionHelp, "help": actionHelp, "?": actionHelp,
}

func (b *Bot) handleCustomer(ctx context.Context, msg Message, text, command string) error {
	key := msg.Sender

	s, err := b.bookings.Get(ctx, key)
	switch {
	case err == nil:
		metrics.IncMessage("booking")
		return b.continueBooking(ctx, msg, &s, text)
	case errors.Is(err, session.ErrExpired):
		metrics.IncMessage("booking")
		metrics.AddSessionsExpired("booking", 1)
		return b.reply(ctx, msg.ChatID, msgBookingExpired)
	case !errors.Is(err, session.ErrNotFound):
		return fmt.Errorf("load booking session: %w", err)
	}

	metrics.IncMessage("menu")
	switch customerTokens[command] {
	case actionCancel:
		return b.reply(ctx, msg.ChatID, msgNothingInProgress)
	case actionBook:
		return b.startBooking(ctx, msg)
	case actionServices:
		services, err := b.repo.ListActiveServices(ctx)
		if err != nil {
			return fmt.Errorf("list services: %w", err)
		}
		return b.reply(ctx, msg.ChatID, formatServices(services))
	case actionMyAppointments:
		return b.sendMyAppointments(ctx, msg)
	case actionHelp:
		return b.reply(ctx, msg.ChatID, msgHelp)
	default:
		return b.reply(ctx, msg.ChatID, msgMainMenu)
	}
}

func (b *Bot) startBooking(ctx context.Context, msg Message) error {
	s, res, err := b.booking.Start(ctx, msg.Sender)
	if err != nil {
		return err
	}
	if !res.Done {
		if err := b.bookings.Set(ctx, msg.Sender, *s); err != nil {
			return fmt.Errorf("save booking session: %w", err)
		}
	}
	return b.reply(ctx, msg.ChatID, res.Message)
}

func (b *Bot) continueBooking(ctx context.Context, msg Message, s *booking.Session, text string) error {
	res, err := b.booking.HandleInput(ctx, s, text)
	if err != nil {
		return err
	}

	if !res.Done {
		if err := b.bookings.Set(ctx, msg.Sender, *s); err != nil {
			return fmt.Errorf("save booking session: %w", err)
		}
		return b.reply(ctx, msg.ChatID, res.Message)
	}

	if err := b.bookings.Delete(ctx, msg.Sender); err != nil {
		return fmt.Errorf("drop booking session: %w", err)
	}
	if err := b.reply(ctx, msg.ChatID, res.Message); err != nil {
		return err
	}
	if res.Appointment != nil {
		b.bookingCommitted(ctx, res.Appointment)
	}
	return nil
}

// bookingCommitted records and announces a new appointment. The customer has
// already been answered, so failures here are only logged.
func (b *Bot) bookingCommitted(ctx context.Context, a *model.Appointment) {
	metrics.IncAppointmentCreated(string(a.Status))
	b.publish(ctx, events.AppointmentCreated, a.ID, a)

	channel := b.ManagerChannel()
	if channel == "" {
		return
	}
	if err := b.transport.SendText(ctx, channel, booking.FormatManagerNotice(a)); err != nil {
		b.logFrom(ctx).Error().Err(err).Str("appointment_id", a.ID).Msg("manager notice failed")
	}
}

func (b *Bot) sendMyAppointments(ctx context.Context, msg Message) error {
	if _, err := b.repo.GetClientByPhone(ctx, msg.Sender); errors.Is(err, model.ErrNotFound) {
		return b.reply(ctx, msg.ChatID, msgNoClient)
	} else if err != nil {
		return fmt.Errorf("get client: %w", err)
	}

	apts, err := b.repo.ListClientAppointments(ctx, msg.Sender, b.calc.Today())
	if err != nil {
		return fmt.Errorf("list client appointments: %w", err)
	}
	if len(apts) == 0 {
		return b.reply(ctx, msg.ChatID, msgNoAppointments)
	}
	return b.reply(ctx, msg.ChatID, formatMyAppointments(apts))
}
