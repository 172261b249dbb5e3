// Package bot routes chat messages to the booking and financial flows and
// serves the manager command set.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"barberbot/internal/audit"
	"barberbot/internal/booking"
	"barberbot/internal/db"
	"barberbot/internal/events"
	"barberbot/internal/finance"
	"barberbot/internal/model"
	"barberbot/internal/session"
	"barberbot/internal/slots"
)

// Repository is the persistence the router needs beyond the flows.
type Repository interface {
	booking.Store
	finance.Store

	ListAppointmentsBetween(ctx context.Context, from, to string) ([]model.Appointment, error)
	ListUpcomingAppointments(ctx context.Context, today string) ([]model.Appointment, error)
	ListClientAppointments(ctx context.Context, phone, today string) ([]model.Appointment, error)
	FindAppointmentByPrefix(ctx context.Context, prefix string) (*model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id string, status model.AppointmentStatus, at time.Time) error
	ListClients(ctx context.Context) ([]model.Client, error)
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

// Deps wires a Bot. Bus and Exporter are optional.
type Deps struct {
	Repo      Repository
	Transport Transport
	Calc      *slots.Calculator
	Bookings  session.Store[booking.Session]
	Finances  session.Store[finance.Session]
	Bus       *events.Bus
	Exporter  *audit.Exporter

	OwnerPhone  string
	BotName     string
	MenuDays    int
	HorizonDays int
	ExportDir   string
}

// Bot is the single consumer of inbound messages.
type Bot struct {
	repo      Repository
	transport Transport
	calc      *slots.Calculator
	bookings  session.Store[booking.Session]
	finances  session.Store[finance.Session]
	bus       *events.Bus
	exporter  *audit.Exporter

	booking *booking.Handler
	finance *finance.Handler

	owner     string
	botName   string
	menuDays  int
	horizon   int
	exportDir string

	mu             sync.RWMutex
	managerChannel string

	logger zerolog.Logger
}

// New validates deps and builds a Bot.
func New(deps Deps, logger *zerolog.Logger) (*Bot, error) {
	switch {
	case deps.Repo == nil:
		return nil, errors.New("bot: repository is nil")
	case deps.Transport == nil:
		return nil, errors.New("bot: transport is nil")
	case deps.Calc == nil:
		return nil, errors.New("bot: calculator is nil")
	case deps.Bookings == nil || deps.Finances == nil:
		return nil, errors.New("bot: session stores are nil")
	}
	if deps.MenuDays <= 0 {
		deps.MenuDays = booking.DefaultMenuDays
	}
	if deps.HorizonDays <= 0 {
		deps.HorizonDays = booking.DefaultHorizon
	}
	if deps.ExportDir == "" {
		deps.ExportDir = "exports"
	}

	return &Bot{
		repo:      deps.Repo,
		transport: deps.Transport,
		calc:      deps.Calc,
		bookings:  deps.Bookings,
		finances:  deps.Finances,
		bus:       deps.Bus,
		exporter:  deps.Exporter,
		booking:   booking.NewHandler(deps.Repo, deps.Calc, deps.MenuDays),
		finance:   finance.NewHandler(deps.Repo, deps.Calc.Location(), deps.Calc.Now),
		owner:     model.NormalizePhone(deps.OwnerPhone),
		botName:   deps.BotName,
		menuDays:  deps.MenuDays,
		horizon:   deps.HorizonDays,
		exportDir: deps.ExportDir,
		logger:    logger.With().Str("component", "bot").Logger(),
	}, nil
}

// Run handles messages from in one at a time until ctx ends or in closes.
func (b *Bot) Run(ctx context.Context, in <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			l := b.logger.With().
				Str("request_id", uuid.New().String()).
				Str("chat_id", msg.ChatID).
				Logger()
			if err := b.HandleMessage(l.WithContext(ctx), msg); err != nil {
				l.Error().Err(err).Msg("message handling failed")
			}
		}
	}
}

// SetManagerChannel makes id the manager channel.
func (b *Bot) SetManagerChannel(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.managerChannel = id
}

// ManagerChannel returns the current manager channel, or "".
func (b *Bot) ManagerChannel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.managerChannel
}

// RestoreManagerChannel loads the persisted manager channel, if any.
func (b *Bot) RestoreManagerChannel(ctx context.Context) error {
	id, err := b.repo.GetConfig(ctx, db.ManagerChannelKey)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load manager channel: %w", err)
	}
	b.SetManagerChannel(id)
	b.logger.Info().Str("channel", id).Msg("manager channel restored")
	return nil
}

// OnConnected greets the manager channel once the transport is up.
func (b *Bot) OnConnected(ctx context.Context) {
	channel := b.ManagerChannel()
	if channel == "" {
		b.logger.Info().Msg("no manager channel; send !instalar in a group to set one")
		return
	}
	if err := b.transport.SendText(ctx, channel, FormatWelcome(b.botName)); err != nil {
		b.logger.Error().Err(err).Str("channel", channel).Msg("welcome message failed")
	}
}

func (b *Bot) isOwner(sender string) bool {
	return b.owner != "" && model.NormalizePhone(sender) == b.owner
}

func (b *Bot) reply(ctx context.Context, to, text string) error {
	if err := b.transport.SendText(ctx, to, text); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func (b *Bot) publish(ctx context.Context, eventType, key string, payload any) {
	if b.bus == nil {
		return
	}
	ev, err := events.NewEvent(eventType, key, payload)
	if err == nil {
		err = b.bus.Publish(ev)
	}
	if err != nil {
		b.logFrom(ctx).Warn().Err(err).Str("event_type", eventType).Str("key", key).Msg("event publish failed")
	}
}

// logFrom returns the request logger carried by ctx, or the bot logger.
func (b *Bot) logFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &b.logger
}

func normalize(text string) (string, string) {
	text = strings.TrimSpace(text)
	return text, strings.ToLower(text)
}
