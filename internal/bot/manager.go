package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"barberbot/internal/events"
	"barberbot/internal/metrics"
	"barberbot/internal/model"
)

func (b *Bot) handleManagerCommand(ctx context.Context, chatID, command string) error {
	switch command {
	case "hoje":
		return b.sendDay(ctx, chatID, "AGENDA DE HOJE", b.calc.Today())
	case "amanhã", "amanha":
		// The second business day, which skips the day off.
		days := b.calc.BusinessDays(b.horizon).Take(2)
		if len(days) < 2 {
			return b.reply(ctx, chatID, formatAppointmentList("AGENDA DE AMANHÃ", nil))
		}
		return b.sendDay(ctx, chatID, "AGENDA DE AMANHÃ", days[1])
	case "semana":
		return b.sendWeek(ctx, chatID)
	case "agendamentos":
		apts, err := b.repo.ListUpcomingAppointments(ctx, b.calc.Today())
		if err != nil {
			return fmt.Errorf("list upcoming: %w", err)
		}
		return b.reply(ctx, chatID, formatAppointmentList("TODOS OS AGENDAMENTOS", apts))
	case "finanças", "financas":
		summary, err := b.finance.MonthSummary(ctx)
		if err != nil {
			return err
		}
		return b.reply(ctx, chatID, formatFinanceSummary(summary))
	case "clientes":
		clients, err := b.repo.ListClients(ctx)
		if err != nil {
			return fmt.Errorf("list clients: %w", err)
		}
		return b.reply(ctx, chatID, formatClients(clients))
	case "exportar":
		return b.sendExport(ctx, chatID)
	}

	if verb, short, ok := strings.Cut(command, " "); ok && (verb == "confirmar" || verb == "cancelar") {
		short = strings.TrimSpace(short)
		if fields := strings.Fields(short); len(fields) > 0 {
			short = fields[0]
		}
		status := model.StatusConfirmed
		if verb == "cancelar" {
			status = model.StatusCancelled
		}
		return b.decide(ctx, chatID, short, status)
	}

	return b.reply(ctx, chatID, msgManagerMenu)
}

func (b *Bot) sendDay(ctx context.Context, chatID, title, date string) error {
	apts, err := b.repo.ListAppointmentsByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("list appointments on %s: %w", date, err)
	}
	active := apts[:0:0]
	for _, a := range apts {
		if !a.IsCancelled() {
			active = append(active, a)
		}
	}
	return b.reply(ctx, chatID, formatAppointmentList(title, active))
}

func (b *Bot) sendWeek(ctx context.Context, chatID string) error {
	dates := b.calc.BusinessDays(b.horizon).Take(b.menuDays)
	if len(dates) == 0 {
		return b.reply(ctx, chatID, formatWeek(nil, nil))
	}
	apts, err := b.repo.ListAppointmentsBetween(ctx, dates[0], dates[len(dates)-1])
	if err != nil {
		return fmt.Errorf("list week: %w", err)
	}
	return b.reply(ctx, chatID, formatWeek(dates, apts))
}

// decide applies a manager confirm or cancel to the appointment whose id
// starts with the short id. Statuses the appointment cannot move to are
// refused, so a cancelled slot taken by someone else is never reclaimed.
func (b *Bot) decide(ctx context.Context, chatID, short string, status model.AppointmentStatus) error {
	if short == "" {
		return b.reply(ctx, chatID, msgManagerMenu)
	}
	if len(short) < model.ShortIDLength {
		return b.reply(ctx, chatID, formatNotFound(short))
	}

	a, err := b.repo.FindAppointmentByPrefix(ctx, model.ShortIDLookupKey(short))
	if errors.Is(err, model.ErrNotFound) {
		return b.reply(ctx, chatID, formatNotFound(short))
	}
	if err != nil {
		return fmt.Errorf("find appointment %s: %w", short, err)
	}
	if !a.Status.CanTransition(status) {
		return b.reply(ctx, chatID, formatAlreadyDecided(a))
	}

	now := b.calc.Now()
	err = b.repo.UpdateAppointmentStatus(ctx, a.ID, status, now)
	if errors.Is(err, model.ErrInvalidTransition) {
		// Changed between the lookup and the update.
		if fresh, ferr := b.repo.FindAppointmentByPrefix(ctx, a.ID); ferr == nil {
			a = fresh
		}
		return b.reply(ctx, chatID, formatAlreadyDecided(a))
	}
	if err != nil {
		return fmt.Errorf("update appointment %s: %w", a.ID, err)
	}
	metrics.IncManagerDecision(string(status))
	b.publish(ctx, events.AppointmentStatusChanged, a.ID, events.StatusChange{
		AppointmentID: a.ID,
		From:          string(a.Status),
		To:            string(status),
		At:            now,
	})

	customerText, managerText := formatCustomerConfirmed(a), formatManagerConfirmed(a)
	if status == model.StatusCancelled {
		customerText, managerText = formatCustomerCancelled(a), formatManagerCancelled(a)
	}
	if err := b.transport.SendText(ctx, a.ClientPhone, customerText); err != nil {
		b.logFrom(ctx).Error().Err(err).Str("appointment_id", a.ID).Msg("customer notice failed")
	}
	return b.reply(ctx, chatID, managerText)
}

func (b *Bot) sendExport(ctx context.Context, chatID string) error {
	if b.exporter == nil {
		return b.reply(ctx, chatID, "❌ Exportação não configurada.")
	}
	now := b.calc.Now()

	if docs, ok := b.transport.(DocumentSender); ok {
		name, data, err := b.exporter.Export(ctx, now)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		err = docs.SendDocument(ctx, chatID, name, data, "📊 Relatório mensal "+name)
		if !errors.Is(err, ErrDocumentsUnsupported) {
			return err
		}
	}

	path, err := b.exporter.ExportToFile(ctx, now, b.exportDir)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return b.reply(ctx, chatID, "📊 Planilha salva em: "+path)
}
