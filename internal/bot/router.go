package bot

import (
	"context"
	"errors"
	"fmt"

	"barberbot/internal/db"
	"barberbot/internal/events"
	"barberbot/internal/finance"
	"barberbot/internal/metrics"
	"barberbot/internal/model"
	"barberbot/internal/session"
)

const installCommand = "!instalar"

var (
	financeReportTokens = map[string]bool{"finanças": true, "financas": true, "extrato": true}
	incomeTokens        = map[string]bool{"entrada": true, "receita": true}
	expenseTokens       = map[string]bool{"saída": true, "saida": true, "despesa": true}
	entryTokens         = map[string]bool{"lançamento": true, "lancamento": true}
)

// HandleMessage routes one inbound message. Persistence and transport
// failures are returned and the sender gets no reply for this message.
func (b *Bot) HandleMessage(ctx context.Context, msg Message) error {
	text, command := normalize(msg.Text)
	owner := b.isOwner(msg.Sender)

	b.logFrom(ctx).Debug().
		Str("sender", msg.Sender).
		Str("group", msg.GroupID).
		Str("text", text).
		Msg("handling message")

	if msg.IsGroup() {
		if command == installCommand && owner {
			metrics.IncMessage("install")
			return b.installManagerChannel(ctx, msg.GroupID)
		}
		if msg.GroupID != b.ManagerChannel() || !owner {
			return nil
		}
		metrics.IncMessage("manager")
		return b.handleManagerCommand(ctx, msg.ChatID, command)
	}

	if owner {
		handled, err := b.handleFinancial(ctx, msg, text, command)
		if handled || err != nil {
			metrics.IncMessage("financial")
			return err
		}
	}
	return b.handleCustomer(ctx, msg, text, command)
}

func (b *Bot) installManagerChannel(ctx context.Context, groupID string) error {
	if err := b.repo.SetConfig(ctx, db.ManagerChannelKey, groupID); err != nil {
		return fmt.Errorf("persist manager channel: %w", err)
	}
	b.SetManagerChannel(groupID)
	b.logFrom(ctx).Info().Str("channel", groupID).Msg("manager channel installed")
	b.publish(ctx, events.ManagerChannelInstalled, groupID, map[string]string{"channel": groupID})
	return b.reply(ctx, groupID, msgInstalled)
}

// handleFinancial serves the owner's financial flow. It reports false when
// the message is not part of it.
func (b *Bot) handleFinancial(ctx context.Context, msg Message, text, command string) (bool, error) {
	key := msg.Sender

	switch {
	case financeReportTokens[command]:
		report, err := b.finance.Report(ctx)
		if err != nil {
			return true, err
		}
		return true, b.reply(ctx, msg.ChatID, report)
	case incomeTokens[command]:
		s, res := b.finance.Start(key, model.RecordIncome)
		return true, b.startFinancial(ctx, msg.ChatID, s, res)
	case expenseTokens[command]:
		s, res := b.finance.Start(key, model.RecordExpense)
		return true, b.startFinancial(ctx, msg.ChatID, s, res)
	case entryTokens[command]:
		s, res := b.finance.StartWithTypeChoice(key)
		return true, b.startFinancial(ctx, msg.ChatID, s, res)
	}

	s, err := b.finances.Get(ctx, key)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return false, nil
	case errors.Is(err, session.ErrExpired):
		metrics.AddSessionsExpired("financial", 1)
		return true, b.reply(ctx, msg.ChatID, finance.MsgExpired)
	case err != nil:
		return true, fmt.Errorf("load financial session: %w", err)
	}

	res, err := b.finance.HandleInput(ctx, &s, text)
	if err != nil {
		return true, err
	}
	if res.Done {
		if err := b.finances.Delete(ctx, key); err != nil {
			return true, fmt.Errorf("drop financial session: %w", err)
		}
		if res.Record != nil {
			metrics.IncFinancialRecord(string(res.Record.Type))
			b.publish(ctx, events.FinancialRecorded, res.Record.ID, res.Record)
		}
	} else if err := b.finances.Set(ctx, key, s); err != nil {
		return true, fmt.Errorf("save financial session: %w", err)
	}
	return true, b.reply(ctx, msg.ChatID, res.Message)
}

// startFinancial replaces any entry in progress, so the new one gets a fresh
// expiry window.
func (b *Bot) startFinancial(ctx context.Context, chatID string, s *finance.Session, res finance.Result) error {
	if err := b.finances.Delete(ctx, s.Phone); err != nil {
		return fmt.Errorf("drop financial session: %w", err)
	}
	if err := b.finances.Set(ctx, s.Phone, *s); err != nil {
		return fmt.Errorf("save financial session: %w", err)
	}
	return b.reply(ctx, chatID, res.Message)
}
