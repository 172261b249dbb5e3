package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) StopReceivingUpdates() {
	c.api.StopReceivingUpdates()
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// TelegramTransport moves messages between Telegram and the bot. The sender
// identity is the Telegram user id; private chat ids equal user ids, so a
// client's stored identity is also where notices for them go.
type TelegramTransport struct {
	tg     telegramClient
	logger zerolog.Logger
}

// NewTelegramTransport authorizes token against the Bot API.
func NewTelegramTransport(token string, debug bool, logger *zerolog.Logger) (*TelegramTransport, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	api.Debug = debug
	return newTelegramTransport(&realTelegramClient{api: api}, logger), nil
}

func newTelegramTransport(tg telegramClient, logger *zerolog.Logger) *TelegramTransport {
	return &TelegramTransport{
		tg:     tg,
		logger: logger.With().Str("component", "telegram").Logger(),
	}
}

func (t *TelegramTransport) SendText(_ context.Context, to, text string) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("chat id %q: %w", to, err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err = t.tg.Send(msg)
	if isParseError(err) {
		t.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("markdown rejected, resending as plain text")
		msg.ParseMode = ""
		_, err = t.tg.Send(msg)
	}
	if err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

// isParseError reports whether Telegram refused a message for its markup.
func isParseError(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "can't parse entities")
}

func (t *TelegramTransport) SendDocument(_ context.Context, to, name string, data []byte, caption string) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("chat id %q: %w", to, err)
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	if _, err := t.tg.Send(doc); err != nil {
		return fmt.Errorf("send document to %d: %w", chatID, err)
	}
	return nil
}

// Listen long-polls updates and forwards text messages to out until ctx ends.
// onConnected runs once polling has started.
func (t *TelegramTransport) Listen(ctx context.Context, out chan<- Message, onConnected func(context.Context)) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.tg.GetUpdatesChan(u)
	defer t.tg.StopReceivingUpdates()

	t.logger.Info().Str("username", t.tg.SelfUser().UserName).Msg("telegram connected")
	if onConnected != nil {
		onConnected(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("telegram disconnected")
			return
		case update, ok := <-updates:
			if !ok {
				t.logger.Warn().Msg("telegram update channel closed")
				return
			}
			msg, ok := toMessage(update)
			if !ok {
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func toMessage(update tgbotapi.Update) (Message, bool) {
	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil || m.Text == "" {
		return Message{}, false
	}
	msg := Message{
		ID:     strconv.Itoa(m.MessageID),
		ChatID: strconv.FormatInt(m.Chat.ID, 10),
		Sender: strconv.FormatInt(m.From.ID, 10),
		Text:   m.Text,
	}
	if m.Chat.IsGroup() || m.Chat.IsSuperGroup() {
		msg.GroupID = msg.ChatID
	}
	return msg, true
}
