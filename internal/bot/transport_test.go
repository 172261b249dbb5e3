package bot

import (
	"context"
	"errors"
	"io"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) SendText(ctx context.Context, to, text string) error {
	return m.Called(ctx, to, text).Error(0)
}

func TestRateLimitedTransport(t *testing.T) {
	next := new(mockTransport)
	ctx := context.Background()
	tr := NewRateLimitedTransport(next, 1000, 2)

	next.On("SendText", ctx, "1", "hello").Return(nil).Once()
	next.On("SendText", ctx, "1", "boom").Return(errors.New("down")).Once()

	require.NoError(t, tr.SendText(ctx, "1", "hello"))
	assert.Error(t, tr.SendText(ctx, "1", "boom"))
	next.AssertExpectations(t)

	assert.ErrorIs(t, tr.SendDocument(ctx, "1", "a.xlsx", nil, ""), ErrDocumentsUnsupported)
}

func TestRateLimitedTransport_CanceledContext(t *testing.T) {
	next := new(mockTransport)
	tr := NewRateLimitedTransport(next, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tr.SendText(ctx, "1", "a"), context.Canceled)
	next.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

type fakeTelegram struct {
	sent    []tgbotapi.Chattable
	errs    []error // returned by successive Send calls
	updates chan tgbotapi.Update
	stopped bool
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return tgbotapi.Message{}, err
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeTelegram) StopReceivingUpdates() { f.stopped = true }

func (f *fakeTelegram) SelfUser() tgbotapi.User { return tgbotapi.User{UserName: "barber_bot"} }

func TestTelegramTransport_Send(t *testing.T) {
	logger := zerolog.New(io.Discard)
	tg := &fakeTelegram{}
	tr := newTelegramTransport(tg, &logger)

	require.NoError(t, tr.SendText(context.Background(), "42", "*oi*"))
	require.NoError(t, tr.SendDocument(context.Background(), "-42", "Março_2026.xlsx", []byte("x"), "cap"))
	assert.Error(t, tr.SendText(context.Background(), "not-a-chat", "x"))

	require.Len(t, tg.sent, 2)
	msg, ok := tg.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)

	doc, ok := tg.sent[1].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-42), doc.ChatID)
	assert.Equal(t, "cap", doc.Caption)
}

func TestTelegramTransport_PlainTextFallback(t *testing.T) {
	logger := zerolog.New(io.Discard)
	parseErr := &tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities: Can't find end of the entity starting at byte offset 12"}

	tg := &fakeTelegram{errs: []error{parseErr}}
	tr := newTelegramTransport(tg, &logger)
	require.NoError(t, tr.SendText(context.Background(), "42", "👤 Ana_Maria"))
	require.Len(t, tg.sent, 2)
	first := tg.sent[0].(tgbotapi.MessageConfig)
	retry := tg.sent[1].(tgbotapi.MessageConfig)
	assert.Equal(t, tgbotapi.ModeMarkdown, first.ParseMode)
	assert.Empty(t, retry.ParseMode)
	assert.Equal(t, "👤 Ana_Maria", retry.Text)

	tg = &fakeTelegram{errs: []error{&tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}}}
	tr = newTelegramTransport(tg, &logger)
	assert.Error(t, tr.SendText(context.Background(), "42", "oi"))
	assert.Len(t, tg.sent, 1)
}

func TestTelegramTransport_Listen(t *testing.T) {
	logger := zerolog.New(io.Discard)
	tg := &fakeTelegram{updates: make(chan tgbotapi.Update, 3)}
	tr := newTelegramTransport(tg, &logger)

	tg.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1, Text: "oi",
		From: &tgbotapi.User{ID: 7}, Chat: &tgbotapi.Chat{ID: 7, Type: "private"},
	}}
	tg.updates <- tgbotapi.Update{} // no message
	tg.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 2, Text: "hoje",
		From: &tgbotapi.User{ID: 7}, Chat: &tgbotapi.Chat{ID: -99, Type: "supergroup"},
	}}
	close(tg.updates)

	out := make(chan Message, 3)
	connected := false
	tr.Listen(context.Background(), out, func(context.Context) { connected = true })
	close(out)

	var got []Message
	for m := range out {
		got = append(got, m)
	}
	assert.True(t, connected)
	assert.True(t, tg.stopped)
	require.Len(t, got, 2)
	assert.Equal(t, Message{ID: "1", ChatID: "7", Sender: "7", Text: "oi"}, got[0])
	assert.False(t, got[0].IsGroup())
	assert.Equal(t, "-99", got[1].GroupID)
	assert.True(t, got[1].IsGroup())
}
