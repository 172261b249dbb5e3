// Package markdown prepares user supplied text for Telegram's Markdown parse
// mode.
package markdown

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Escape makes s safe to place outside an entity. Inside *bold* or `code`
// Telegram offers no escaping, so names typed by customers never go there.
func Escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
