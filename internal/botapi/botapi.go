// Package botapi narrows the Telegram client to the calls this bot makes,
// so handlers and the delivery path can be tested with in-memory doubles.
package botapi

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the subset of *tgbotapi.BotAPI the bot uses to emit messages
// and documents.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Compile-time check that the real client satisfies the interface.
var _ Sender = (*tgbotapi.BotAPI)(nil)
