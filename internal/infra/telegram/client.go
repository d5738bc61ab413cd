// internal/infra/telegram/client.go
package telegram

import (
	"context"

	domainTelegram "matchday_notification_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// probeText is what a probe sends before deleting it again.
const probeText = "."

// messenger is the subset of *telebot.Bot the adapter uses.
type messenger interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Delete(msg telebot.Editable) error
}

// TelebotAdapter implements the Client and Prober interfaces using the gopkg.in/telebot.v3 library.
// Per-call timeouts come from the bot's HTTP client.
type TelebotAdapter struct {
	bot    messenger
	logger *logrus.Entry
}

var (
	_ domainTelegram.Client = (*TelebotAdapter)(nil)
	_ domainTelegram.Prober = (*TelebotAdapter)(nil)
)

func NewTelebotAdapter(b messenger, logger *logrus.Entry) *TelebotAdapter {
	return &TelebotAdapter{bot: b, logger: logger}
}

// SendMessage sends a plain text message to the specified chat.
func (tba *TelebotAdapter) SendMessage(ctx context.Context, recipientChatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	recipient := &telebot.User{ID: recipientChatID}
	_, err := tba.bot.Send(recipient, text, &telebot.SendOptions{DisableWebPagePreview: true})
	return err
}

// Probe sends a silent message and deletes it right away. The send error is
// returned unchanged so callers can classify it.
func (tba *TelebotAdapter) Probe(ctx context.Context, recipientChatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	recipient := &telebot.User{ID: recipientChatID}
	msg, err := tba.bot.Send(recipient, probeText, &telebot.SendOptions{DisableNotification: true})
	if err != nil {
		return err
	}
	if err := tba.bot.Delete(msg); err != nil {
		tba.logger.WithError(err).WithField("chat_id", recipientChatID).Warn("Failed to delete probe message")
	}
	return nil
}
