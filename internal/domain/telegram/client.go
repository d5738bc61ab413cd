package telegram

import (
	"context"
	"strings"
)

// Client defines an interface for sending messages via a Telegram bot.
// This helps in decoupling the application logic from the specific bot library.
type Client interface {
	SendMessage(ctx context.Context, recipientChatID int64, text string) error
}

// Prober checks whether a chat still accepts messages from the bot without
// leaving a visible trace.
type Prober interface {
	Probe(ctx context.Context, recipientChatID int64) error
}

// IsBlockedByUser reports whether a transport error means the user blocked the bot.
func IsBlockedByUser(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "forbidden") && strings.Contains(msg, "blocked")
}

// IsUndeliverable reports whether a send error is permanent for that chat,
// so retrying the same message can never succeed.
func IsUndeliverable(err error) bool {
	if err == nil {
		return false
	}
	if IsBlockedByUser(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, reason := range undeliverableReasons {
		if strings.Contains(msg, reason) {
			return true
		}
	}
	return false
}

var undeliverableReasons = []string{
	"chat not found",
	"user is deactivated",
	"bot was kicked",
	"bot can't initiate conversation",
}
