package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrSessionBusy means another process is already polling updates for this bot.
var ErrSessionBusy = errors.New("telegram session is held by another process")

const (
	DefaultSessionAttempts = 3
	DefaultSessionDelay    = 5 * time.Second
)

// Rawer issues raw Bot API calls. *telebot.Bot implements it.
type Rawer interface {
	Raw(method string, payload interface{}) ([]byte, error)
}

// EnsureExclusiveSession checks that no other instance holds the long-poll
// session before this process starts polling. It retries a bounded number of
// times because a previous instance may still be shutting down.
func EnsureExclusiveSession(ctx context.Context, api Rawer, attempts int, delay time.Duration, logger *logrus.Entry) error {
	if attempts <= 0 {
		attempts = DefaultSessionAttempts
	}

	// No offset: nothing gets acknowledged, pending updates stay for the poller.
	payload := map[string]interface{}{"limit": 1, "timeout": 0}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		_, err := api.Raw("getUpdates", payload)
		if err == nil {
			return nil
		}

		if isConflict(err) {
			lastErr = fmt.Errorf("%w: %v", ErrSessionBusy, err)
		} else {
			lastErr = fmt.Errorf("session check failed: %w", err)
		}
		logger.WithError(err).WithFields(logrus.Fields{
			"attempt":  attempt,
			"attempts": attempts,
		}).Warn("Telegram session not available")

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func isConflict(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "conflict") || strings.Contains(msg, "(409)")
}
