package app

import (
	"context"
	"time"

	"matchday_notification_bot/internal/domain/notification"
	"matchday_notification_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// Mailbox is the only way processes that do not own the Telegram session
// reach subscribers.
type Mailbox struct {
	queue   notification.Queue
	logger  *logrus.Entry
	metrics metrics.Recorder
	now     func() time.Time
}

func NewMailbox(queue notification.Queue, logger *logrus.Entry, rec metrics.Recorder) *Mailbox {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Mailbox{queue: queue, logger: logger, metrics: rec, now: time.Now}
}

// Enqueue appends an unsent message. It reports false on persistence failure
// and never returns the error itself.
func (m *Mailbox) Enqueue(ctx context.Context, subscriberID int64, text string) bool {
	msg := &notification.QueuedMessage{
		SubscriberID: subscriberID,
		Body:         text,
		CreatedAt:    m.now(),
	}
	if err := m.queue.Enqueue(ctx, msg); err != nil {
		m.metrics.RecordEnqueue(false)
		m.logger.WithError(err).WithField("subscriber_id", subscriberID).Error("Failed to enqueue message")
		return false
	}
	m.metrics.RecordEnqueue(true)
	m.logger.WithFields(logrus.Fields{
		"subscriber_id": subscriberID,
		"message_id":    msg.ID,
	}).Debug("Message enqueued")
	return true
}

// RequestCleanup asks the transport owner to run the blocked-user reconciler.
func (m *Mailbox) RequestCleanup(ctx context.Context) bool {
	return m.Enqueue(ctx, notification.AdminDestination, notification.AdminOperationPrefix+notification.OperationCleanupUsers)
}
