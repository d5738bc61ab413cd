package app

import (
	"context"
	"time"

	"matchday_notification_bot/internal/domain/notification"
	"matchday_notification_bot/internal/domain/telegram"
	"matchday_notification_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

const (
	DefaultIdleDelay  = time.Second
	DefaultErrorDelay = 5 * time.Second
	// DefaultMaxAttempts bounds retries of a message failing with transient errors.
	DefaultMaxAttempts = 10
)

// CleanupRunner runs the blocked-user reconciliation on operator request.
type CleanupRunner interface {
	Reconcile(ctx context.Context) (ReconcileReport, error)
}

// QueueDispatcher drains the message queue through the owned Telegram session.
// Only the process holding the session runs one.
type QueueDispatcher struct {
	queue       notification.Queue
	client      telegram.Client
	cleanup     CleanupRunner
	batchSize   int
	maxAttempts int
	idleDelay   time.Duration
	errorDelay  time.Duration
	logger      *logrus.Entry
	metrics     metrics.Recorder
	now         func() time.Time
}

func NewQueueDispatcher(queue notification.Queue, client telegram.Client, cleanup CleanupRunner, batchSize int, logger *logrus.Entry, rec metrics.Recorder) *QueueDispatcher {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &QueueDispatcher{
		queue:       queue,
		client:      client,
		cleanup:     cleanup,
		batchSize:   batchSize,
		maxAttempts: DefaultMaxAttempts,
		idleDelay:   DefaultIdleDelay,
		errorDelay:  DefaultErrorDelay,
		logger:      logger,
		metrics:     rec,
		now:         time.Now,
	}
}

// DrainResult describes one drain iteration.
type DrainResult struct {
	Fetched   int
	Delivered int
	Failed    int
	// Discarded counts messages dropped as undeliverable.
	Discarded int
}

type deliveryOutcome int

const (
	outcomeDelivered deliveryOutcome = iota
	outcomeFailed
	outcomeDiscarded
)

// Run drains until ctx is cancelled. A drain in progress is completed before
// Run returns.
func (d *QueueDispatcher) Run(ctx context.Context) {
	d.logger.WithField("batch_size", d.batchSize).Info("Queue dispatcher started")
	defer d.logger.Info("Queue dispatcher stopped")

	for ctx.Err() == nil {
		res, err := d.DrainOnce(context.WithoutCancel(ctx))

		var wait time.Duration
		switch {
		case err != nil:
			d.logger.WithError(err).Error("Queue drain failed")
			wait = d.errorDelay
		case res.Fetched == 0:
			wait = d.idleDelay
		case res.Delivered == 0 && res.Discarded == 0:
			// Everything in the batch failed; do not spin on it.
			wait = d.errorDelay
		default:
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// DrainOnce delivers up to one batch of pending messages. A transient failure
// leaves the message pending behind fresher ones; a permanent failure, or the
// last allowed attempt, discards it.
func (d *QueueDispatcher) DrainOnce(ctx context.Context) (DrainResult, error) {
	var res DrainResult

	pending, err := d.queue.Pending(ctx, d.batchSize)
	if err != nil {
		return res, err
	}
	res.Fetched = len(pending)

	for _, msg := range pending {
		switch d.deliver(ctx, msg) {
		case outcomeDelivered:
			res.Delivered++
		case outcomeDiscarded:
			res.Discarded++
		default:
			res.Failed++
		}
	}
	return res, nil
}

func (d *QueueDispatcher) deliver(ctx context.Context, msg *notification.QueuedMessage) deliveryOutcome {
	log := d.logger.WithFields(logrus.Fields{
		"message_id":    msg.ID,
		"subscriber_id": msg.SubscriberID,
	})

	if op, ok := msg.AdminOperation(); ok {
		return d.runAdminOperation(ctx, msg, op, log)
	}

	if err := d.client.SendMessage(ctx, msg.SubscriberID, msg.Body); err != nil {
		d.metrics.RecordDispatch(false)
		return d.handleSendFailure(ctx, msg, err, log)
	}
	d.metrics.RecordDispatch(true)

	if err := d.queue.MarkSent(ctx, msg.ID, d.now()); err != nil {
		// The message went out; it may be sent again on the next drain.
		log.WithError(err).Error("Failed to mark message sent")
		return outcomeFailed
	}
	log.Debug("Queued message delivered")
	return outcomeDelivered
}

func (d *QueueDispatcher) handleSendFailure(ctx context.Context, msg *notification.QueuedMessage, sendErr error, log *logrus.Entry) deliveryOutcome {
	log = log.WithError(sendErr)

	if telegram.IsUndeliverable(sendErr) {
		return d.discard(ctx, msg, log, "Recipient cannot receive messages; queued message discarded")
	}

	attempts, err := d.queue.MarkFailed(ctx, msg.ID)
	if err != nil {
		log.WithField("record_error", err.Error()).Error("Failed to record delivery attempt")
		return outcomeFailed
	}
	if attempts >= d.maxAttempts {
		return d.discard(ctx, msg, log.WithField("attempts", attempts), "Delivery attempts exhausted; queued message discarded")
	}
	log.WithField("attempts", attempts).Warn("Failed to send queued message; it will be retried")
	return outcomeFailed
}

func (d *QueueDispatcher) discard(ctx context.Context, msg *notification.QueuedMessage, log *logrus.Entry, reason string) deliveryOutcome {
	if err := d.queue.Discard(ctx, msg.ID); err != nil {
		log.WithField("discard_error", err.Error()).Error("Failed to discard undeliverable message")
		return outcomeFailed
	}
	log.Warn(reason)
	return outcomeDiscarded
}

// runAdminOperation executes an operator command once. The command is marked
// processed whatever its outcome, so a failing cleanup is not rerun in a loop.
func (d *QueueDispatcher) runAdminOperation(ctx context.Context, msg *notification.QueuedMessage, op string, log *logrus.Entry) deliveryOutcome {
	log = log.WithField("operation", op)

	switch op {
	case notification.OperationCleanupUsers:
		if d.cleanup == nil {
			log.Error("No reconciler configured; admin operation dropped")
			break
		}
		report, err := d.cleanup.Reconcile(ctx)
		if err != nil {
			log.WithError(err).Error("Admin cleanup failed; request it again once the cause is fixed")
			break
		}
		log.WithFields(logrus.Fields{
			"total":   report.Total,
			"removed": report.Removed,
			"errors":  len(report.Errors),
		}).Info("Admin cleanup executed")
	default:
		log.Warn("Unknown admin operation discarded")
	}

	if err := d.queue.MarkSent(ctx, msg.ID, d.now()); err != nil {
		log.WithError(err).Error("Failed to mark admin operation done")
		return outcomeFailed
	}
	return outcomeDelivered
}
