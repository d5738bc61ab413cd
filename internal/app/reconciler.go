package app

import (
	"context"
	"fmt"

	"matchday_notification_bot/internal/domain/notification"
	"matchday_notification_bot/internal/domain/subscriber"
	"matchday_notification_bot/internal/domain/telegram"
	"matchday_notification_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// ReconcileReport summarizes one blocked-user scan.
type ReconcileReport struct {
	Total     int      `json:"total"`
	Removed   int      `json:"removed"`
	Discarded int      `json:"discarded"` // pending messages dropped for removed subscribers
	Errors    []string `json:"errors"`
}

// Reconciler removes subscribers who blocked the bot.
type Reconciler struct {
	subscriberRepo subscriber.Repository
	queue          notification.Queue
	prober         telegram.Prober
	logger         *logrus.Entry
	metrics        metrics.Recorder
}

func NewReconciler(sr subscriber.Repository, queue notification.Queue, prober telegram.Prober, logger *logrus.Entry, rec metrics.Recorder) *Reconciler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Reconciler{subscriberRepo: sr, queue: queue, prober: prober, logger: logger, metrics: rec}
}

// Reconcile probes every subscriber and deletes, in one transaction at the
// end, those whose probe was rejected because they blocked the bot. Any other
// probe failure keeps the subscriber and is reported in Errors. Messages still
// queued for removed subscribers are dropped afterwards.
func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileReport, error) {
	report := ReconcileReport{Errors: []string{}}

	subscribers, err := r.subscriberRepo.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list subscribers: %w", err)
	}
	report.Total = len(subscribers)
	r.logger.WithField("subscribers", report.Total).Info("Starting blocked-user reconciliation")

	var toRemove []int64
	for _, sub := range subscribers {
		err := r.prober.Probe(ctx, sub.ID)
		if err == nil {
			continue
		}
		if telegram.IsBlockedByUser(err) {
			r.logger.WithField("subscriber_id", sub.ID).Info("Subscriber blocked the bot; scheduling removal")
			toRemove = append(toRemove, sub.ID)
			continue
		}
		r.logger.WithError(err).WithField("subscriber_id", sub.ID).Warn("Probe failed; subscriber kept")
		report.Errors = append(report.Errors, fmt.Sprintf("subscriber %d: %v", sub.ID, err))
	}

	removed, err := r.subscriberRepo.DeleteMany(ctx, toRemove)
	if err != nil {
		r.metrics.RecordReconcile(0, len(report.Errors))
		return report, fmt.Errorf("failed to delete blocked subscribers: %w", err)
	}
	report.Removed = int(removed)

	discarded, err := r.queue.DiscardPendingFor(ctx, toRemove)
	if err != nil {
		r.logger.WithError(err).Error("Failed to drop queued messages of removed subscribers")
		report.Errors = append(report.Errors, fmt.Sprintf("queue: %v", err))
	}
	report.Discarded = int(discarded)
	r.metrics.RecordReconcile(report.Removed, len(report.Errors))

	r.logger.WithFields(logrus.Fields{
		"total":     report.Total,
		"removed":   report.Removed,
		"discarded": report.Discarded,
		"errors":    len(report.Errors),
	}).Info("Blocked-user reconciliation completed")
	return report, nil
}
