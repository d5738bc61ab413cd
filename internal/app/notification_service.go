// internal/app/notification_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"matchday_notification_bot/internal/domain/match"
	"matchday_notification_bot/internal/domain/notification"
	"matchday_notification_bot/internal/domain/subscriber"
	"matchday_notification_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// NotificationService defines the operations the window scheduler drives.
type NotificationService interface {
	// RanOn reports whether a productive batch already ran on the local day of now.
	RanOn(ctx context.Context, now time.Time) (bool, error)
	// RunBatch evaluates every subscriber once and enqueues at most one
	// automatic notification per subscriber per local day.
	RunBatch(ctx context.Context, now time.Time) (BatchReport, error)
}

// BatchReport counts the outcome of one sweep over the subscribers.
type BatchReport struct {
	Total     int
	Sent      int
	NoMatches int
	Skipped   int
	Errors    int
}

// Productive reports whether the batch reached a definite answer for anyone.
// Fetch failures alone leave the day open for a retry.
func (r BatchReport) Productive() bool {
	return r.Sent+r.NoMatches > 0
}

// NotificationServiceImpl implements the NotificationService interface.
type NotificationServiceImpl struct {
	subscriberRepo subscriber.Repository
	ledger         notification.Ledger
	gate           *AccessGate
	lookup         match.Lookup
	mailbox        *Mailbox
	loc            *time.Location
	logger         *logrus.Entry
	metrics        metrics.Recorder
}

func NewNotificationServiceImpl(
	sr subscriber.Repository,
	ledger notification.Ledger,
	gate *AccessGate,
	lookup match.Lookup,
	mailbox *Mailbox,
	loc *time.Location,
	logger *logrus.Entry,
	rec metrics.Recorder,
) *NotificationServiceImpl {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &NotificationServiceImpl{
		subscriberRepo: sr,
		ledger:         ledger,
		gate:           gate,
		lookup:         lookup,
		mailbox:        mailbox,
		loc:            loc,
		logger:         logger,
		metrics:        rec,
	}
}

func (s *NotificationServiceImpl) RanOn(ctx context.Context, now time.Time) (bool, error) {
	last, ok, err := s.ledger.LastRun(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read last batch run: %w", err)
	}
	if !ok {
		return false, nil
	}
	return sameDay(last, now, s.loc), nil
}

func (s *NotificationServiceImpl) RunBatch(ctx context.Context, now time.Time) (BatchReport, error) {
	var report BatchReport

	subscribers, err := s.subscriberRepo.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list subscribers: %w", err)
	}
	report.Total = len(subscribers)
	s.logger.WithField("subscribers", report.Total).Info("Starting notification batch")

	// The upstream window is shared by every city, so one failed fetch
	// answers the rest of this sweep. Nothing is cached beyond it.
	var fetchErr error
	for _, sub := range subscribers {
		s.notifyOne(ctx, sub, now, &report, &fetchErr)
	}

	s.metrics.RecordBatch(report.Sent, report.NoMatches, report.Errors)
	fields := logrus.Fields{
		"total":      report.Total,
		"sent":       report.Sent,
		"no_matches": report.NoMatches,
		"skipped":    report.Skipped,
		"errors":     report.Errors,
	}

	if !report.Productive() {
		s.logger.WithFields(fields).Warn("Batch finished without a definite outcome; it will be retried")
		return report, nil
	}
	if err := s.ledger.MarkRun(ctx, now); err != nil {
		return report, fmt.Errorf("failed to record batch run: %w", err)
	}
	s.logger.WithFields(fields).Info("Notification batch completed")
	return report, nil
}

func (s *NotificationServiceImpl) notifyOne(ctx context.Context, sub *subscriber.Subscriber, now time.Time, report *BatchReport, fetchErr *error) {
	log := s.logger.WithFields(logrus.Fields{
		"subscriber_id": sub.ID,
		"city":          sub.City,
	})

	if sub.IsBlocked {
		report.Skipped++
		return
	}
	authorized, err := s.gate.IsAuthorized(ctx, sub.ID)
	if err != nil {
		log.WithError(err).Error("Access check failed")
		report.Errors++
		return
	}
	if !authorized {
		report.Skipped++
		return
	}
	if sub.NotifiedOn(now, s.loc) {
		report.Skipped++
		return
	}

	if *fetchErr != nil {
		report.Errors++
		return
	}

	res := s.lookup.MatchesForCity(ctx, sub.City, now)
	switch res.Outcome {
	case match.FetchFailed:
		log.WithError(res.Err).Warn("Match lookup failed; remaining lookups of this batch are skipped")
		*fetchErr = res.Err
		if *fetchErr == nil {
			*fetchErr = errLookupFailed
		}
		report.Errors++
	case match.NoMatches:
		report.NoMatches++
	case match.Found:
		if !s.mailbox.Enqueue(ctx, sub.ID, FormatMatches(res.Matches, s.loc)) {
			report.Errors++
			return
		}
		report.Sent++
		if err := s.subscriberRepo.UpdateLastAutoNotified(ctx, sub.ID, now); err != nil {
			log.WithError(err).Error("Failed to record automatic notification")
		}
	}
}

var errLookupFailed = fmt.Errorf("match lookup failed")

func sameDay(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
