package scheduler

import (
	"context"
	"fmt"
	"time"

	"matchday_notification_bot/internal/domain/notification"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// MaintenanceScheduler runs housekeeping jobs on cron specs.
type MaintenanceScheduler struct {
	cronEngine     *cron.Cron
	queue          notification.Queue
	logger         *logrus.Entry
	cronSpecPrune  string
	queueRetention time.Duration
}

func NewMaintenanceScheduler(
	queue notification.Queue,
	logger *logrus.Entry,
	loc *time.Location,
	cronSpecPrune string, // e.g., "0 4 * * *" (04:00 daily)
	retentionDays int,
) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cronEngine:     cron.New(cron.WithLocation(loc)),
		queue:          queue,
		logger:         logger,
		cronSpecPrune:  cronSpecPrune,
		queueRetention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// Start registers the jobs and starts the cron engine. Pruning is disabled
// when the retention is not positive.
func (s *MaintenanceScheduler) Start() error {
	if s.queueRetention > 0 {
		_, err := s.cronEngine.AddFunc(s.cronSpecPrune, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			s.PruneQueue(ctx, time.Now())
		})
		if err != nil {
			return fmt.Errorf("could not add queue prune cron job: %w", err)
		}
	}

	s.cronEngine.Start()
	s.logger.WithField("jobs", len(s.cronEngine.Entries())).Info("Maintenance scheduler started")
	return nil
}

// PruneQueue deletes sent messages older than the retention period.
func (s *MaintenanceScheduler) PruneQueue(ctx context.Context, now time.Time) {
	cutoff := now.Add(-s.queueRetention)
	n, err := s.queue.PruneSent(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Failed to prune sent messages")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"deleted": n,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("Pruned sent messages")
}

func (s *MaintenanceScheduler) Stop() {
	ctx := s.cronEngine.Stop() // Waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Maintenance scheduler stopped")
}
