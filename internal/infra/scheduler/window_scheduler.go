package scheduler

import (
	"context"
	"sync"
	"time"

	"matchday_notification_bot/internal/app"

	"github.com/sirupsen/logrus"
)

// DefaultRetryInterval is how often the window is re-polled while it is open.
const DefaultRetryInterval = 15 * time.Minute

// State is the position of the window scheduler in its loop.
type State string

const (
	StateIdle           State = "IDLE"
	StateCheckingWindow State = "CHECKING_WINDOW"
	StateRunningBatch   State = "RUNNING_BATCH"
	StateSleeping       State = "SLEEPING"
)

// WindowConfig is the daily notification window in local time: [StartHour, EndHour).
type WindowConfig struct {
	Location      *time.Location
	StartHour     int
	EndHour       int
	RetryInterval time.Duration
}

// NotificationScheduler runs the daily batch once per local day inside the
// notification window. It only enqueues; delivery belongs to the dispatcher.
type NotificationScheduler struct {
	notifService app.NotificationService
	cfg          WindowConfig
	logger       *logrus.Entry
	now          func() time.Time

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

func NewNotificationScheduler(notifService app.NotificationService, cfg WindowConfig, logger *logrus.Entry) *NotificationScheduler {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &NotificationScheduler{
		notifService: notifService,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
		state:        StateIdle,
	}
}

func (s *NotificationScheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *NotificationScheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Start launches the loop in its own goroutine. The first window check
// happens immediately.
func (s *NotificationScheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"timezone":   s.cfg.Location.String(),
		"start_hour": s.cfg.StartHour,
		"end_hour":   s.cfg.EndHour,
	}).Info("Starting notification scheduler...")

	go func() {
		defer close(done)
		s.Run(ctx)
	}()
}

// Stop prevents new iterations and waits for a running batch to complete.
func (s *NotificationScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	s.logger.Info("Stopping notification scheduler...")
	cancel()
	<-done
	s.logger.Info("Notification scheduler gracefully stopped.")
}

// Run loops until ctx is cancelled.
func (s *NotificationScheduler) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	defer s.setState(StateIdle)

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// A batch that has started is allowed to finish on shutdown.
		wait := s.Tick(context.WithoutCancel(ctx))
		s.setState(StateSleeping)
		s.logger.WithField("sleep", wait.Round(time.Second).String()).Debug("Scheduler sleeping")
		timer.Reset(wait)
	}
}

// Tick performs one window check, runs the batch when due, and returns how
// long to sleep before the next check.
func (s *NotificationScheduler) Tick(ctx context.Context) time.Duration {
	s.setState(StateCheckingWindow)
	now := s.now().In(s.cfg.Location)

	if !s.inWindow(now) {
		return s.untilNextStart(now)
	}

	ran, err := s.notifService.RanOn(ctx, now)
	if err != nil {
		s.logger.WithError(err).Error("Failed to read scheduler state")
		return s.cfg.RetryInterval
	}
	if ran {
		return s.cfg.RetryInterval
	}

	s.setState(StateRunningBatch)
	report, err := s.notifService.RunBatch(ctx, now)
	if err != nil {
		s.logger.WithError(err).Error("Notification batch failed")
	} else {
		s.logger.WithFields(logrus.Fields{
			"sent":       report.Sent,
			"no_matches": report.NoMatches,
			"errors":     report.Errors,
		}).Info("Notification batch finished")
	}

	after := s.now().In(s.cfg.Location)
	if !s.inWindow(after) {
		return s.untilNextStart(after)
	}
	return s.cfg.RetryInterval
}

func (s *NotificationScheduler) inWindow(t time.Time) bool {
	h := t.Hour()
	return h >= s.cfg.StartHour && h < s.cfg.EndHour
}

// untilNextStart returns the time to the next StartHour:00 in local time,
// today when it is still ahead, otherwise tomorrow.
func (s *NotificationScheduler) untilNextStart(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.StartHour, 0, 0, 0, s.cfg.Location)
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, s.cfg.StartHour, 0, 0, 0, s.cfg.Location)
	}
	return next.Sub(now)
}
