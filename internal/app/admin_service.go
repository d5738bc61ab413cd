package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"matchday_notification_bot/internal/domain/access"
	"matchday_notification_bot/internal/domain/notification"
	"matchday_notification_bot/internal/domain/subscriber"
	idb "matchday_notification_bot/internal/infra/database"
)

// Custom application-level errors for admin service
var ErrEmptyMessage = fmt.Errorf("message text must not be empty")
var ErrReservedDestination = fmt.Errorf("destination id 0 is reserved for admin operations")
var ErrEnqueueFailed = fmt.Errorf("message could not be queued")

// SubscriberView is a subscriber as shown to operators.
type SubscriberView struct {
	ID                   int64      `json:"id"`
	Username             string     `json:"username,omitempty"`
	City                 string     `json:"city"`
	CreatedAt            time.Time  `json:"created_at"`
	IsBlocked            bool       `json:"is_blocked"`
	Authorized           bool       `json:"authorized"`
	LastAutoNotifiedAt   *time.Time `json:"last_auto_notified_at,omitempty"`
	LastManualNotifiedAt *time.Time `json:"last_manual_notified_at,omitempty"`
}

// AdminService implements operator actions. It never talks to Telegram:
// everything that must reach a chat goes through the mailbox.
type AdminService struct {
	subscriberRepo subscriber.Repository
	gate           *AccessGate
	mailbox        *Mailbox
	now            func() time.Time
}

func NewAdminService(sr subscriber.Repository, gate *AccessGate, mailbox *Mailbox) *AdminService {
	return &AdminService{
		subscriberRepo: sr,
		gate:           gate,
		mailbox:        mailbox,
		now:            time.Now,
	}
}

// ListSubscribers returns every subscriber with its current authorization.
func (s *AdminService) ListSubscribers(ctx context.Context) ([]SubscriberView, error) {
	subs, err := s.subscriberRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}

	views := make([]SubscriberView, 0, len(subs))
	for _, sub := range subs {
		authorized, err := s.gate.IsAuthorized(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		v := SubscriberView{
			ID:         sub.ID,
			City:       sub.City,
			CreatedAt:  sub.CreatedAt,
			IsBlocked:  sub.IsBlocked,
			Authorized: authorized && !sub.IsBlocked,
		}
		if sub.Username.Valid {
			v.Username = sub.Username.String
		}
		if sub.LastAutoNotifiedAt.Valid {
			t := sub.LastAutoNotifiedAt.Time
			v.LastAutoNotifiedAt = &t
		}
		if sub.LastManualNotifiedAt.Valid {
			t := sub.LastManualNotifiedAt.Time
			v.LastManualNotifiedAt = &t
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *AdminService) AccessMode(ctx context.Context) (access.Mode, error) {
	return s.gate.Mode(ctx)
}

func (s *AdminService) SetAccessMode(ctx context.Context, mode string) (access.Mode, error) {
	return s.gate.SetMode(ctx, mode)
}

func (s *AdminService) AddAccessEntry(ctx context.Context, mode string, subscriberID int64) error {
	return s.gate.Add(ctx, mode, subscriberID)
}

func (s *AdminService) RemoveAccessEntry(ctx context.Context, mode string, subscriberID int64) error {
	return s.gate.Remove(ctx, mode, subscriberID)
}

// SetBlocked toggles the per-subscriber blocked flag. Returns
// idb.ErrSubscriberNotFound for unknown ids.
func (s *AdminService) SetBlocked(ctx context.Context, subscriberID int64, blocked bool) error {
	return s.subscriberRepo.SetBlocked(ctx, subscriberID, blocked)
}

// QueueMessage queues a manual notification and records it on the subscriber.
func (s *AdminService) QueueMessage(ctx context.Context, subscriberID int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if subscriberID == notification.AdminDestination {
		return ErrReservedDestination
	}
	if !s.mailbox.Enqueue(ctx, subscriberID, text) {
		return ErrEnqueueFailed
	}

	err := s.subscriberRepo.UpdateLastManualNotified(ctx, subscriberID, s.now())
	if err != nil && !errors.Is(err, idb.ErrSubscriberNotFound) {
		return fmt.Errorf("message queued but manual notification time not saved: %w", err)
	}
	return nil
}

// RequestCleanup queues the blocked-user reconciliation for the bot process.
func (s *AdminService) RequestCleanup(ctx context.Context) error {
	if !s.mailbox.RequestCleanup(ctx) {
		return ErrEnqueueFailed
	}
	return nil
}
