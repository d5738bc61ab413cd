package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"matchday_notification_bot/internal/domain/match"
	"matchday_notification_bot/internal/domain/subscriber"
)

var ErrEmptyCity = fmt.Errorf("city must not be empty")

// SubscriberService backs the conversational commands.
type SubscriberService struct {
	subscriberRepo subscriber.Repository
	gate           *AccessGate
	lookup         match.Lookup
	loc            *time.Location
	now            func() time.Time
}

func NewSubscriberService(sr subscriber.Repository, gate *AccessGate, lookup match.Lookup, loc *time.Location) *SubscriberService {
	return &SubscriberService{
		subscriberRepo: sr,
		gate:           gate,
		lookup:         lookup,
		loc:            loc,
		now:            time.Now,
	}
}

func (s *SubscriberService) IsAuthorized(ctx context.Context, id int64) (bool, error) {
	return s.gate.IsAuthorized(ctx, id)
}

func (s *SubscriberService) Get(ctx context.Context, id int64) (*subscriber.Subscriber, error) {
	return s.subscriberRepo.GetByID(ctx, id)
}

// SetCity creates the subscriber on first use or updates the city.
func (s *SubscriberService) SetCity(ctx context.Context, id int64, username, city string) (*subscriber.Subscriber, error) {
	city = strings.Join(strings.Fields(city), " ")
	if city == "" {
		return nil, ErrEmptyCity
	}

	sub := &subscriber.Subscriber{
		ID:        id,
		City:      city,
		CreatedAt: s.now(),
	}
	if username != "" {
		sub.Username = sql.NullString{String: username, Valid: true}
	}
	if err := s.subscriberRepo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save city for %d: %w", id, err)
	}
	return sub, nil
}

// CheckToday runs an on-demand lookup for the subscriber's city. It does not
// touch the notification ledger.
func (s *SubscriberService) CheckToday(ctx context.Context, sub *subscriber.Subscriber) string {
	res := s.lookup.MatchesForCity(ctx, sub.City, s.now().In(s.loc))
	return FormatLookup(res, s.loc)
}
