package subscriber

import (
	"context"
	"time"
)

// Repository defines the operations for persisting and retrieving Subscriber entities.
type Repository interface {
	// Upsert creates the subscriber or updates username and city of an existing one.
	Upsert(ctx context.Context, s *Subscriber) error
	GetByID(ctx context.Context, id int64) (*Subscriber, error)
	ListAll(ctx context.Context) ([]*Subscriber, error)
	SetBlocked(ctx context.Context, id int64, blocked bool) error
	UpdateLastAutoNotified(ctx context.Context, id int64, at time.Time) error
	UpdateLastManualNotified(ctx context.Context, id int64, at time.Time) error
	// DeleteMany removes all given subscribers in a single transaction.
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
}
