// internal/domain/notification/repository.go
package notification

import (
	"context"
	"time"
)

// Queue is a durable at-least-once mailbox of outbound messages.
type Queue interface {
	Enqueue(ctx context.Context, msg *QueuedMessage) error
	// Pending returns up to limit unsent messages. Messages with fewer failed
	// attempts come first, oldest first within the same attempt count.
	Pending(ctx context.Context, limit int) ([]*QueuedMessage, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	// MarkFailed records a failed delivery and returns the new attempt count.
	MarkFailed(ctx context.Context, id int64) (int, error)
	// Discard drops an unsent message that will never be delivered.
	Discard(ctx context.Context, id int64) error
	// DiscardPendingFor drops every unsent message addressed to the given ids.
	DiscardPendingFor(ctx context.Context, subscriberIDs []int64) (int64, error)
	// PruneSent deletes sent messages created before the cutoff.
	PruneSent(ctx context.Context, before time.Time) (int64, error)
}

// Ledger holds the process-wide scheduler facts.
type Ledger interface {
	// LastRun returns the last successful batch time; ok is false if none ran yet.
	LastRun(ctx context.Context) (at time.Time, ok bool, err error)
	// MarkRun advances the last successful batch time. Older values are ignored.
	MarkRun(ctx context.Context, at time.Time) error
}
