package access

import "context"

// Repository stores the access mode singleton and the list memberships.
type Repository interface {
	GetMode(ctx context.Context) (Mode, error)
	SetMode(ctx context.Context, mode Mode) error
	// AddEntry is idempotent.
	AddEntry(ctx context.Context, mode Mode, subscriberID int64) error
	// RemoveEntry is a no-op when the entry does not exist.
	RemoveEntry(ctx context.Context, mode Mode, subscriberID int64) error
	HasEntry(ctx context.Context, mode Mode, subscriberID int64) (bool, error)
	ListEntries(ctx context.Context, mode Mode) ([]Entry, error)
}
