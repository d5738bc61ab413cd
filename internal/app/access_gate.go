package app

import (
	"context"
	"fmt"

	"matchday_notification_bot/internal/domain/access"
)

// ErrInvalidAccessMode is returned when a mode other than allow-list or deny-list is requested.
var ErrInvalidAccessMode = access.ErrInvalidMode

// AccessGate decides whether a subscriber may use the bot.
type AccessGate struct {
	repo access.Repository
}

func NewAccessGate(repo access.Repository) *AccessGate {
	return &AccessGate{repo: repo}
}

// IsAuthorized applies the global mode to the subscriber's list memberships.
func (g *AccessGate) IsAuthorized(ctx context.Context, subscriberID int64) (bool, error) {
	mode, err := g.repo.GetMode(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get access mode: %w", err)
	}

	listed, err := g.repo.HasEntry(ctx, mode, subscriberID)
	if err != nil {
		return false, fmt.Errorf("failed to check access entry for %d: %w", subscriberID, err)
	}

	if mode == access.ModeAllowList {
		return listed, nil
	}
	return !listed, nil
}

func (g *AccessGate) Mode(ctx context.Context) (access.Mode, error) {
	return g.repo.GetMode(ctx)
}

// SetMode parses and stores the global mode. Nothing is written on a bad value.
func (g *AccessGate) SetMode(ctx context.Context, mode string) (access.Mode, error) {
	m, err := access.ParseMode(mode)
	if err != nil {
		return "", err
	}
	if err := g.repo.SetMode(ctx, m); err != nil {
		return "", fmt.Errorf("failed to set access mode: %w", err)
	}
	return m, nil
}

// Add puts the subscriber on the list named by mode. Repeating it is harmless.
func (g *AccessGate) Add(ctx context.Context, mode string, subscriberID int64) error {
	m, err := access.ParseMode(mode)
	if err != nil {
		return err
	}
	return g.repo.AddEntry(ctx, m, subscriberID)
}

// Remove takes the subscriber off the list; a missing entry is not an error.
func (g *AccessGate) Remove(ctx context.Context, mode string, subscriberID int64) error {
	m, err := access.ParseMode(mode)
	if err != nil {
		return err
	}
	return g.repo.RemoveEntry(ctx, m, subscriberID)
}
