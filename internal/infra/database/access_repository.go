package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"matchday_notification_bot/internal/domain/access"
)

type AccessRepository struct {
	db *DB
}

func NewAccessRepository(db *DB) *AccessRepository {
	return &AccessRepository{db: db}
}

func (r *AccessRepository) GetMode(ctx context.Context) (access.Mode, error) {
	var mode string
	err := r.db.QueryRowContext(ctx, `SELECT mode FROM access_mode WHERE id = 1`).Scan(&mode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The singleton is created by the initial migration.
			return access.DefaultMode, nil
		}
		return "", fmt.Errorf("error getting access mode: %w", err)
	}
	return access.ParseMode(mode)
}

func (r *AccessRepository) SetMode(ctx context.Context, mode access.Mode) error {
	query := r.db.Rebind(`INSERT INTO access_mode (id, mode, updated_at) VALUES (1, ?, ?)
               ON CONFLICT (id) DO UPDATE SET mode = excluded.mode, updated_at = excluded.updated_at`)
	if _, err := r.db.ExecContext(ctx, query, string(mode), toMillis(time.Now())); err != nil {
		return fmt.Errorf("error setting access mode: %w", err)
	}
	return nil
}

func (r *AccessRepository) AddEntry(ctx context.Context, mode access.Mode, subscriberID int64) error {
	query := r.db.Rebind(`INSERT INTO access_entries (mode, subscriber_id, created_at) VALUES (?, ?, ?)
               ON CONFLICT (mode, subscriber_id) DO NOTHING`)
	if _, err := r.db.ExecContext(ctx, query, string(mode), subscriberID, toMillis(time.Now())); err != nil {
		return fmt.Errorf("error adding access entry: %w", err)
	}
	return nil
}

func (r *AccessRepository) RemoveEntry(ctx context.Context, mode access.Mode, subscriberID int64) error {
	query := r.db.Rebind(`DELETE FROM access_entries WHERE mode = ? AND subscriber_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, string(mode), subscriberID); err != nil {
		return fmt.Errorf("error removing access entry: %w", err)
	}
	return nil
}

func (r *AccessRepository) HasEntry(ctx context.Context, mode access.Mode, subscriberID int64) (bool, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM access_entries WHERE mode = ? AND subscriber_id = ?`)
	var count int
	if err := r.db.QueryRowContext(ctx, query, string(mode), subscriberID).Scan(&count); err != nil {
		return false, fmt.Errorf("error checking access entry: %w", err)
	}
	return count > 0, nil
}

func (r *AccessRepository) ListEntries(ctx context.Context, mode access.Mode) ([]access.Entry, error) {
	query := r.db.Rebind(`SELECT id, mode, subscriber_id FROM access_entries WHERE mode = ? ORDER BY subscriber_id`)
	rows, err := r.db.QueryContext(ctx, query, string(mode))
	if err != nil {
		return nil, fmt.Errorf("error listing access entries: %w", err)
	}
	defer rows.Close()

	entries := make([]access.Entry, 0)
	for rows.Next() {
		var (
			e        access.Entry
			modeText string
		)
		if err := rows.Scan(&e.ID, &modeText, &e.SubscriberID); err != nil {
			return nil, fmt.Errorf("error scanning access entry: %w", err)
		}
		e.Mode = access.Mode(modeText)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating access entries: %w", err)
	}
	return entries, nil
}
