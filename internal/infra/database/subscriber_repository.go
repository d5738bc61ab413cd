package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"matchday_notification_bot/internal/domain/subscriber"
)

// Custom errors
var ErrSubscriberNotFound = fmt.Errorf("subscriber not found")

const subscriberColumns = `id, username, city, created_at, is_blocked, last_auto_notified_at, last_manual_notified_at`

type SubscriberRepository struct {
	db *DB
}

func NewSubscriberRepository(db *DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

func (r *SubscriberRepository) Upsert(ctx context.Context, s *subscriber.Subscriber) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	query := r.db.Rebind(`INSERT INTO subscribers (id, username, city, created_at, is_blocked)
               VALUES (?, ?, ?, ?, ?)
               ON CONFLICT (id) DO UPDATE SET username = excluded.username, city = excluded.city`)
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.Username, s.City, toMillis(s.CreatedAt), s.IsBlocked); err != nil {
		return fmt.Errorf("error upserting subscriber: %w", err)
	}
	return nil
}

func (r *SubscriberRepository) GetByID(ctx context.Context, id int64) (*subscriber.Subscriber, error) {
	query := r.db.Rebind(`SELECT ` + subscriberColumns + ` FROM subscribers WHERE id = ?`)
	s, err := scanSubscriber(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("error getting subscriber by ID: %w", err)
	}
	return s, nil
}

func (r *SubscriberRepository) ListAll(ctx context.Context) ([]*subscriber.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+subscriberColumns+` FROM subscribers ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("error listing subscribers: %w", err)
	}
	defer rows.Close()

	subscribers := make([]*subscriber.Subscriber, 0)
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning subscriber: %w", err)
		}
		subscribers = append(subscribers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscribers: %w", err)
	}
	return subscribers, nil
}

func (r *SubscriberRepository) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	return r.updateOne(ctx, `UPDATE subscribers SET is_blocked = ? WHERE id = ?`, blocked, id)
}

func (r *SubscriberRepository) UpdateLastAutoNotified(ctx context.Context, id int64, at time.Time) error {
	return r.updateOne(ctx, `UPDATE subscribers SET last_auto_notified_at = ? WHERE id = ?`, toMillis(at), id)
}

func (r *SubscriberRepository) UpdateLastManualNotified(ctx context.Context, id int64, at time.Time) error {
	return r.updateOne(ctx, `UPDATE subscribers SET last_manual_notified_at = ? WHERE id = ?`, toMillis(at), id)
}

func (r *SubscriberRepository) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("error updating subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}

// DeleteMany removes the given subscribers in one transaction so a scan never
// leaves a partially applied set of deletions visible.
func (r *SubscriberRepository) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for bulk delete: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	stmt, err := txn.PrepareContext(ctx, r.db.Rebind(`DELETE FROM subscribers WHERE id = ?`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for bulk delete: %w", err)
	}
	defer stmt.Close()

	var removed int64
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("error deleting subscriber %d: %w", id, err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if err := txn.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit bulk delete: %w", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(row rowScanner) (*subscriber.Subscriber, error) {
	var (
		s          subscriber.Subscriber
		createdAt  int64
		lastAuto   sql.NullInt64
		lastManual sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.Username, &s.City, &createdAt, &s.IsBlocked, &lastAuto, &lastManual); err != nil {
		return nil, err
	}
	s.CreatedAt = fromMillis(createdAt)
	s.LastAutoNotifiedAt = nullTimeFromMillis(lastAuto)
	s.LastManualNotifiedAt = nullTimeFromMillis(lastManual)
	return &s, nil
}
