// internal/infra/database/notification_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"matchday_notification_bot/internal/domain/notification"
)

var ErrMessageNotFound = fmt.Errorf("queued message not found")

// NotificationRepository stores the message queue and the scheduler ledger.
type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// --- Queue Methods ---

func (r *NotificationRepository) Enqueue(ctx context.Context, msg *notification.QueuedMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	query := r.db.Rebind(`INSERT INTO message_queue (subscriber_id, body, created_at, sent)
               VALUES (?, ?, ?, ?)
               RETURNING id`)
	err := r.db.QueryRowContext(ctx, query, msg.SubscriberID, msg.Body, toMillis(msg.CreatedAt), false).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("error enqueuing message: %w", err)
	}
	msg.Attempts = 0
	msg.Sent = false
	msg.SentAt = sql.NullTime{}
	return nil
}

func (r *NotificationRepository) Pending(ctx context.Context, limit int) ([]*notification.QueuedMessage, error) {
	query := r.db.Rebind(`SELECT id, subscriber_id, body, created_at, attempts, sent, sent_at
               FROM message_queue
               WHERE sent = ?
               ORDER BY attempts ASC, created_at ASC, id ASC
               LIMIT ?`)
	rows, err := r.db.QueryContext(ctx, query, false, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying pending messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*notification.QueuedMessage, 0, limit)
	for rows.Next() {
		var (
			m         notification.QueuedMessage
			createdAt int64
			sentAt    sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.SubscriberID, &m.Body, &createdAt, &m.Attempts, &m.Sent, &sentAt); err != nil {
			return nil, fmt.Errorf("error scanning queued message row: %w", err)
		}
		m.CreatedAt = fromMillis(createdAt)
		m.SentAt = nullTimeFromMillis(sentAt)
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queued message rows: %w", err)
	}
	return messages, nil
}

func (r *NotificationRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	query := r.db.Rebind(`UPDATE message_queue SET sent = ?, sent_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, true, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("error marking message %d sent: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64) (int, error) {
	query := r.db.Rebind(`UPDATE message_queue SET attempts = attempts + 1
               WHERE id = ? AND sent = ?
               RETURNING attempts`)
	var attempts int
	err := r.db.QueryRowContext(ctx, query, id, false).Scan(&attempts)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrMessageNotFound
		}
		return 0, fmt.Errorf("error recording failed attempt for message %d: %w", id, err)
	}
	return attempts, nil
}

func (r *NotificationRepository) Discard(ctx context.Context, id int64) error {
	query := r.db.Rebind(`DELETE FROM message_queue WHERE id = ? AND sent = ?`)
	if _, err := r.db.ExecContext(ctx, query, id, false); err != nil {
		return fmt.Errorf("error discarding message %d: %w", id, err)
	}
	return nil
}

// DiscardPendingFor removes unsent messages of the given subscribers in one transaction.
func (r *NotificationRepository) DiscardPendingFor(ctx context.Context, subscriberIDs []int64) (int64, error) {
	if len(subscriberIDs) == 0 {
		return 0, nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for queue discard: %w", err)
	}
	defer txn.Rollback()

	stmt, err := txn.PrepareContext(ctx, r.db.Rebind(`DELETE FROM message_queue WHERE subscriber_id = ? AND sent = ?`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for queue discard: %w", err)
	}
	defer stmt.Close()

	var discarded int64
	for _, id := range subscriberIDs {
		res, err := stmt.ExecContext(ctx, id, false)
		if err != nil {
			return 0, fmt.Errorf("error discarding messages for subscriber %d: %w", id, err)
		}
		n, _ := res.RowsAffected()
		discarded += n
	}

	if err := txn.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit queue discard: %w", err)
	}
	return discarded, nil
}

func (r *NotificationRepository) PruneSent(ctx context.Context, before time.Time) (int64, error) {
	query := r.db.Rebind(`DELETE FROM message_queue WHERE sent = ? AND created_at < ?`)
	res, err := r.db.ExecContext(ctx, query, true, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("error pruning sent messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading pruned rows: %w", err)
	}
	return n, nil
}

// --- Ledger Methods ---

func (r *NotificationRepository) LastRun(ctx context.Context) (time.Time, bool, error) {
	var lastRun sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT last_run_at FROM scheduler_state WHERE id = 1`).Scan(&lastRun)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("error getting scheduler state: %w", err)
	}
	if !lastRun.Valid {
		return time.Time{}, false, nil
	}
	return fromMillis(lastRun.Int64), true, nil
}

// MarkRun only ever moves the timestamp forward.
func (r *NotificationRepository) MarkRun(ctx context.Context, at time.Time) error {
	ms := toMillis(at)
	query := r.db.Rebind(`UPDATE scheduler_state SET last_run_at = ?
               WHERE id = 1 AND (last_run_at IS NULL OR last_run_at < ?)`)
	if _, err := r.db.ExecContext(ctx, query, ms, ms); err != nil {
		return fmt.Errorf("error updating scheduler state: %w", err)
	}
	return nil
}
