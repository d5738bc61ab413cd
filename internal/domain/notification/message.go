// internal/domain/notification/message.go
package notification

import (
	"database/sql"
	"strings"
	"time"
)

// AdminDestination is the reserved destination id for operator commands
// carried through the queue instead of being delivered to a chat.
const AdminDestination int64 = 0

// AdminOperationPrefix marks queue bodies that carry an operator command.
const AdminOperationPrefix = "ADMIN_OPERATION:"

// OperationCleanupUsers asks the transport owner to run the blocked-user reconciler.
const OperationCleanupUsers = "CLEANUP_USERS"

// QueuedMessage is an outbound message awaiting delivery by the transport owner.
// Corresponds to the 'message_queue' table.
type QueuedMessage struct {
	ID           int64
	SubscriberID int64
	Body         string
	CreatedAt    time.Time
	Attempts     int
	Sent         bool
	SentAt       sql.NullTime
}

// AdminOperation returns the operator command carried by the message, if any.
func (m *QueuedMessage) AdminOperation() (string, bool) {
	if m.SubscriberID != AdminDestination || !strings.HasPrefix(m.Body, AdminOperationPrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(m.Body, AdminOperationPrefix)), true
}
