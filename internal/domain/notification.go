package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationStatusPending    NotificationStatus = "pending"
	NotificationStatusDispatched NotificationStatus = "dispatched"
	NotificationStatusFailed     NotificationStatus = "failed"
)

type NotificationType string

const (
	NotificationTransactionCompleted NotificationType = "transaction.completed"
	NotificationBalanceUpdated       NotificationType = "balance.updated"
)

// NotificationEvent is a durable outbox row. The push channel that delivers
// it to the user is a separate collaborator; the core only guarantees the
// event survives until a dispatcher picks it up.
type NotificationEvent struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	EventType   NotificationType
	Payload     json.RawMessage
	Status      NotificationStatus
	Attempts    int
	LastAttempt *time.Time
	CreatedAt   time.Time
}
