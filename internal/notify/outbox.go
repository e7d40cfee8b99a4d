// Package notify delivers user-facing events through a durable outbox. A
// completed movement enqueues an event row; a background dispatcher claims
// pending rows in batches and hands them to a sink.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/logging"
)

type eventWriter interface {
	Create(ctx context.Context, event *domain.NotificationEvent) error
}

type Outbox struct {
	events eventWriter
}

func NewOutbox(events eventWriter) *Outbox {
	return &Outbox{events: events}
}

// Enqueue records an event for userID. Enqueue failures are logged and
// swallowed by callers on the hot path; a lost notification must never fail
// the movement that triggered it.
func (o *Outbox) Enqueue(ctx context.Context, userID uuid.UUID, eventType domain.NotificationType, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("Enqueue: marshal: %w", err)
	}
	event := &domain.NotificationEvent{
		ID:        uuid.New(),
		UserID:    userID,
		EventType: eventType,
		Payload:   body,
		Status:    domain.NotificationStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.events.Create(ctx, event); err != nil {
		return fmt.Errorf("Enqueue: %w", err)
	}
	return nil
}

// NotifyTransaction enqueues a transaction.completed and a balance.updated
// event for each party, logging rather than returning failures.
func (o *Outbox) NotifyTransaction(ctx context.Context, txn *domain.Transaction, userIDs ...uuid.UUID) {
	log := logging.FromContext(ctx)
	for _, userID := range userIDs {
		err := o.Enqueue(ctx, userID, domain.NotificationTransactionCompleted, map[string]any{
			"transactionId": txn.ID,
			"type":          txn.Type,
			"status":        txn.Status,
			"amount":        txn.Amount,
			"currency":      txn.Currency,
			"description":   txn.Description,
		})
		if err != nil {
			log.Error("notification enqueue failed", "user_id", userID, "transaction_id", txn.ID, "error", err)
			continue
		}
		err = o.Enqueue(ctx, userID, domain.NotificationBalanceUpdated, map[string]any{
			"transactionId": txn.ID,
		})
		if err != nil {
			log.Error("notification enqueue failed", "user_id", userID, "transaction_id", txn.ID, "error", err)
		}
	}
}
