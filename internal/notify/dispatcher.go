package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/logging"
)

type eventQueue interface {
	ClaimPending(ctx context.Context, tx *sql.Tx, limit int) ([]domain.NotificationEvent, error)
	MarkDispatched(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error
}

// Sink receives claimed events. Deliver returning an error marks the event
// failed; it is not retried.
type Sink interface {
	Deliver(ctx context.Context, event domain.NotificationEvent) error
}

// LogSink writes events to the structured log. It stands in for a push
// channel (websocket, email) in environments that have none.
type LogSink struct{}

func (LogSink) Deliver(ctx context.Context, event domain.NotificationEvent) error {
	logging.FromContext(ctx).Info("notification delivered",
		"event_id", event.ID,
		"user_id", event.UserID,
		"event_type", event.EventType,
	)
	return nil
}

type Dispatcher struct {
	db        *sql.DB
	events    eventQueue
	sink      Sink
	interval  time.Duration
	batchSize int
}

func NewDispatcher(db *sql.DB, events eventQueue, sink Sink, interval time.Duration, batchSize int) *Dispatcher {
	return &Dispatcher{
		db:        db,
		events:    events,
		sink:      sink,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls until ctx is cancelled. Errors from a cycle are logged; the
// loop keeps going.
func (d *Dispatcher) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("notification dispatcher stopped")
			return
		case <-ticker.C:
			if n, err := d.RunOnce(ctx); err != nil {
				log.Error("notification dispatch cycle failed", "error", err)
			} else if n > 0 {
				log.Debug("notification dispatch cycle", "delivered", n)
			}
		}
	}
}

// RunOnce claims one batch and delivers it. Claim and status updates share
// a transaction so a crashed dispatcher releases its claim on rollback.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("RunOnce: %w", err)
	}
	defer tx.Rollback()

	events, err := d.events.ClaimPending(ctx, tx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("RunOnce: %w", err)
	}
	if len(events) == 0 {
		return 0, tx.Commit()
	}

	delivered := 0
	now := time.Now().UTC()
	for _, event := range events {
		if err := d.sink.Deliver(ctx, event); err != nil {
			logging.FromContext(ctx).Error("notification delivery failed",
				"event_id", event.ID, "error", err)
			if err := d.events.MarkFailed(ctx, tx, event.ID, now); err != nil {
				return delivered, fmt.Errorf("RunOnce: %w", err)
			}
			continue
		}
		if err := d.events.MarkDispatched(ctx, tx, event.ID, now); err != nil {
			return delivered, fmt.Errorf("RunOnce: %w", err)
		}
		delivered++
	}

	if err := tx.Commit(); err != nil {
		return delivered, fmt.Errorf("RunOnce: commit: %w", err)
	}
	return delivered, nil
}
