package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
)

const notificationColumns = `id, user_id, event_type, payload, status, attempts, last_attempt, created_at`

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, event *domain.NotificationEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notification_events (id, user_id, event_type, payload, status, attempts, last_attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.UserID, event.EventType, event.Payload,
		event.Status, event.Attempts, event.LastAttempt, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ClaimPending locks a batch of undelivered events inside tx. SKIP LOCKED
// keeps two dispatchers from claiming the same rows.
func (r *NotificationRepository) ClaimPending(ctx context.Context, tx *sql.Tx, limit int) ([]domain.NotificationEvent, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notification_events
		WHERE status = $1 ORDER BY created_at LIMIT $2 FOR UPDATE SKIP LOCKED`,
		domain.NotificationStatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ClaimPending: %w", err)
	}
	defer rows.Close()

	var events []domain.NotificationEvent
	for rows.Next() {
		e, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("ClaimPending: scan: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ClaimPending: rows: %w", err)
	}
	return events, nil
}

func (r *NotificationRepository) MarkDispatched(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE notification_events SET status = $1, attempts = attempts + 1, last_attempt = $2 WHERE id = $3`,
		domain.NotificationStatusDispatched, at, id,
	)
	if err != nil {
		return fmt.Errorf("MarkDispatched: %w", err)
	}
	return nil
}

func (r *NotificationRepository) MarkFailed(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE notification_events SET status = $1, attempts = attempts + 1, last_attempt = $2 WHERE id = $3`,
		domain.NotificationStatusFailed, at, id,
	)
	if err != nil {
		return fmt.Errorf("MarkFailed: %w", err)
	}
	return nil
}

func scanNotification(s scanner) (*domain.NotificationEvent, error) {
	var e domain.NotificationEvent
	var lastAttempt sql.NullTime
	err := s.Scan(
		&e.ID, &e.UserID, &e.EventType, &e.Payload,
		&e.Status, &e.Attempts, &lastAttempt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastAttempt.Valid {
		e.LastAttempt = &lastAttempt.Time
	}
	return &e, nil
}
