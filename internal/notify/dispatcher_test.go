package notify

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
)

type stubQueue struct {
	pending    []domain.NotificationEvent
	dispatched []uuid.UUID
	failed     []uuid.UUID
}

func (q *stubQueue) ClaimPending(ctx context.Context, tx *sql.Tx, limit int) ([]domain.NotificationEvent, error) {
	if len(q.pending) > limit {
		return q.pending[:limit], nil
	}
	return q.pending, nil
}

func (q *stubQueue) MarkDispatched(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error {
	q.dispatched = append(q.dispatched, id)
	return nil
}

func (q *stubQueue) MarkFailed(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error {
	q.failed = append(q.failed, id)
	return nil
}

type flakySink struct {
	failFor uuid.UUID
}

func (s flakySink) Deliver(ctx context.Context, event domain.NotificationEvent) error {
	if event.ID == s.failFor {
		return errors.New("sink unavailable")
	}
	return nil
}

func event(id uuid.UUID) domain.NotificationEvent {
	return domain.NotificationEvent{
		ID:        id,
		UserID:    uuid.New(),
		EventType: domain.NotificationTransactionCompleted,
		Payload:   []byte(`{}`),
		Status:    domain.NotificationStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

func TestRunOnceDeliversBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	good, bad := uuid.New(), uuid.New()
	queue := &stubQueue{pending: []domain.NotificationEvent{event(good), event(bad)}}
	d := NewDispatcher(db, queue, flakySink{failFor: bad}, time.Second, 50)

	delivered, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, []uuid.UUID{good}, queue.dispatched)
	assert.Equal(t, []uuid.UUID{bad}, queue.failed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunOnceEmptyQueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	queue := &stubQueue{}
	d := NewDispatcher(db, queue, LogSink{}, time.Second, 50)

	delivered, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Empty(t, queue.dispatched)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunOnceHonorsBatchSize(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	queue := &stubQueue{pending: []domain.NotificationEvent{
		event(uuid.New()), event(uuid.New()), event(uuid.New()),
	}}
	d := NewDispatcher(db, queue, LogSink{}, time.Second, 2)

	delivered, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
	require.NoError(t, mock.ExpectationsWereMet())
}
