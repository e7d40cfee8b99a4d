package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
)

const auditColumns = `id, user_id, action, resource_id, resource_type, new_values, description, created_at`

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create writes an audit row inside the caller's transaction so the trail
// rolls back together with the change it describes.
func (r *AuditRepository) Create(ctx context.Context, tx *sql.Tx, entry *domain.AuditLog) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, action, resource_id, resource_type, new_values, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.UserID, entry.Action, entry.ResourceID, entry.ResourceType,
		entry.NewValues, entry.Description, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_logs
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		var userID, resourceID uuid.NullUUID
		var newValues *[]byte
		err := rows.Scan(
			&l.ID, &userID, &l.Action, &resourceID, &l.ResourceType,
			&newValues, &l.Description, &l.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ListByUser: scan: %w", err)
		}
		if userID.Valid {
			l.UserID = &userID.UUID
		}
		if resourceID.Valid {
			l.ResourceID = &resourceID.UUID
		}
		if newValues != nil {
			l.NewValues = *newValues
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByUser: rows: %w", err)
	}
	return logs, nil
}
