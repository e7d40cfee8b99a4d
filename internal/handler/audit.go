package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/auth"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/logging"
)

type auditReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.AuditLog, error)
}

type AuditHandler struct {
	audits auditReader
}

func NewAuditHandler(audits auditReader) *AuditHandler {
	return &AuditHandler{audits: audits}
}

type auditLogDTO struct {
	ID           uuid.UUID       `json:"id"`
	Action       string          `json:"action"`
	ResourceID   *uuid.UUID      `json:"resourceId,omitempty"`
	ResourceType string          `json:"resourceType"`
	NewValues    json.RawMessage `json:"newValues,omitempty"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// List returns the caller's audit trail, newest first.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit := queryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	offset := queryInt(r, "offset", 0)

	logs, err := h.audits.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list audit logs", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]auditLogDTO, len(logs))
	for i, l := range logs {
		dtos[i] = auditLogDTO{
			ID:           l.ID,
			Action:       string(l.Action),
			ResourceID:   l.ResourceID,
			ResourceType: l.ResourceType,
			NewValues:    l.NewValues,
			Description:  l.Description,
			CreatedAt:    l.CreatedAt,
		}
	}

	RespondSuccess(w, http.StatusOK, dtos)
}
