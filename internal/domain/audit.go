package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditUserRegister        AuditAction = "USER_REGISTER"
	AuditAccountCreate       AuditAction = "ACCOUNT_CREATE"
	AuditTransactionCreate   AuditAction = "TRANSACTION_CREATE"
	AuditTransactionUpdate   AuditAction = "TRANSACTION_UPDATE"
	AuditBalanceUpdate       AuditAction = "BALANCE_UPDATE"
	AuditLedgerCreate        AuditAction = "LEDGER_CREATE"
	AuditBalanceVerification AuditAction = "BALANCE_VERIFICATION"
)

// AuditLog rows are written inside the same unit of work as the change they
// describe, so an audit trail never refers to state that was rolled back.
type AuditLog struct {
	ID           uuid.UUID
	UserID       *uuid.UUID
	Action       AuditAction
	ResourceID   *uuid.UUID
	ResourceType string
	NewValues    json.RawMessage
	Description  string
	CreatedAt    time.Time
}
