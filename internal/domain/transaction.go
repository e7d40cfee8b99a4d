package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeTransfer       TransactionType = "TRANSFER"
	TransactionTypeExchange       TransactionType = "EXCHANGE"
	TransactionTypeInitialDeposit TransactionType = "INITIAL_DEPOSIT"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	// TransactionStatusFailed is reserved. A failed movement rolls back its
	// whole unit of work, so no FAILED row is ever durably written.
	TransactionStatusFailed TransactionStatus = "FAILED"
)

// Transaction records a single money movement. Amount is denominated in the
// source account's currency; ExchangeRate and ConvertedAmount are set only
// for EXCHANGE transactions.
type Transaction struct {
	ID              uuid.UUID
	Type            TransactionType
	Status          TransactionStatus
	FromAccountID   uuid.UUID
	ToAccountID     *uuid.UUID
	Amount          decimal.Decimal
	Currency        Currency
	ExchangeRate    *decimal.Decimal
	ConvertedAmount *decimal.Decimal
	Description     string
	Metadata        json.RawMessage
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
