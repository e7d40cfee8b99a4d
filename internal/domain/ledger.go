package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeTransfer       EntryType = "TRANSFER"
	EntryTypeExchange       EntryType = "EXCHANGE"
	EntryTypeInitialDeposit EntryType = "INITIAL_DEPOSIT"
)

type EntryDirection string

const (
	DirectionDebit  EntryDirection = "debit"
	DirectionCredit EntryDirection = "credit"
)

// LedgerEntry is one half of a double-entry record. Amount is signed:
// positive credits the account, negative debits it. Entries are append-only;
// they are never updated or deleted.
type LedgerEntry struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	TransactionID uuid.UUID
	Amount        decimal.Decimal
	BalanceAfter  decimal.Decimal
	EntryType     EntryType
	Description   string
	Metadata      json.RawMessage
	CreatedAt     time.Time
}

// TransferMetadata annotates the two legs of a same-currency transfer with
// each other's account for auditability.
type TransferMetadata struct {
	Direction      EntryDirection `json:"direction"`
	RelatedAccount uuid.UUID      `json:"relatedAccount"`
}

// ExchangeMetadata additionally carries the applied rate and the amount on
// the other leg: the debit side stores the converted amount it produced, the
// credit side the original amount it came from.
type ExchangeMetadata struct {
	Direction      EntryDirection  `json:"direction"`
	RelatedAccount uuid.UUID       `json:"relatedAccount"`
	ExchangeRate   decimal.Decimal `json:"exchangeRate"`
	CounterAmount  decimal.Decimal `json:"counterAmount"`
}

// DepositMetadata marks the unary seed entry written at registration.
type DepositMetadata struct {
	Direction EntryDirection `json:"direction"`
}
