// Package ledger is the append-only double-entry journal. Every movement of
// money produces a balanced debit/credit pair within the same unit of work
// as its parent transaction; entries are never updated or deleted.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/money"
)

type entryStore interface {
	Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error
	ListByTransactionTx(ctx context.Context, tx *sql.Tx, transactionID uuid.UUID) ([]domain.LedgerEntry, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, error)
	SumByAccount(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

type Journal struct {
	entries entryStore
}

func NewJournal(entries entryStore) *Journal {
	return &Journal{entries: entries}
}

// EntryParams describes a single journal line. Metadata must be one of the
// typed variants in the domain package; it is serialized as-is.
type EntryParams struct {
	AccountID     uuid.UUID
	TransactionID uuid.UUID
	Amount        decimal.Decimal
	BalanceAfter  decimal.Decimal
	EntryType     domain.EntryType
	Description   string
	Metadata      any
}

// RecordEntry appends one line. It applies the rounding policy to the stored
// amounts but performs no balance validation; that is the pair constructors'
// and the verifier's job.
func (j *Journal) RecordEntry(ctx context.Context, tx *sql.Tx, p EntryParams) (*domain.LedgerEntry, error) {
	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return nil, fmt.Errorf("RecordEntry: marshal metadata: %w", err)
	}

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     p.AccountID,
		TransactionID: p.TransactionID,
		Amount:        money.Round2(p.Amount),
		BalanceAfter:  money.Round2(p.BalanceAfter),
		EntryType:     p.EntryType,
		Description:   p.Description,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}

	if err := j.entries.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("RecordEntry: %w", err)
	}
	return entry, nil
}

type TransferPair struct {
	FromAccountID    uuid.UUID
	ToAccountID      uuid.UUID
	TransactionID    uuid.UUID
	Amount           decimal.Decimal
	FromBalanceAfter decimal.Decimal
	ToBalanceAfter   decimal.Decimal
}

// RecordTransferPair writes the balanced pair for a same-currency transfer:
// -amount against the source, +amount against the destination, each tagged
// with the counterpart account.
func (j *Journal) RecordTransferPair(ctx context.Context, tx *sql.Tx, p TransferPair) (debit, credit *domain.LedgerEntry, err error) {
	debit, err = j.RecordEntry(ctx, tx, EntryParams{
		AccountID:     p.FromAccountID,
		TransactionID: p.TransactionID,
		Amount:        p.Amount.Neg(),
		BalanceAfter:  p.FromBalanceAfter,
		EntryType:     domain.EntryTypeTransfer,
		Description:   fmt.Sprintf("Transfer to account %s", p.ToAccountID),
		Metadata: domain.TransferMetadata{
			Direction:      domain.DirectionDebit,
			RelatedAccount: p.ToAccountID,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("RecordTransferPair: debit: %w", err)
	}

	credit, err = j.RecordEntry(ctx, tx, EntryParams{
		AccountID:     p.ToAccountID,
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		BalanceAfter:  p.ToBalanceAfter,
		EntryType:     domain.EntryTypeTransfer,
		Description:   fmt.Sprintf("Transfer from account %s", p.FromAccountID),
		Metadata: domain.TransferMetadata{
			Direction:      domain.DirectionCredit,
			RelatedAccount: p.FromAccountID,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("RecordTransferPair: credit: %w", err)
	}

	return debit, credit, nil
}

type ExchangePair struct {
	FromAccountID    uuid.UUID
	ToAccountID      uuid.UUID
	TransactionID    uuid.UUID
	FromAmount       decimal.Decimal
	ToAmount         decimal.Decimal
	FromBalanceAfter decimal.Decimal
	ToBalanceAfter   decimal.Decimal
	Rate             decimal.Decimal
}

// RecordExchangePair writes the pair for a currency exchange: -fromAmount in
// the source currency, +toAmount in the destination currency. Each leg
// carries the rate and the amount on the other leg.
func (j *Journal) RecordExchangePair(ctx context.Context, tx *sql.Tx, p ExchangePair) (debit, credit *domain.LedgerEntry, err error) {
	debit, err = j.RecordEntry(ctx, tx, EntryParams{
		AccountID:     p.FromAccountID,
		TransactionID: p.TransactionID,
		Amount:        p.FromAmount.Neg(),
		BalanceAfter:  p.FromBalanceAfter,
		EntryType:     domain.EntryTypeExchange,
		Description:   fmt.Sprintf("Exchange to account %s", p.ToAccountID),
		Metadata: domain.ExchangeMetadata{
			Direction:      domain.DirectionDebit,
			RelatedAccount: p.ToAccountID,
			ExchangeRate:   p.Rate,
			CounterAmount:  p.ToAmount,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("RecordExchangePair: debit: %w", err)
	}

	credit, err = j.RecordEntry(ctx, tx, EntryParams{
		AccountID:     p.ToAccountID,
		TransactionID: p.TransactionID,
		Amount:        p.ToAmount,
		BalanceAfter:  p.ToBalanceAfter,
		EntryType:     domain.EntryTypeExchange,
		Description:   fmt.Sprintf("Exchange from account %s", p.FromAccountID),
		Metadata: domain.ExchangeMetadata{
			Direction:      domain.DirectionCredit,
			RelatedAccount: p.FromAccountID,
			ExchangeRate:   p.Rate,
			CounterAmount:  p.FromAmount,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("RecordExchangePair: credit: %w", err)
	}

	return debit, credit, nil
}

// RecordDeposit writes the unary credit seeded at account creation. It is
// the only entry kind without a balancing counterpart.
func (j *Journal) RecordDeposit(ctx context.Context, tx *sql.Tx, accountID, transactionID uuid.UUID, amount, balanceAfter decimal.Decimal) (*domain.LedgerEntry, error) {
	entry, err := j.RecordEntry(ctx, tx, EntryParams{
		AccountID:     accountID,
		TransactionID: transactionID,
		Amount:        amount,
		BalanceAfter:  balanceAfter,
		EntryType:     domain.EntryTypeInitialDeposit,
		Description:   "Initial deposit",
		Metadata: domain.DepositMetadata{
			Direction: domain.DirectionCredit,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("RecordDeposit: %w", err)
	}
	return entry, nil
}

// VerifyTransactionBalance loads a transaction's entries inside the unit of
// work and checks that their signed amounts cancel out within 0.01. Exchange
// credits are denominated in the destination currency, so they are first
// normalized back to the source currency via the rate stored on the entry.
// The normalized quotient is summed unrounded: the credit leg already carries
// up to half a cent of rounding from the conversion, and rounding the
// quotient again can push that drift to exactly 0.01, outside tolerance.
// INITIAL_DEPOSIT entries are unary and exempt. The pairs written above are
// balanced by construction; this exists to catch programming errors and
// partial writes before commit.
func (j *Journal) VerifyTransactionBalance(ctx context.Context, tx *sql.Tx, transactionID uuid.UUID) (bool, error) {
	entries, err := j.entries.ListByTransactionTx(ctx, tx, transactionID)
	if err != nil {
		return false, fmt.Errorf("VerifyTransactionBalance: %w", err)
	}
	if len(entries) == 0 {
		return false, nil
	}

	sum := decimal.Zero
	for _, e := range entries {
		switch {
		case e.EntryType == domain.EntryTypeInitialDeposit:
			if len(entries) != 1 {
				return false, nil
			}
			return true, nil
		case e.EntryType == domain.EntryTypeExchange && e.Amount.IsPositive():
			var meta domain.ExchangeMetadata
			if err := json.Unmarshal(e.Metadata, &meta); err != nil {
				return false, fmt.Errorf("VerifyTransactionBalance: metadata: %w", err)
			}
			if meta.ExchangeRate.IsZero() {
				return false, fmt.Errorf("VerifyTransactionBalance: entry %s has zero rate", e.ID)
			}
			sum = sum.Add(e.Amount.Div(meta.ExchangeRate))
		default:
			sum = sum.Add(e.Amount)
		}
	}

	return money.WithinTolerance(sum), nil
}

// CalculateBalance recomputes an account balance from its entries alone, for
// reconciliation against the stored balance.
func (j *Journal) CalculateBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	sum, err := j.entries.SumByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("CalculateBalance: %w", err)
	}
	return money.Round2(sum), nil
}

// EntriesForAccount returns an account's entries, newest first.
func (j *Journal) EntriesForAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, error) {
	entries, err := j.entries.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("EntriesForAccount: %w", err)
	}
	return entries, nil
}
