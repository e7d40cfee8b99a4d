package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
)

const ledgerColumns = `id, account_id, transaction_id, amount, balance_after,
	entry_type, description, metadata, created_at`

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Create appends one entry. Entries are immutable; there is no update path.
func (r *LedgerRepository) Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (
			id, account_id, transaction_id, amount, balance_after,
			entry_type, description, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.AccountID, entry.TransactionID, entry.Amount, entry.BalanceAfter,
		entry.EntryType, entry.Description, entry.Metadata, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ListByTransactionTx reads a transaction's entries inside the given unit of
// work, so entries written but not yet committed are visible to the caller.
func (r *LedgerRepository) ListByTransactionTx(ctx context.Context, tx *sql.Tx, transactionID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE transaction_id = $1 ORDER BY created_at`, transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByTransactionTx: %w", err)
	}
	return collectEntries(rows, "ListByTransactionTx")
}

func (r *LedgerRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE transaction_id = $1 ORDER BY created_at`, transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByTransaction: %w", err)
	}
	return collectEntries(rows, "ListByTransaction")
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByAccount: %w", err)
	}
	return collectEntries(rows, "ListByAccount")
}

// SumByAccount totals an account's signed entry amounts, the ledger-derived
// view of its balance.
func (r *LedgerRepository) SumByAccount(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE account_id = $1`, accountID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("SumByAccount: %w", err)
	}
	return sum, nil
}

func collectEntries(rows *sql.Rows, op string) ([]domain.LedgerEntry, error) {
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return entries, nil
}

func scanLedgerEntry(s scanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var metadata *[]byte
	err := s.Scan(
		&e.ID, &e.AccountID, &e.TransactionID, &e.Amount, &e.BalanceAfter,
		&e.EntryType, &e.Description, &metadata, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if metadata != nil {
		e.Metadata = *metadata
	}
	return &e, nil
}
