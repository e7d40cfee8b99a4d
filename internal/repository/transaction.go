package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
)

const transactionColumns = `id, type, status, from_account_id, to_account_id,
	amount, currency, exchange_rate, converted_amount, description, metadata,
	created_at, updated_at`

// AccountRef is the slice of account data joined onto history rows: enough
// to tell the reader whose money moved and in what currency.
type AccountRef struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Currency domain.Currency
}

type TransactionRow struct {
	domain.Transaction
	FromAccount AccountRef
	ToAccount   *AccountRef
}

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (
			id, type, status, from_account_id, to_account_id,
			amount, currency, exchange_rate, converted_amount, description, metadata,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.Type, t.Status, t.FromAccountID, t.ToAccountID,
		t.Amount, t.Currency, t.ExchangeRate, t.ConvertedAmount, t.Description, t.Metadata,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransactionRepository) MarkCompleted(ctx context.Context, tx *sql.Tx, id uuid.UUID, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3`,
		domain.TransactionStatusCompleted, now, id,
	)
	if err != nil {
		return fmt.Errorf("MarkCompleted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkCompleted: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("MarkCompleted: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

// ListForAccounts returns transactions touching any of the given accounts as
// source or destination, newest first, joined with both accounts' owner and
// currency. txType narrows by transaction type when non-nil.
func (r *TransactionRepository) ListForAccounts(ctx context.Context, accountIDs []uuid.UUID, txType *domain.TransactionType, limit, offset int) ([]TransactionRow, int, error) {
	ids := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		ids[i] = id.String()
	}

	where := `(t.from_account_id = ANY($1::uuid[]) OR t.to_account_id = ANY($1::uuid[]))`
	args := []any{pq.Array(ids)}
	if txType != nil {
		where += ` AND t.type = $2`
		args = append(args, *txType)
	}

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions t WHERE `+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListForAccounts: count: %w", err)
	}

	query := `SELECT t.id, t.type, t.status, t.from_account_id, t.to_account_id,
			t.amount, t.currency, t.exchange_rate, t.converted_amount, t.description, t.metadata,
			t.created_at, t.updated_at,
			fa.user_id, fa.currency,
			ta.user_id, ta.currency
		FROM transactions t
		JOIN accounts fa ON fa.id = t.from_account_id
		LEFT JOIN accounts ta ON ta.id = t.to_account_id
		WHERE ` + where + fmt.Sprintf(
		` ORDER BY t.created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListForAccounts: %w", err)
	}
	defer rows.Close()

	var result []TransactionRow
	for rows.Next() {
		tr, err := scanTransactionRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListForAccounts: scan: %w", err)
		}
		result = append(result, *tr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListForAccounts: rows: %w", err)
	}
	return result, total, nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var toAccountID uuid.NullUUID
	var exchangeRate, convertedAmount decimal.NullDecimal
	var metadata *[]byte

	err := s.Scan(
		&t.ID, &t.Type, &t.Status, &t.FromAccountID, &toAccountID,
		&t.Amount, &t.Currency, &exchangeRate, &convertedAmount, &t.Description, &metadata,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if toAccountID.Valid {
		t.ToAccountID = &toAccountID.UUID
	}
	if exchangeRate.Valid {
		t.ExchangeRate = &exchangeRate.Decimal
	}
	if convertedAmount.Valid {
		t.ConvertedAmount = &convertedAmount.Decimal
	}
	if metadata != nil {
		t.Metadata = *metadata
	}
	return &t, nil
}

func scanTransactionRow(s scanner) (*TransactionRow, error) {
	var tr TransactionRow
	var toAccountID uuid.NullUUID
	var exchangeRate, convertedAmount decimal.NullDecimal
	var metadata *[]byte
	var toUserID uuid.NullUUID
	var toCurrency *string

	err := s.Scan(
		&tr.ID, &tr.Type, &tr.Status, &tr.FromAccountID, &toAccountID,
		&tr.Amount, &tr.Currency, &exchangeRate, &convertedAmount, &tr.Description, &metadata,
		&tr.CreatedAt, &tr.UpdatedAt,
		&tr.FromAccount.UserID, &tr.FromAccount.Currency,
		&toUserID, &toCurrency,
	)
	if err != nil {
		return nil, err
	}

	tr.FromAccount.ID = tr.FromAccountID
	if toAccountID.Valid {
		tr.ToAccountID = &toAccountID.UUID
	}
	if exchangeRate.Valid {
		tr.ExchangeRate = &exchangeRate.Decimal
	}
	if convertedAmount.Valid {
		tr.ConvertedAmount = &convertedAmount.Decimal
	}
	if metadata != nil {
		tr.Metadata = *metadata
	}
	if toAccountID.Valid && toUserID.Valid && toCurrency != nil {
		tr.ToAccount = &AccountRef{
			ID:       toAccountID.UUID,
			UserID:   toUserID.UUID,
			Currency: domain.Currency(*toCurrency),
		}
	}
	return &tr, nil
}
