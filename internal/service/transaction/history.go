package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/repository"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
	defaultRecentLimit  = 5
)

type HistoryQuery struct {
	Type  *domain.TransactionType
	Page  int
	Limit int
}

// HistoryItem is one transaction as seen from the querying user's side.
// IsDebit is true when the user's account is the source of the movement.
type HistoryItem struct {
	repository.TransactionRow
	IsDebit bool `json:"isDebit"`
}

type HistoryPage struct {
	Items []HistoryItem `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// GetHistory returns the user's transactions across all their accounts,
// newest first, optionally filtered by type.
func (s *Service) GetHistory(ctx context.Context, userID uuid.UUID, q HistoryQuery) (*HistoryPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultHistoryLimit
	}
	if q.Limit > maxHistoryLimit {
		q.Limit = maxHistoryLimit
	}

	accountIDs, err := s.accountIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetHistory: %w", err)
	}

	offset := (q.Page - 1) * q.Limit
	rows, total, err := s.transactions.ListForAccounts(ctx, accountIDs, q.Type, q.Limit, offset)
	if err != nil {
		return nil, fmt.Errorf("GetHistory: %w", err)
	}

	return &HistoryPage{
		Items: annotate(rows, userID),
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
	}, nil
}

// GetRecent returns the user's most recent transactions, default five.
func (s *Service) GetRecent(ctx context.Context, userID uuid.UUID, limit int) ([]HistoryItem, error) {
	if limit < 1 {
		limit = defaultRecentLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	accountIDs, err := s.accountIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetRecent: %w", err)
	}

	rows, _, err := s.transactions.ListForAccounts(ctx, accountIDs, nil, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("GetRecent: %w", err)
	}
	return annotate(rows, userID), nil
}

// GetTransaction loads a single transaction and checks that it touches one
// of the user's accounts.
func (s *Service) GetTransaction(ctx context.Context, userID, transactionID uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}

	accountIDs, err := s.accountIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	for _, id := range accountIDs {
		if txn.FromAccountID == id || (txn.ToAccountID != nil && *txn.ToAccountID == id) {
			return txn, nil
		}
	}
	return nil, fmt.Errorf("GetTransaction: %w", domain.ErrNotFound)
}

func (s *Service) accountIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	accounts, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func annotate(rows []repository.TransactionRow, userID uuid.UUID) []HistoryItem {
	items := make([]HistoryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, HistoryItem{
			TransactionRow: row,
			IsDebit:        row.FromAccount.UserID == userID,
		})
	}
	return items
}
