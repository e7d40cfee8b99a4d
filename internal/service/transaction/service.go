// Package transaction orchestrates money movement: it drives account balance
// mutation, double-entry journal writes, and the transaction record itself
// through a single atomic unit of work that commits or rolls back whole.
package transaction

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/ledger"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/repository"
)

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
	MarkCompleted(ctx context.Context, tx *sql.Tx, id uuid.UUID, now time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListForAccounts(ctx context.Context, accountIDs []uuid.UUID, txType *domain.TransactionType, limit, offset int) ([]repository.TransactionRow, int, error)
}

type accountStore interface {
	GetByUserAndCurrency(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	AdjustBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta decimal.Decimal) (*domain.Account, error)
}

type journal interface {
	RecordTransferPair(ctx context.Context, tx *sql.Tx, p ledger.TransferPair) (*domain.LedgerEntry, *domain.LedgerEntry, error)
	RecordExchangePair(ctx context.Context, tx *sql.Tx, p ledger.ExchangePair) (*domain.LedgerEntry, *domain.LedgerEntry, error)
	VerifyTransactionBalance(ctx context.Context, tx *sql.Tx, transactionID uuid.UUID) (bool, error)
}

type auditRepo interface {
	Create(ctx context.Context, tx *sql.Tx, entry *domain.AuditLog) error
}

type rateProvider interface {
	GetRate(from, to domain.Currency) (decimal.Decimal, error)
	Convert(amount decimal.Decimal, from, to domain.Currency) (rate, converted decimal.Decimal, err error)
}

type Service struct {
	db           *sql.DB
	transactions transactionRepo
	accounts     accountStore
	journal      journal
	audits       auditRepo
	rates        rateProvider
	uowTimeout   time.Duration
}

func NewService(
	db *sql.DB,
	transactions transactionRepo,
	accounts accountStore,
	journal journal,
	audits auditRepo,
	rates rateProvider,
	uowTimeout time.Duration,
) *Service {
	return &Service{
		db:           db,
		transactions: transactions,
		accounts:     accounts,
		journal:      journal,
		audits:       audits,
		rates:        rates,
		uowTimeout:   uowTimeout,
	}
}

func (s *Service) GetExchangeRate(from, to domain.Currency) (decimal.Decimal, error) {
	rate, err := s.rates.GetRate(from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("GetExchangeRate: %w", err)
	}
	return rate, nil
}

// beginUOW opens the bounded unit of work. The returned cancel must run after
// commit/rollback; expiry of the timeout aborts the transaction mid-flight.
func (s *Service) beginUOW(ctx context.Context) (context.Context, context.CancelFunc, *sql.Tx, error) {
	ctx, cancel := context.WithTimeout(ctx, s.uowTimeout)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("beginUOW: %w", err)
	}
	return ctx, cancel, tx, nil
}

// lockAccountsInOrder acquires row locks in ascending id order so that two
// movements touching the same pair of accounts in opposite directions cannot
// deadlock each other.
func lockAccountsInOrder(ctx context.Context, tx *sql.Tx, accounts accountStore, ids ...uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	locked := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range sorted {
		acct, err := accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockAccountsInOrder: %w", err)
		}
		locked[id] = acct
	}
	return locked, nil
}

func (s *Service) writeAudit(ctx context.Context, tx *sql.Tx, userID uuid.UUID, action domain.AuditAction, resourceID uuid.UUID, resourceType string, values any, description string) error {
	newValues, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("writeAudit: marshal: %w", err)
	}
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       &userID,
		Action:       action,
		ResourceID:   &resourceID,
		ResourceType: resourceType,
		NewValues:    newValues,
		Description:  description,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.audits.Create(ctx, tx, entry); err != nil {
		return fmt.Errorf("writeAudit: %w", err)
	}
	return nil
}
