package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/ledger"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/logging"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/money"
)

type TransferRequest struct {
	ToUserID    uuid.UUID
	Currency    domain.Currency
	Amount      decimal.Decimal
	Description string
}

// Transfer moves amount between two users' accounts in the same currency.
// The pending transaction row, both balance adjustments, the debit/credit
// pair, and the completion update commit as one unit of work; any failure
// rolls the whole sequence back and nothing durable remains.
func (s *Service) Transfer(ctx context.Context, userID uuid.UUID, req TransferRequest) (*domain.Transaction, error) {
	log := logging.FromContext(ctx)

	if !req.Currency.IsValid() {
		return nil, fmt.Errorf("Transfer: %s: %w", req.Currency, domain.ErrInvalidCurrency)
	}

	fromAccount, err := s.accounts.GetByUserAndCurrency(ctx, userID, req.Currency)
	if err != nil {
		return nil, fmt.Errorf("Transfer: sender: %w", err)
	}
	toAccount, err := s.accounts.GetByUserAndCurrency(ctx, req.ToUserID, req.Currency)
	if err != nil {
		return nil, fmt.Errorf("Transfer: recipient: %w", err)
	}

	amount := money.Round2(req.Amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrInvalidAmount)
	}

	if fromAccount.UserID == toAccount.UserID {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrSelfTransfer)
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Transfer to %s", req.ToUserID)
	}

	ctx, cancel, tx, err := s.beginUOW(ctx)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}
	defer cancel()
	defer tx.Rollback()

	locked, err := lockAccountsInOrder(ctx, tx, s.accounts, fromAccount.ID, toAccount.ID)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	if locked[fromAccount.ID].Balance.LessThan(amount) {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrInsufficientFunds)
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:            uuid.New(),
		Type:          domain.TransactionTypeTransfer,
		Status:        domain.TransactionStatusPending,
		FromAccountID: fromAccount.ID,
		ToAccountID:   &toAccount.ID,
		Amount:        amount,
		Currency:      req.Currency,
		Description:   description,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("Transfer: create transaction: %w", err)
	}

	updatedFrom, err := s.accounts.AdjustBalance(ctx, tx, fromAccount.ID, amount.Neg())
	if err != nil {
		return nil, fmt.Errorf("Transfer: debit sender: %w", err)
	}
	updatedTo, err := s.accounts.AdjustBalance(ctx, tx, toAccount.ID, amount)
	if err != nil {
		return nil, fmt.Errorf("Transfer: credit recipient: %w", err)
	}

	if _, _, err := s.journal.RecordTransferPair(ctx, tx, ledger.TransferPair{
		FromAccountID:    fromAccount.ID,
		ToAccountID:      toAccount.ID,
		TransactionID:    txn.ID,
		Amount:           amount,
		FromBalanceAfter: updatedFrom.Balance,
		ToBalanceAfter:   updatedTo.Balance,
	}); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	balanced, err := s.journal.VerifyTransactionBalance(ctx, tx, txn.ID)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}
	if !balanced {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrLedgerImbalance)
	}

	completedAt := time.Now().UTC()
	if err := s.transactions.MarkCompleted(ctx, tx, txn.ID, completedAt); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	if err := s.writeAudit(ctx, tx, userID, domain.AuditTransactionCreate, txn.ID, "transaction", map[string]any{
		"type":     txn.Type,
		"amount":   amount,
		"currency": req.Currency,
		"from":     fromAccount.ID,
		"to":       toAccount.ID,
	}, description); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}
	for _, acct := range []*domain.Account{updatedFrom, updatedTo} {
		if err := s.writeAudit(ctx, tx, acct.UserID, domain.AuditBalanceUpdate, acct.ID, "account", map[string]any{
			"balance":       acct.Balance,
			"transactionId": txn.ID,
		}, ""); err != nil {
			return nil, fmt.Errorf("Transfer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Transfer: commit: %w", err)
	}

	txn.Status = domain.TransactionStatusCompleted
	txn.UpdatedAt = completedAt

	log.Info("transfer completed",
		"transaction_id", txn.ID,
		"from_account", fromAccount.ID,
		"to_account", toAccount.ID,
		"amount", amount,
		"currency", req.Currency,
	)

	return txn, nil
}
