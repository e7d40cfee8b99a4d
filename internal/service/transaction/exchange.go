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

type ExchangeRequest struct {
	FromCurrency domain.Currency
	ToCurrency   domain.Currency
	Amount       decimal.Decimal
}

// Exchange converts money between a user's own two currency accounts at the
// configured rate. Like Transfer, the whole sequence commits or rolls back
// as one unit of work, and the journal pair is verified before completion.
func (s *Service) Exchange(ctx context.Context, userID uuid.UUID, req ExchangeRequest) (*domain.Transaction, error) {
	log := logging.FromContext(ctx)

	if req.FromCurrency == req.ToCurrency {
		return nil, fmt.Errorf("Exchange: %w", domain.ErrSameCurrencyExchange)
	}

	fromAccount, err := s.accounts.GetByUserAndCurrency(ctx, userID, req.FromCurrency)
	if err != nil {
		return nil, fmt.Errorf("Exchange: source: %w", err)
	}
	toAccount, err := s.accounts.GetByUserAndCurrency(ctx, userID, req.ToCurrency)
	if err != nil {
		return nil, fmt.Errorf("Exchange: destination: %w", err)
	}

	fromAmount := money.Round2(req.Amount)
	if !fromAmount.IsPositive() {
		return nil, fmt.Errorf("Exchange: %w", domain.ErrInvalidAmount)
	}

	rate, toAmount, err := s.rates.Convert(fromAmount, req.FromCurrency, req.ToCurrency)
	if err != nil {
		return nil, fmt.Errorf("Exchange: %w", err)
	}

	ctx, cancel, tx, err := s.beginUOW(ctx)
	if err != nil {
		return nil, fmt.Errorf("Exchange: %w", err)
	}
	defer cancel()
	defer tx.Rollback()

	locked, err := lockAccountsInOrder(ctx, tx, s.accounts, fromAccount.ID, toAccount.ID)
	if err != nil {
		return nil, fmt.Errorf("Exchange: %w", err)
	}

	if locked[fromAccount.ID].Balance.LessThan(fromAmount) {
		return nil, fmt.Errorf("Exchange: %w", domain.ErrInsufficientFunds)
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:              uuid.New(),
		Type:            domain.TransactionTypeExchange,
		Status:          domain.TransactionStatusPending,
		FromAccountID:   fromAccount.ID,
		ToAccountID:     &toAccount.ID,
		Amount:          fromAmount,
		Currency:        req.FromCurrency,
		ExchangeRate:    &rate,
		ConvertedAmount: &toAmount,
		Description: fmt.Sprintf("Exchange %s %s to %s %s",
			fromAmount.StringFixed(2), req.FromCurrency, toAmount.StringFixed(2), req.ToCurrency),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("Exchange: create transaction: %w", err)
	}

	updatedFrom, err := s.accounts.AdjustBalance(ctx, tx, fromAccount.ID, fromAmount.Neg())
	if err != nil {
		return nil, fmt.Errorf("Exchange: debit source: %w", err)
	}
	updatedTo, err := s.accounts.AdjustBalance(ctx, tx, toAccount.ID, toAmount)
	if err != nil {
		return nil, fmt.Errorf("Exchange: credit destination: %w", err)
	}

	if _, _, err := s.journal.RecordExchangePair(ctx, tx, ledger.ExchangePair{
		FromAccountID:    fromAccount.ID,
		ToAccountID:      toAccount.ID,
		TransactionID:    txn.ID,
		FromAmount:       fromAmount,
		ToAmount:         toAmount,
		FromBalanceAfter: updatedFrom.Balance,
		ToBalanceAfter:   updatedTo.Balance,
		Rate:             rate,
	}); err != nil {
		return nil, fmt.Errorf("Exchange: %w", err)
	}

	balanced, err := s.journal.VerifyTransactionBalance(ctx, tx, txn.ID)
	if err != nil {
		return nil, fmt.Errorf("Exchange: %w", err)
	}
	if !balanced {
		return nil, fmt.Errorf("Exchange: %w", domain.ErrLedgerImbalance)
	}

	completedAt := time.Now().UTC()
	if err := s.transactions.MarkCompleted(ctx, tx, txn.ID, completedAt); err != nil {
		return nil, fmt.Errorf("Exchange: %w", err)
	}

	if err := s.writeAudit(ctx, tx, userID, domain.AuditTransactionCreate, txn.ID, "transaction", map[string]any{
		"type":            txn.Type,
		"amount":          fromAmount,
		"currency":        req.FromCurrency,
		"exchangeRate":    rate,
		"convertedAmount": toAmount,
	}, txn.Description); err != nil {
		return nil, fmt.Errorf("Exchange: %w", err)
	}
	for _, acct := range []*domain.Account{updatedFrom, updatedTo} {
		if err := s.writeAudit(ctx, tx, acct.UserID, domain.AuditBalanceUpdate, acct.ID, "account", map[string]any{
			"balance":       acct.Balance,
			"transactionId": txn.ID,
		}, ""); err != nil {
			return nil, fmt.Errorf("Exchange: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Exchange: commit: %w", err)
	}

	txn.Status = domain.TransactionStatusCompleted
	txn.UpdatedAt = completedAt

	log.Info("exchange completed",
		"transaction_id", txn.ID,
		"from_currency", req.FromCurrency,
		"to_currency", req.ToCurrency,
		"amount", fromAmount,
		"rate", rate,
		"converted_amount", toAmount,
	)

	return txn, nil
}
