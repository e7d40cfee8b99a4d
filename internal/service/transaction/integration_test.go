package transaction_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/fx"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/ledger"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/repository"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/service/transaction"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/testutil"
)

func setupTransactionService(t *testing.T, db *sql.DB) *transaction.Service {
	t.Helper()
	return transaction.NewService(
		db,
		repository.NewTransactionRepository(db),
		repository.NewAccountRepository(db),
		ledger.NewJournal(repository.NewLedgerRepository(db)),
		repository.NewAuditRepository(db),
		fx.NewRateService(0.92),
		10*time.Second,
	)
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestTransfer_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransactionService(t, db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice", "Johnson")
	bob := testutil.SeedUser(t, db, "bob@test.com", "Bob", "Smith")
	aliceUSD := testutil.SeedAccount(t, db, alice.ID, domain.CurrencyUSD, "1000.00")
	bobUSD := testutil.SeedAccount(t, db, bob.ID, domain.CurrencyUSD, "500.00")

	txn, err := svc.Transfer(ctx, alice.ID, transaction.TransferRequest{
		ToUserID: bob.ID,
		Currency: domain.CurrencyUSD,
		Amount:   dec(t, "250.50"),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, domain.TransactionTypeTransfer, txn.Type)
	assert.True(t, txn.Amount.Equal(dec(t, "250.50")))

	assert.True(t, testutil.GetBalance(t, db, aliceUSD.ID).Equal(dec(t, "749.50")))
	assert.True(t, testutil.GetBalance(t, db, bobUSD.ID).Equal(dec(t, "750.50")))
	assert.Equal(t, 2, testutil.CountLedgerEntries(t, db, txn.ID))
	assert.Equal(t, "COMPLETED", testutil.GetTransactionStatus(t, db, txn.ID))
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransactionService(t, db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice", "Johnson")
	bob := testutil.SeedUser(t, db, "bob@test.com", "Bob", "Smith")
	aliceUSD := testutil.SeedAccount(t, db, alice.ID, domain.CurrencyUSD, "100.00")
	bobUSD := testutil.SeedAccount(t, db, bob.ID, domain.CurrencyUSD, "500.00")

	_, err := svc.Transfer(ctx, alice.ID, transaction.TransferRequest{
		ToUserID: bob.ID,
		Currency: domain.CurrencyUSD,
		Amount:   dec(t, "150.00"),
	})

	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.True(t, testutil.GetBalance(t, db, aliceUSD.ID).Equal(dec(t, "100.00")))
	assert.True(t, testutil.GetBalance(t, db, bobUSD.ID).Equal(dec(t, "500.00")))
	assert.Equal(t, 0, testutil.CountTransactions(t, db))
}

func TestTransfer_ExactBalanceBoundary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransactionService(t, db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice", "Johnson")
	bob := testutil.SeedUser(t, db, "bob@test.com", "Bob", "Smith")
	aliceUSD := testutil.SeedAccount(t, db, alice.ID, domain.CurrencyUSD, "100.00")
	testutil.SeedAccount(t, db, bob.ID, domain.CurrencyUSD, "0.00")

	// Exactly the full balance succeeds.
	_, err := svc.Transfer(ctx, alice.ID, transaction.TransferRequest{
		ToUserID: bob.ID,
		Currency: domain.CurrencyUSD,
		Amount:   dec(t, "100.00"),
	})
	require.NoError(t, err)
	assert.True(t, testutil.GetBalance(t, db, aliceUSD.ID).IsZero())

	// One cent beyond an empty account fails.
	_, err = svc.Transfer(ctx, alice.ID, transaction.TransferRequest{
		ToUserID: bob.ID,
		Currency: domain.CurrencyUSD,
		Amount:   dec(t, "0.01"),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestTransfer_SelfTransferRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransactionService(t, db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice", "Johnson")
	testutil.SeedAccount(t, db, alice.ID, domain.CurrencyUSD, "1000.00")

	_, err := svc.Transfer(ctx, alice.ID, transaction.TransferRequest{
		ToUserID: alice.ID,
		Currency: domain.CurrencyUSD,
		Amount:   dec(t, "50.00"),
	})

	require.ErrorIs(t, err, domain.ErrSelfTransfer)
	assert.Equal(t, 0, testutil.CountTransactions(t, db))
}

func TestTransfer_InvalidAmounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransactionService(t, db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice", "Johnson")
	bob := testutil.SeedUser(t, db, "bob@test.com", "Bob", "Smith")
	testutil.SeedAccount(t, db, alice.ID, domain.CurrencyUSD, "1000.00")
	testutil.SeedAccount(t, db, bob.ID, domain.CurrencyUSD, "0.00")

	for _, amount := range []string{"0", "-10.00", "0.001"} {
		_, err := svc.Transfer(ctx, alice.ID, transaction.TransferRequest{
			ToUserID: bob.ID,
			Currency: domain.CurrencyUSD,
			Amount:   dec(t, amount),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "amount %s", amount)
	}
}

func TestTransfer_MissingRecipientAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransactionService(t, db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice", "Johnson")
	bob := testutil.SeedUser(t, db, "bob@test.com", "Bob", "Smith")
	testutil.SeedAccount(t, db, alice.ID, domain.CurrencyEUR, "500.00")
	// bob has no EUR account

	_, err := svc.Transfer(ctx, alice.ID, transaction.TransferRequest{
		ToUserID: bob.ID,
		Currency: domain.CurrencyEUR,
		Amount:   dec(t, "50.00"),
	})

	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestTransfer_ConcurrentOverdraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransactionService(t, db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice", "Johnson")
	bob := testutil.SeedUser(t, db, "bob@test.com", "Bob", "Smith")
	aliceUSD := testutil.SeedAccount(t, db, alice.ID, domain.CurrencyUSD, "100.00")
	bobUSD := testutil.SeedAccount(t, db, bob.ID, domain.CurrencyUSD, "0.00")

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, alice.ID, transaction.TransferRequest{
				ToUserID: bob.ID,
				Currency: domain.CurrencyUSD,
				Amount:   dec(t, "70.00"),
			})
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, domain.ErrInsufficientFunds)
			failed++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assert.True(t, testutil.GetBalance(t, db, aliceUSD.ID).Equal(dec(t, "30.00")))
	assert.True(t, testutil.GetBalance(t, db, bobUSD.ID).Equal(dec(t, "70.00")))
}

func TestExchange_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransactionService(t, db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice", "Johnson")
	usd := testutil.SeedAccount(t, db, alice.ID, domain.CurrencyUSD, "1000.00")
	eur := testutil.SeedAccount(t, db, alice.ID, domain.CurrencyEUR, "500.00")

	txn, err := svc.Exchange(ctx, alice.ID, transaction.ExchangeRequest{
		FromCurrency: domain.CurrencyUSD,
		ToCurrency:   domain.CurrencyEUR,
		Amount:       dec(t, "100.00"),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, domain.TransactionTypeExchange, txn.Type)
	require.NotNil(t, txn.ExchangeRate)
	require.NotNil(t, txn.ConvertedAmount)
	assert.True(t, txn.ExchangeRate.Equal(dec(t, "0.92")))
	assert.True(t, txn.ConvertedAmount.Equal(dec(t, "92.00")))

	assert.True(t, testutil.GetBalance(t, db, usd.ID).Equal(dec(t, "900.00")))
	assert.True(t, testutil.GetBalance(t, db, eur.ID).Equal(dec(t, "592.00")))
	assert.Equal(t, 2, testutil.CountLedgerEntries(t, db, txn.ID))
}

func TestExchange_RoundedConversionCompletes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransactionService(t, db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice", "Johnson")
	usd := testutil.SeedAccount(t, db, alice.ID, domain.CurrencyUSD, "1000.00")
	eur := testutil.SeedAccount(t, db, alice.ID, domain.CurrencyEUR, "500.00")

	// 100.06 * 0.92 = 92.0552, which rounds up to 92.06. The journal legs
	// then differ by just over half a cent once normalized; the exchange
	// must still verify and complete.
	txn, err := svc.Exchange(ctx, alice.ID, transaction.ExchangeRequest{
		FromCurrency: domain.CurrencyUSD,
		ToCurrency:   domain.CurrencyEUR,
		Amount:       dec(t, "100.06"),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
	require.NotNil(t, txn.ConvertedAmount)
	assert.True(t, txn.ConvertedAmount.Equal(dec(t, "92.06")))

	assert.True(t, testutil.GetBalance(t, db, usd.ID).Equal(dec(t, "899.94")))
	assert.True(t, testutil.GetBalance(t, db, eur.ID).Equal(dec(t, "592.06")))
	assert.Equal(t, 2, testutil.CountLedgerEntries(t, db, txn.ID))
}

func TestExchange_EURToUSDUsesInverseRate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransactionService(t, db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice", "Johnson")
	usd := testutil.SeedAccount(t, db, alice.ID, domain.CurrencyUSD, "0.00")
	eur := testutil.SeedAccount(t, db, alice.ID, domain.CurrencyEUR, "500.00")

	txn, err := svc.Exchange(ctx, alice.ID, transaction.ExchangeRequest{
		FromCurrency: domain.CurrencyEUR,
		ToCurrency:   domain.CurrencyUSD,
		Amount:       dec(t, "92.00"),
	})

	require.NoError(t, err)
	// round2(1/0.92) = 1.09; 92 * 1.09 = 100.28
	assert.True(t, txn.ExchangeRate.Equal(dec(t, "1.09")))
	assert.True(t, testutil.GetBalance(t, db, eur.ID).Equal(dec(t, "408.00")))
	assert.True(t, testutil.GetBalance(t, db, usd.ID).Equal(dec(t, "100.28")))
}

func TestExchange_SameCurrencyRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransactionService(t, db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice", "Johnson")
	testutil.SeedAccount(t, db, alice.ID, domain.CurrencyUSD, "1000.00")

	_, err := svc.Exchange(ctx, alice.ID, transaction.ExchangeRequest{
		FromCurrency: domain.CurrencyUSD,
		ToCurrency:   domain.CurrencyUSD,
		Amount:       dec(t, "100.00"),
	})

	require.ErrorIs(t, err, domain.ErrSameCurrencyExchange)
	assert.Equal(t, 0, testutil.CountTransactions(t, db))
}

func TestExchange_InsufficientFunds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransactionService(t, db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice", "Johnson")
	usd := testutil.SeedAccount(t, db, alice.ID, domain.CurrencyUSD, "50.00")
	eur := testutil.SeedAccount(t, db, alice.ID, domain.CurrencyEUR, "0.00")

	_, err := svc.Exchange(ctx, alice.ID, transaction.ExchangeRequest{
		FromCurrency: domain.CurrencyUSD,
		ToCurrency:   domain.CurrencyEUR,
		Amount:       dec(t, "100.00"),
	})

	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.True(t, testutil.GetBalance(t, db, usd.ID).Equal(dec(t, "50.00")))
	assert.True(t, testutil.GetBalance(t, db, eur.ID).IsZero())
}

func TestHistory_PaginationAndDirection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransactionService(t, db)
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice", "Johnson")
	bob := testutil.SeedUser(t, db, "bob@test.com", "Bob", "Smith")
	testutil.SeedAccount(t, db, alice.ID, domain.CurrencyUSD, "1000.00")
	testutil.SeedAccount(t, db, alice.ID, domain.CurrencyEUR, "500.00")
	testutil.SeedAccount(t, db, bob.ID, domain.CurrencyUSD, "500.00")

	for range 3 {
		_, err := svc.Transfer(ctx, alice.ID, transaction.TransferRequest{
			ToUserID: bob.ID,
			Currency: domain.CurrencyUSD,
			Amount:   dec(t, "10.00"),
		})
		require.NoError(t, err)
	}
	_, err := svc.Transfer(ctx, bob.ID, transaction.TransferRequest{
		ToUserID: alice.ID,
		Currency: domain.CurrencyUSD,
		Amount:   dec(t, "5.00"),
	})
	require.NoError(t, err)
	_, err = svc.Exchange(ctx, alice.ID, transaction.ExchangeRequest{
		FromCurrency: domain.CurrencyUSD,
		ToCurrency:   domain.CurrencyEUR,
		Amount:       dec(t, "20.00"),
	})
	require.NoError(t, err)

	page, err := svc.GetHistory(ctx, alice.ID, transaction.HistoryQuery{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Items, 2)
	// Newest first: the exchange, then bob's transfer back.
	assert.Equal(t, domain.TransactionTypeExchange, page.Items[0].Type)
	assert.True(t, page.Items[0].IsDebit)
	assert.Equal(t, domain.TransactionTypeTransfer, page.Items[1].Type)
	assert.False(t, page.Items[1].IsDebit)

	page2, err := svc.GetHistory(ctx, alice.ID, transaction.HistoryQuery{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page2.Items, 1)

	// Type filter.
	exType := domain.TransactionTypeExchange
	filtered, err := svc.GetHistory(ctx, alice.ID, transaction.HistoryQuery{Type: &exType})
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Total)

	// Bob sees only the transfers that touch his account.
	bobPage, err := svc.GetHistory(ctx, bob.ID, transaction.HistoryQuery{})
	require.NoError(t, err)
	assert.Equal(t, 4, bobPage.Total)
	assert.True(t, bobPage.Items[0].IsDebit)

	recent, err := svc.GetRecent(ctx, alice.ID, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 5)
}

func TestLedgerReconciliation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransactionService(t, db)
	journal := ledger.NewJournal(repository.NewLedgerRepository(db))
	ctx := context.Background()

	alice := testutil.SeedUser(t, db, "alice@test.com", "Alice", "Johnson")
	bob := testutil.SeedUser(t, db, "bob@test.com", "Bob", "Smith")
	aliceUSD := testutil.SeedAccount(t, db, alice.ID, domain.CurrencyUSD, "0.00")
	bobUSD := testutil.SeedAccount(t, db, bob.ID, domain.CurrencyUSD, "300.00")

	// Fund alice through a transfer so her full balance comes from entries.
	_, err := svc.Transfer(ctx, bob.ID, transaction.TransferRequest{
		ToUserID: alice.ID,
		Currency: domain.CurrencyUSD,
		Amount:   dec(t, "120.50"),
	})
	require.NoError(t, err)

	calc, err := journal.CalculateBalance(ctx, aliceUSD.ID)
	require.NoError(t, err)
	assert.True(t, calc.Equal(dec(t, "120.50")))
	assert.True(t, testutil.GetBalance(t, db, aliceUSD.ID).Equal(calc))

	// Bob was seeded directly, so his entries only cover the debit.
	bobCalc, err := journal.CalculateBalance(ctx, bobUSD.ID)
	require.NoError(t, err)
	assert.True(t, bobCalc.Equal(dec(t, "-120.50")))
}
