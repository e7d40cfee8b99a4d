package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
)

func SeedUser(t *testing.T, db *sql.DB, email, firstName, lastName string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, password_hash, first_name, last_name, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Active, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func SeedAccount(t *testing.T, db *sql.DB, userID uuid.UUID, currency domain.Currency, balance string) *domain.Account {
	t.Helper()

	bal, err := decimal.NewFromString(balance)
	if err != nil {
		t.Fatalf("parse balance %q: %v", balance, err)
	}
	now := time.Now().UTC()
	a := &domain.Account{
		ID:        uuid.New(),
		UserID:    userID,
		Currency:  currency,
		Balance:   bal,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = db.Exec(
		`INSERT INTO accounts (id, user_id, currency, balance, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.UserID, a.Currency, a.Balance, a.Active, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed account %s/%s: %v", userID, currency, err)
	}
	return a
}

func GetBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	if err := db.QueryRow(`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance); err != nil {
		t.Fatalf("get balance %s: %v", accountID, err)
	}
	return balance
}

func CountLedgerEntries(t *testing.T, db *sql.DB, transactionID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM ledger_entries WHERE transaction_id = $1`, transactionID).Scan(&count)
	if err != nil {
		t.Fatalf("count ledger entries for transaction %s: %v", transactionID, err)
	}
	return count
}

func CountTransactions(t *testing.T, db *sql.DB) int {
	t.Helper()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return count
}

func GetTransactionStatus(t *testing.T, db *sql.DB, transactionID uuid.UUID) string {
	t.Helper()

	var status string
	err := db.QueryRow(`SELECT status FROM transactions WHERE id = $1`, transactionID).Scan(&status)
	if err != nil {
		t.Fatalf("get transaction status %s: %v", transactionID, err)
	}
	return status
}
