// Package user handles registration and credential checks. Registration
// seeds one account per supported currency, each funded by an
// INITIAL_DEPOSIT transaction, all inside a single unit of work.
package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/logging"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/money"
)

type userRepo interface {
	Create(ctx context.Context, tx *sql.Tx, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type accountStore interface {
	Create(ctx context.Context, tx *sql.Tx, account *domain.Account) error
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
	AdjustBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta decimal.Decimal) (*domain.Account, error)
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
	MarkCompleted(ctx context.Context, tx *sql.Tx, id uuid.UUID, now time.Time) error
}

type journal interface {
	RecordDeposit(ctx context.Context, tx *sql.Tx, accountID, transactionID uuid.UUID, amount, balanceAfter decimal.Decimal) (*domain.LedgerEntry, error)
}

type auditRepo interface {
	Create(ctx context.Context, tx *sql.Tx, entry *domain.AuditLog) error
}

// Seed lists the opening balance per currency for new users.
type Seed struct {
	Currency domain.Currency
	Balance  decimal.Decimal
}

type Service struct {
	db           *sql.DB
	users        userRepo
	accounts     accountStore
	transactions transactionRepo
	journal      journal
	audits       auditRepo
	seeds        []Seed
	uowTimeout   time.Duration
}

func NewService(
	db *sql.DB,
	users userRepo,
	accounts accountStore,
	transactions transactionRepo,
	journal journal,
	audits auditRepo,
	seeds []Seed,
	uowTimeout time.Duration,
) *Service {
	return &Service{
		db:           db,
		users:        users,
		accounts:     accounts,
		transactions: transactions,
		journal:      journal,
		audits:       audits,
		seeds:        seeds,
		uowTimeout:   uowTimeout,
	}
}

type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates the user and their seeded currency accounts. The user
// row, every account, and every opening deposit commit together; a failure
// at any point leaves no trace of the registration.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, []domain.Account, error) {
	log := logging.FromContext(ctx)

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, fmt.Errorf("Register: %w", domain.ErrEmailExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, fmt.Errorf("Register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("Register: hash password: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.uowTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("Register: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, tx, u); err != nil {
		return nil, nil, fmt.Errorf("Register: create user: %w", err)
	}

	accounts := make([]domain.Account, 0, len(s.seeds))
	for _, seed := range s.seeds {
		acct, err := s.openAccount(ctx, tx, u.ID, seed)
		if err != nil {
			return nil, nil, fmt.Errorf("Register: %w", err)
		}
		accounts = append(accounts, *acct)
	}

	if err := s.writeAudit(ctx, tx, u.ID, domain.AuditUserRegister, u.ID, "user", map[string]any{
		"email":     u.Email,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
	}, "User registered"); err != nil {
		return nil, nil, fmt.Errorf("Register: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("Register: commit: %w", err)
	}

	log.Info("user registered", "user_id", u.ID, "email", u.Email, "accounts", len(accounts))
	return u, accounts, nil
}

// openAccount creates a zero-balance account, then funds it through the
// normal movement path so the opening balance has a transaction and a
// journal entry behind it like any other money.
func (s *Service) openAccount(ctx context.Context, tx *sql.Tx, userID uuid.UUID, seed Seed) (*domain.Account, error) {
	now := time.Now().UTC()
	acct := &domain.Account{
		ID:        uuid.New(),
		UserID:    userID,
		Currency:  seed.Currency,
		Balance:   decimal.Zero,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.accounts.Create(ctx, tx, acct); err != nil {
		return nil, fmt.Errorf("openAccount: %w", err)
	}

	amount := money.Round2(seed.Balance)
	if !amount.IsPositive() {
		return acct, nil
	}

	txn := &domain.Transaction{
		ID:            uuid.New(),
		Type:          domain.TransactionTypeInitialDeposit,
		Status:        domain.TransactionStatusPending,
		FromAccountID: acct.ID,
		Amount:        amount,
		Currency:      seed.Currency,
		Description:   "Initial deposit",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("openAccount: create deposit: %w", err)
	}

	updated, err := s.accounts.AdjustBalance(ctx, tx, acct.ID, amount)
	if err != nil {
		return nil, fmt.Errorf("openAccount: fund: %w", err)
	}

	if _, err := s.journal.RecordDeposit(ctx, tx, acct.ID, txn.ID, amount, updated.Balance); err != nil {
		return nil, fmt.Errorf("openAccount: %w", err)
	}

	if err := s.transactions.MarkCompleted(ctx, tx, txn.ID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("openAccount: %w", err)
	}

	if err := s.writeAudit(ctx, tx, userID, domain.AuditAccountCreate, acct.ID, "account", map[string]any{
		"currency": seed.Currency,
		"balance":  updated.Balance,
	}, fmt.Sprintf("%s account opened", seed.Currency)); err != nil {
		return nil, fmt.Errorf("openAccount: %w", err)
	}

	acct.Balance = updated.Balance
	return acct, nil
}

// Authenticate checks the credentials and returns the user. Missing users
// and wrong passwords both come back as ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Authenticate: %w", domain.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("Authenticate: %w", err)
	}
	if !u.Active {
		return nil, fmt.Errorf("Authenticate: %w", domain.ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("Authenticate: %w", domain.ErrInvalidCredentials)
	}
	return u, nil
}

// GetProfile returns the user together with their accounts.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, []domain.Account, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("GetProfile: %w", err)
	}
	accounts, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("GetProfile: %w", err)
	}
	return u, accounts, nil
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
