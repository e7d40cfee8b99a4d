package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/auth"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/logging"
)

type accountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
}

type ledgerReader interface {
	EntriesForAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, error)
	CalculateBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

type AccountHandler struct {
	accounts accountReader
	ledger   ledgerReader
}

func NewAccountHandler(accounts accountReader, ledger ledgerReader) *AccountHandler {
	return &AccountHandler{accounts: accounts, ledger: ledger}
}

type accountDTO struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Active    bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		ID:        a.ID,
		UserID:    a.UserID,
		Currency:  string(a.Currency),
		Balance:   a.Balance,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
	}
}

type ledgerEntryDTO struct {
	ID           uuid.UUID       `json:"id"`
	Transaction  uuid.UUID       `json:"transactionId"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	EntryType    string          `json:"entryType"`
	Description  string          `json:"description"`
	Metadata     any             `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	accounts, err := h.accounts.GetByUserID(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list accounts", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]accountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = toAccountDTO(&accounts[i])
	}

	RespondSuccess(w, http.StatusOK, dtos)
}

// Entries returns the ledger lines behind one of the caller's accounts,
// newest first.
func (h *AccountHandler) Entries(w http.ResponseWriter, r *http.Request) {
	account, appErr := h.ownedAccount(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	limit := queryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	offset := queryInt(r, "offset", 0)

	entries, err := h.ledger.EntriesForAccount(r.Context(), account.ID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list ledger entries", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]ledgerEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = ledgerEntryDTO{
			ID:           e.ID,
			Transaction:  e.TransactionID,
			Amount:       e.Amount,
			BalanceAfter: e.BalanceAfter,
			EntryType:    string(e.EntryType),
			Metadata:     e.Metadata,
			Description:  e.Description,
			CreatedAt:    e.CreatedAt,
		}
	}

	RespondSuccess(w, http.StatusOK, dtos)
}

// Balance reconciles the stored balance against the sum of the account's
// ledger entries.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	account, appErr := h.ownedAccount(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	calculated, err := h.ledger.CalculateBalance(r.Context(), account.ID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to calculate balance", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"accountId":         account.ID,
		"currency":          account.Currency,
		"storedBalance":     account.Balance,
		"calculatedBalance": calculated,
		"consistent":        account.Balance.Equal(calculated),
	})
}

func (h *AccountHandler) ownedAccount(r *http.Request) (*domain.Account, *AppError) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, ErrMissingToken
	}

	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, ErrResourceNotFound
	}

	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil || account.UserID != userID {
		return nil, ErrResourceNotFound
	}
	return account, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
