package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/auth"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/logging"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/service/transaction"
)

type transactionService interface {
	Transfer(ctx context.Context, userID uuid.UUID, req transaction.TransferRequest) (*domain.Transaction, error)
	Exchange(ctx context.Context, userID uuid.UUID, req transaction.ExchangeRequest) (*domain.Transaction, error)
	GetHistory(ctx context.Context, userID uuid.UUID, q transaction.HistoryQuery) (*transaction.HistoryPage, error)
	GetRecent(ctx context.Context, userID uuid.UUID, limit int) ([]transaction.HistoryItem, error)
	GetTransaction(ctx context.Context, userID, transactionID uuid.UUID) (*domain.Transaction, error)
	GetExchangeRate(from, to domain.Currency) (decimal.Decimal, error)
}

type notifier interface {
	NotifyTransaction(ctx context.Context, txn *domain.Transaction, userIDs ...uuid.UUID)
}

type TransactionHandler struct {
	transactions transactionService
	notify       notifier
}

func NewTransactionHandler(transactions transactionService, notify notifier) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, notify: notify}
}

type transferRequest struct {
	ToUserID    string `json:"toUserId"`
	Currency    string `json:"currency"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (r transferRequest) Validate() []FieldError {
	var errs []FieldError
	if r.ToUserID == "" {
		errs = append(errs, FieldError{Field: "toUserId", Message: "required"})
	} else if _, err := uuid.Parse(r.ToUserID); err != nil {
		errs = append(errs, FieldError{Field: "toUserId", Message: "must be a valid id"})
	}
	if r.Currency == "" {
		errs = append(errs, FieldError{Field: "currency", Message: "required"})
	} else if !domain.Currency(r.Currency).IsValid() {
		errs = append(errs, FieldError{Field: "currency", Message: "must be USD or EUR"})
	}
	validateAmount(r.Amount, &errs, "amount")
	return errs
}

type exchangeRequest struct {
	FromCurrency string `json:"fromCurrency"`
	ToCurrency   string `json:"toCurrency"`
	Amount       string `json:"amount"`
}

func (r exchangeRequest) Validate() []FieldError {
	var errs []FieldError
	if r.FromCurrency == "" {
		errs = append(errs, FieldError{Field: "fromCurrency", Message: "required"})
	} else if !domain.Currency(r.FromCurrency).IsValid() {
		errs = append(errs, FieldError{Field: "fromCurrency", Message: "must be USD or EUR"})
	}
	if r.ToCurrency == "" {
		errs = append(errs, FieldError{Field: "toCurrency", Message: "required"})
	} else if !domain.Currency(r.ToCurrency).IsValid() {
		errs = append(errs, FieldError{Field: "toCurrency", Message: "must be USD or EUR"})
	}
	validateAmount(r.Amount, &errs, "amount")
	return errs
}

// validateAmount parses a decimal string and requires it positive. Amounts
// travel as strings so client float formatting can never corrupt them.
func validateAmount(raw string, errs *[]FieldError, field string) {
	if raw == "" {
		*errs = append(*errs, FieldError{Field: field, Message: "required"})
		return
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		*errs = append(*errs, FieldError{Field: field, Message: "must be a decimal number"})
		return
	}
	if !d.IsPositive() {
		*errs = append(*errs, FieldError{Field: field, Message: "must be greater than 0"})
	}
}

type transactionDTO struct {
	ID              uuid.UUID        `json:"id"`
	Type            string           `json:"type"`
	Status          string           `json:"status"`
	FromAccountID   uuid.UUID        `json:"fromAccountId"`
	ToAccountID     *uuid.UUID       `json:"toAccountId"`
	Amount          decimal.Decimal  `json:"amount"`
	Currency        string           `json:"currency"`
	ExchangeRate    *decimal.Decimal `json:"exchangeRate,omitempty"`
	ConvertedAmount *decimal.Decimal `json:"convertedAmount,omitempty"`
	Description     string           `json:"description"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	return transactionDTO{
		ID:              t.ID,
		Type:            string(t.Type),
		Status:          string(t.Status),
		FromAccountID:   t.FromAccountID,
		ToAccountID:     t.ToAccountID,
		Amount:          t.Amount,
		Currency:        string(t.Currency),
		ExchangeRate:    t.ExchangeRate,
		ConvertedAmount: t.ConvertedAmount,
		Description:     t.Description,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

type historyItemDTO struct {
	transactionDTO
	IsDebit          bool            `json:"isDebit"`
	CounterpartyUser *uuid.UUID      `json:"counterpartyUserId,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
}

func toHistoryItemDTO(item transaction.HistoryItem) historyItemDTO {
	dto := historyItemDTO{
		transactionDTO: toTransactionDTO(&item.Transaction),
		IsDebit:        item.IsDebit,
		Metadata:       item.Metadata,
	}
	if item.ToAccount != nil {
		if item.IsDebit {
			dto.CounterpartyUser = &item.ToAccount.UserID
		} else {
			dto.CounterpartyUser = &item.FromAccount.UserID
		}
	}
	return dto
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	toUserID := uuid.MustParse(req.ToUserID)
	amount, _ := decimal.NewFromString(req.Amount)

	txn, err := h.transactions.Transfer(r.Context(), userID, transaction.TransferRequest{
		ToUserID:    toUserID,
		Currency:    domain.Currency(req.Currency),
		Amount:      amount,
		Description: req.Description,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("transfer failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	h.notify.NotifyTransaction(r.Context(), txn, userID, toUserID)
	RespondSuccess(w, http.StatusCreated, toTransactionDTO(txn))
}

func (h *TransactionHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	amount, _ := decimal.NewFromString(req.Amount)

	txn, err := h.transactions.Exchange(r.Context(), userID, transaction.ExchangeRequest{
		FromCurrency: domain.Currency(req.FromCurrency),
		ToCurrency:   domain.Currency(req.ToCurrency),
		Amount:       amount,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("exchange failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	h.notify.NotifyTransaction(r.Context(), txn, userID)
	RespondSuccess(w, http.StatusCreated, toTransactionDTO(txn))
}

func (h *TransactionHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	q := transaction.HistoryQuery{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 10),
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := domain.TransactionType(raw)
		switch t {
		case domain.TransactionTypeTransfer, domain.TransactionTypeExchange, domain.TransactionTypeInitialDeposit:
			q.Type = &t
		default:
			RespondValidationError(w, []FieldError{{Field: "type", Message: "unknown transaction type"}})
			return
		}
	}

	page, err := h.transactions.GetHistory(r.Context(), userID, q)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load history", "error", err)
		RespondDomainError(w, err)
		return
	}

	items := make([]historyItemDTO, len(page.Items))
	for i, item := range page.Items {
		items[i] = toHistoryItemDTO(item)
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"items": items,
		"total": page.Total,
		"page":  page.Page,
		"limit": page.Limit,
	})
}

func (h *TransactionHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	items, err := h.transactions.GetRecent(r.Context(), userID, queryInt(r, "limit", 5))
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load recent transactions", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]historyItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toHistoryItemDTO(item)
	}

	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	transactionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	txn, err := h.transactions.GetTransaction(r.Context(), userID, transactionID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(txn))
}

func (h *TransactionHandler) ExchangeRate(w http.ResponseWriter, r *http.Request) {
	from := domain.Currency(r.URL.Query().Get("from"))
	to := domain.Currency(r.URL.Query().Get("to"))
	if from == "" {
		from = domain.CurrencyUSD
	}
	if to == "" {
		to = domain.CurrencyEUR
	}

	rate, err := h.transactions.GetExchangeRate(from, to)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"from": from,
		"to":   to,
		"rate": rate,
	})
}
