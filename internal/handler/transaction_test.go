package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/auth"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/service/transaction"
)

type stubTransactionService struct {
	transferErr error
	lastReq     transaction.TransferRequest
}

func (s *stubTransactionService) Transfer(ctx context.Context, userID uuid.UUID, req transaction.TransferRequest) (*domain.Transaction, error) {
	s.lastReq = req
	if s.transferErr != nil {
		return nil, s.transferErr
	}
	return &domain.Transaction{
		ID:            uuid.New(),
		Type:          domain.TransactionTypeTransfer,
		Status:        domain.TransactionStatusCompleted,
		FromAccountID: uuid.New(),
		Amount:        req.Amount,
		Currency:      req.Currency,
	}, nil
}

func (s *stubTransactionService) Exchange(ctx context.Context, userID uuid.UUID, req transaction.ExchangeRequest) (*domain.Transaction, error) {
	return nil, domain.ErrSameCurrencyExchange
}

func (s *stubTransactionService) GetHistory(ctx context.Context, userID uuid.UUID, q transaction.HistoryQuery) (*transaction.HistoryPage, error) {
	return &transaction.HistoryPage{Page: q.Page, Limit: q.Limit}, nil
}

func (s *stubTransactionService) GetRecent(ctx context.Context, userID uuid.UUID, limit int) ([]transaction.HistoryItem, error) {
	return nil, nil
}

func (s *stubTransactionService) GetTransaction(ctx context.Context, userID, transactionID uuid.UUID) (*domain.Transaction, error) {
	return nil, domain.ErrNotFound
}

func (s *stubTransactionService) GetExchangeRate(from, to domain.Currency) (decimal.Decimal, error) {
	return decimal.RequireFromString("0.92"), nil
}

type noopNotifier struct{}

func (noopNotifier) NotifyTransaction(ctx context.Context, txn *domain.Transaction, userIDs ...uuid.UUID) {
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := auth.ContextWithUserID(req.Context(), uuid.New())
	return req.WithContext(ctx)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestTransferRejectsMalformedBody(t *testing.T) {
	h := NewTransactionHandler(&stubTransactionService{}, noopNotifier{})

	rec := httptest.NewRecorder()
	h.Transfer(rec, authedRequest(http.MethodPost, "/api/v1/transactions/transfer", "{not json"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
}

func TestTransferValidatesFields(t *testing.T) {
	h := NewTransactionHandler(&stubTransactionService{}, noopNotifier{})

	body := `{"toUserId":"not-a-uuid","currency":"GBP","amount":"-3"}`
	rec := httptest.NewRecorder()
	h.Transfer(rec, authedRequest(http.MethodPost, "/api/v1/transactions/transfer", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}

func TestTransferMapsDomainErrors(t *testing.T) {
	tests := []struct {
		err      error
		wantCode string
		wantHTTP int
	}{
		{domain.ErrInsufficientFunds, "INSUFFICIENT_FUNDS", http.StatusUnprocessableEntity},
		{domain.ErrSelfTransfer, "SELF_TRANSFER_NOT_ALLOWED", http.StatusUnprocessableEntity},
		{domain.ErrAccountNotFound, "ACCOUNT_NOT_FOUND", http.StatusUnprocessableEntity},
		{domain.ErrLedgerImbalance, "LEDGER_IMBALANCE", http.StatusInternalServerError},
	}

	body := `{"toUserId":"` + uuid.NewString() + `","currency":"USD","amount":"25.00"}`
	for _, tt := range tests {
		h := NewTransactionHandler(&stubTransactionService{transferErr: tt.err}, noopNotifier{})
		rec := httptest.NewRecorder()
		h.Transfer(rec, authedRequest(http.MethodPost, "/api/v1/transactions/transfer", body))

		assert.Equal(t, tt.wantHTTP, rec.Code)
		resp := decodeResponse(t, rec)
		assert.Equal(t, tt.wantCode, resp.Error.Code)
	}
}

func TestTransferParsesDecimalAmount(t *testing.T) {
	stub := &stubTransactionService{}
	h := NewTransactionHandler(stub, noopNotifier{})

	body := `{"toUserId":"` + uuid.NewString() + `","currency":"USD","amount":"250.50"}`
	rec := httptest.NewRecorder()
	h.Transfer(rec, authedRequest(http.MethodPost, "/api/v1/transactions/transfer", body))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, stub.lastReq.Amount.Equal(decimal.RequireFromString("250.50")))
	assert.Equal(t, domain.CurrencyUSD, stub.lastReq.Currency)
}

func TestTransferRequiresAuth(t *testing.T) {
	h := NewTransactionHandler(&stubTransactionService{}, noopNotifier{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/transfer", strings.NewReader(`{}`))
	h.Transfer(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHistoryRejectsUnknownType(t *testing.T) {
	h := NewTransactionHandler(&stubTransactionService{}, noopNotifier{})

	rec := httptest.NewRecorder()
	h.History(rec, authedRequest(http.MethodGet, "/api/v1/transactions?type=WITHDRAWAL", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}
