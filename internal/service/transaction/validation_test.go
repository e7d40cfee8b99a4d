package transaction

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/fx"
)

// fakeAccounts resolves accounts from a map keyed by user and currency, so
// validation paths can run without a database.
type fakeAccounts struct {
	byUser map[uuid.UUID]map[domain.Currency]*domain.Account
}

func (f *fakeAccounts) GetByUserAndCurrency(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Account, error) {
	if a, ok := f.byUser[userID][currency]; ok {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (f *fakeAccounts) GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	var out []domain.Account
	for _, a := range f.byUser[userID] {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeAccounts) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error) {
	return nil, domain.ErrAccountNotFound
}

func (f *fakeAccounts) AdjustBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta decimal.Decimal) (*domain.Account, error) {
	return nil, domain.ErrAccountNotFound
}

func account(userID uuid.UUID, currency domain.Currency) *domain.Account {
	return &domain.Account{ID: uuid.New(), UserID: userID, Currency: currency, Active: true}
}

func newValidationService(accounts accountStore) *Service {
	return &Service{
		accounts: accounts,
		rates:    fx.NewRateService(0.92),
	}
}

func TestTransferValidation(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	accounts := &fakeAccounts{byUser: map[uuid.UUID]map[domain.Currency]*domain.Account{
		alice: {domain.CurrencyUSD: account(alice, domain.CurrencyUSD)},
		bob:   {domain.CurrencyUSD: account(bob, domain.CurrencyUSD)},
	}}
	svc := newValidationService(accounts)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     TransferRequest
		wantErr error
	}{
		{
			name:    "unknown currency",
			req:     TransferRequest{ToUserID: bob, Currency: "GBP", Amount: decimal.NewFromInt(10)},
			wantErr: domain.ErrInvalidCurrency,
		},
		{
			name:    "zero amount",
			req:     TransferRequest{ToUserID: bob, Currency: domain.CurrencyUSD, Amount: decimal.Zero},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			req:     TransferRequest{ToUserID: bob, Currency: domain.CurrencyUSD, Amount: decimal.NewFromInt(-5)},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "sub-cent amount rounds to zero",
			req:     TransferRequest{ToUserID: bob, Currency: domain.CurrencyUSD, Amount: decimal.RequireFromString("0.004")},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "self transfer",
			req:     TransferRequest{ToUserID: alice, Currency: domain.CurrencyUSD, Amount: decimal.NewFromInt(10)},
			wantErr: domain.ErrSelfTransfer,
		},
		{
			name:    "recipient has no account",
			req:     TransferRequest{ToUserID: uuid.New(), Currency: domain.CurrencyUSD, Amount: decimal.NewFromInt(10)},
			wantErr: domain.ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Transfer(ctx, alice, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExchangeValidation(t *testing.T) {
	alice := uuid.New()
	accounts := &fakeAccounts{byUser: map[uuid.UUID]map[domain.Currency]*domain.Account{
		alice: {
			domain.CurrencyUSD: account(alice, domain.CurrencyUSD),
			domain.CurrencyEUR: account(alice, domain.CurrencyEUR),
		},
	}}
	svc := newValidationService(accounts)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     ExchangeRequest
		wantErr error
	}{
		{
			name:    "same currency",
			req:     ExchangeRequest{FromCurrency: domain.CurrencyUSD, ToCurrency: domain.CurrencyUSD, Amount: decimal.NewFromInt(10)},
			wantErr: domain.ErrSameCurrencyExchange,
		},
		{
			name:    "unsupported source currency",
			req:     ExchangeRequest{FromCurrency: "GBP", ToCurrency: domain.CurrencyUSD, Amount: decimal.NewFromInt(10)},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:    "zero amount",
			req:     ExchangeRequest{FromCurrency: domain.CurrencyUSD, ToCurrency: domain.CurrencyEUR, Amount: decimal.Zero},
			wantErr: domain.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Exchange(ctx, alice, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRatePairValidation(t *testing.T) {
	svc := newValidationService(&fakeAccounts{})

	_, err := svc.GetExchangeRate("GBP", domain.CurrencyUSD)
	require.ErrorIs(t, err, domain.ErrInvalidCurrencyPair)

	rate, err := svc.GetExchangeRate(domain.CurrencyUSD, domain.CurrencyEUR)
	require.NoError(t, err)
	require.Equal(t, "0.92", rate.String())
}
