package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// Account holds a user's balance in a single currency. Each user has at most
// one account per currency, and the balance never goes below zero.
type Account struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Currency  Currency
	Balance   decimal.Decimal
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
