// Package fx supplies the fixed bidirectional USD/EUR rate. The base rate is
// injected at construction from configuration; there are no runtime updates.
package fx

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/money"
)

type RateService struct {
	usdToEur decimal.Decimal
}

func NewRateService(usdToEur float64) *RateService {
	return &RateService{usdToEur: decimal.NewFromFloat(usdToEur)}
}

// GetRate returns the conversion rate from one currency to the other.
// The reverse direction is derived as round2(1/base).
func (s *RateService) GetRate(from, to domain.Currency) (decimal.Decimal, error) {
	if !from.IsValid() || !to.IsValid() {
		return decimal.Zero, fmt.Errorf("GetRate: %s/%s: %w", from, to, domain.ErrInvalidCurrencyPair)
	}

	switch {
	case from == to:
		return decimal.NewFromInt(1), nil
	case from == domain.CurrencyUSD && to == domain.CurrencyEUR:
		return s.usdToEur, nil
	case from == domain.CurrencyEUR && to == domain.CurrencyUSD:
		return money.Inverse(s.usdToEur), nil
	}
	return decimal.Zero, fmt.Errorf("GetRate: %s/%s: %w", from, to, domain.ErrInvalidCurrencyPair)
}

// Convert returns the applied rate and round2(amount * rate).
func (s *RateService) Convert(amount decimal.Decimal, from, to domain.Currency) (rate, converted decimal.Decimal, err error) {
	rate, err = s.GetRate(from, to)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("Convert: %w", err)
	}
	return rate, money.Mul(amount, rate), nil
}
