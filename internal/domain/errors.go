package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrSelfTransfer         = errors.New("cannot transfer to yourself")
	ErrSameCurrencyExchange = errors.New("cannot exchange to the same currency")
	ErrInvalidCurrencyPair  = errors.New("invalid currency exchange pair")
	ErrInvalidCurrency      = errors.New("invalid currency")
	ErrLedgerImbalance      = errors.New("ledger entries are not balanced")
	ErrEmailExists          = errors.New("email already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
)
