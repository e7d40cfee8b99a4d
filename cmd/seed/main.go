// Command seed provisions demo users through the normal registration path,
// so their opening balances carry transactions and journal entries like any
// real money. Safe to re-run: existing emails are skipped.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/config"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/ledger"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/logging"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/repository"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/service/user"
)

const demoPassword = "password123"

var demoBalance = decimal.NewFromInt(25000)

var demoUsers = []struct {
	email     string
	firstName string
	lastName  string
}{
	{"alice.johnson@minibank.com", "Alice", "Johnson"},
	{"bob.smith@minibank.com", "Bob", "Smith"},
	{"charlie.brown@minibank.com", "Charlie", "Brown"},
	{"o.olaniran@minibank.com", "Oluwatosin", "Olaniran"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("minibank-seed", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     5,
		MaxIdleConns:     2,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	journal := ledger.NewJournal(repository.NewLedgerRepository(db))

	seeds := []user.Seed{
		{Currency: domain.CurrencyUSD, Balance: demoBalance},
		{Currency: domain.CurrencyEUR, Balance: demoBalance},
	}
	svc := user.NewService(db, userRepo, accountRepo, transactionRepo, journal, auditRepo, seeds,
		time.Duration(cfg.TxTimeoutS)*time.Second)

	for _, d := range demoUsers {
		u, accounts, err := svc.Register(ctx, user.RegisterRequest{
			Email:     d.email,
			Password:  demoPassword,
			FirstName: d.firstName,
			LastName:  d.lastName,
		})
		if err != nil {
			if errors.Is(err, domain.ErrEmailExists) {
				slog.Info("user already seeded", "email", d.email)
				continue
			}
			slog.Error("failed to seed user", "email", d.email, "error", err)
			os.Exit(1)
		}
		slog.Info("seeded user", "email", u.Email, "accounts", len(accounts))
	}
}
