package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/config"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/domain"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/fx"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/handler"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/ledger"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/logging"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/middleware"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/notify"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/repository"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/service/transaction"
	"github.com/OLUWATOSIN-sys/MiniBankPlatform/internal/service/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("minibank-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	app, err := buildApp(cfg, db)
	if err != nil {
		slog.Error("failed to wire application", "error", err)
		os.Exit(1)
	}

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	go app.dispatcher.Run(dispatcherCtx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.routes(cfg.JWTSecret),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stopDispatcher()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

type app struct {
	health       *handler.HealthHandler
	auth         *handler.AuthHandler
	accounts     *handler.AccountHandler
	transactions *handler.TransactionHandler
	audits       *handler.AuditHandler
	dispatcher   *notify.Dispatcher
}

func buildApp(cfg *config.Config, db *sql.DB) (*app, error) {
	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	journal := ledger.NewJournal(ledgerRepo)
	rates := fx.NewRateService(cfg.USDToEURRate)
	uowTimeout := time.Duration(cfg.TxTimeoutS) * time.Second

	seeds, err := accountSeeds(cfg)
	if err != nil {
		return nil, err
	}

	userSvc := user.NewService(db, userRepo, accountRepo, transactionRepo, journal, auditRepo, seeds, uowTimeout)
	txnSvc := transaction.NewService(db, transactionRepo, accountRepo, journal, auditRepo, rates, uowTimeout)

	outbox := notify.NewOutbox(notificationRepo)
	dispatcher := notify.NewDispatcher(db, notificationRepo, notify.LogSink{},
		time.Duration(cfg.NotifyPollIntervalS)*time.Second, cfg.NotifyBatchSize)

	return &app{
		health:       handler.NewHealthHandler(db),
		auth:         handler.NewAuthHandler(userSvc, cfg.JWTSecret, time.Duration(cfg.JWTExpiryH)*time.Hour),
		accounts:     handler.NewAccountHandler(accountRepo, journal),
		transactions: handler.NewTransactionHandler(txnSvc, outbox),
		audits:       handler.NewAuditHandler(auditRepo),
		dispatcher:   dispatcher,
	}, nil
}

func accountSeeds(cfg *config.Config) ([]user.Seed, error) {
	usd, err := decimal.NewFromString(cfg.InitialBalanceUSD)
	if err != nil {
		return nil, fmt.Errorf("accountSeeds: INITIAL_BALANCE_USD: %w", err)
	}
	eur, err := decimal.NewFromString(cfg.InitialBalanceEUR)
	if err != nil {
		return nil, fmt.Errorf("accountSeeds: INITIAL_BALANCE_EUR: %w", err)
	}
	return []user.Seed{
		{Currency: domain.CurrencyUSD, Balance: usd},
		{Currency: domain.CurrencyEUR, Balance: eur},
	}, nil
}

func (a *app) routes(jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", a.health.Liveness)
	mux.HandleFunc("GET /health/ready", a.health.Readiness)

	mux.HandleFunc("POST /api/v1/auth/register", a.auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", a.auth.Login)

	authed := middleware.Auth(jwtSecret)

	mux.Handle("GET /api/v1/me", authed(http.HandlerFunc(a.auth.Me)))
	mux.Handle("GET /api/v1/accounts", authed(http.HandlerFunc(a.accounts.List)))
	mux.Handle("GET /api/v1/accounts/{id}/entries", authed(http.HandlerFunc(a.accounts.Entries)))
	mux.Handle("GET /api/v1/accounts/{id}/balance", authed(http.HandlerFunc(a.accounts.Balance)))

	mux.Handle("POST /api/v1/transactions/transfer", authed(http.HandlerFunc(a.transactions.Transfer)))
	mux.Handle("POST /api/v1/transactions/exchange", authed(http.HandlerFunc(a.transactions.Exchange)))
	mux.Handle("GET /api/v1/transactions", authed(http.HandlerFunc(a.transactions.History)))
	mux.Handle("GET /api/v1/transactions/recent", authed(http.HandlerFunc(a.transactions.Recent)))
	mux.Handle("GET /api/v1/transactions/{id}", authed(http.HandlerFunc(a.transactions.Get)))
	mux.Handle("GET /api/v1/exchange-rate", authed(http.HandlerFunc(a.transactions.ExchangeRate)))
	mux.Handle("GET /api/v1/audit-logs", authed(http.HandlerFunc(a.audits.List)))

	return middleware.RequestID(middleware.Logging(middleware.Recovery(mux)))
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var lastErr error
	for i := range 30 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool)
		cancel()
		if err == nil {
			return db, nil
		}
		lastErr = err
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", lastErr)
}
