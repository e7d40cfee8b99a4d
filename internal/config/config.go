package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	JWTExpiryH  int    `env:"JWT_EXPIRY_H" envDefault:"24"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	// USDToEURRate is the process-wide exchange rate, read once at startup.
	// The EUR->USD direction is derived as round2(1/rate).
	USDToEURRate float64 `env:"USD_TO_EUR_RATE" envDefault:"0.92"`

	InitialBalanceUSD string `env:"INITIAL_BALANCE_USD" envDefault:"1000.00"`
	InitialBalanceEUR string `env:"INITIAL_BALANCE_EUR" envDefault:"500.00"`

	// TxTimeoutS bounds a single unit of work; expiry triggers rollback.
	TxTimeoutS int `env:"TX_TIMEOUT_S" envDefault:"10"`

	NotifyPollIntervalS int `env:"NOTIFY_POLL_INTERVAL_S" envDefault:"2"`
	NotifyBatchSize     int `env:"NOTIFY_BATCH_SIZE" envDefault:"50"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
