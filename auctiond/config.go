package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openland/landauction/core"
	"github.com/openland/landauction/engineapi"
	"github.com/openland/landauction/eventbus"
)

// Config is the daemon configuration, read from the environment.
type Config struct {
	Listen           string // tcp:<addr> or vsock:<port>
	MaxWorkers       int
	TickInterval     time.Duration
	AntiSnipeWindow  time.Duration
	PaymentGrace     time.Duration
	PenaltyDailyRate decimal.Decimal
	AMQPURL          string // empty logs events instead of publishing them
	AMQPExchange     string
	EventCodec       engineapi.Codec
	ReceiptKeyFile   string
}

func loadConfig() (*Config, error) {
	maxWorkers, err := getRequiredEnvInt("AUCTIOND_MAX_WORKERS")
	if err != nil {
		return nil, fmt.Errorf("failed to get max workers config: %w", err)
	}
	if maxWorkers < 1 {
		return nil, fmt.Errorf("AUCTIOND_MAX_WORKERS must be at least 1, got %d", maxWorkers)
	}

	cfg := &Config{
		Listen:         getEnv("AUCTIOND_LISTEN", "tcp:127.0.0.1:7450"),
		MaxWorkers:     maxWorkers,
		AMQPURL:        os.Getenv("AMQP_URL"),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", eventbus.DefaultExchange),
		ReceiptKeyFile: getEnv("RECEIPT_KEY_FILE", "receipt_key.pem"),
	}

	if cfg.TickInterval, err = getEnvDuration("AUCTIOND_TICK_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.AntiSnipeWindow, err = getEnvDuration("AUCTION_ANTI_SNIPE_WINDOW", core.DefaultAntiSnipeWindow); err != nil {
		return nil, err
	}
	if cfg.PaymentGrace, err = getEnvDuration("AUCTION_PAYMENT_GRACE", core.DefaultPaymentGracePeriod); err != nil {
		return nil, err
	}

	cfg.PenaltyDailyRate = core.DefaultPenaltyDailyRate
	if v := os.Getenv("AUCTION_PENALTY_DAILY_RATE"); v != "" {
		rate, err := decimal.NewFromString(v)
		if err != nil || rate.IsNegative() {
			return nil, fmt.Errorf("invalid value for AUCTION_PENALTY_DAILY_RATE: %s (must be a non-negative decimal)", v)
		}
		cfg.PenaltyDailyRate = rate
	}

	if cfg.EventCodec, err = engineapi.ParseCodec(os.Getenv("EVENT_CODEC")); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid value for %s: %s (must be a positive duration such as 5m or 720h)", key, value)
	}
	log.Printf("INFO: Using %s=%s from environment", key, d)
	return d, nil
}

// Helper function for required environment variable parsing
func getRequiredEnvInt(key string) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, fmt.Errorf("required environment variable %s is not set", key)
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %s (must be a valid integer)", key, value)
	}

	log.Printf("INFO: Using %s=%d from environment", key, intValue)
	return intValue, nil
}
