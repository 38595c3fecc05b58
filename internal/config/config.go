// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Broker selects the cross-instance pub/sub transport for auction events.
type Broker string

const (
	BrokerRedis Broker = "redis"
	BrokerNATS  Broker = "nats"
	BrokerNone  Broker = "none"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env       string // APP_ENV (e.g. "dev", "prod")
	Port      string // APP_PORT
	DBUser    string // DB_USER
	DBPass    string // DB_PASS (optional)
	DBHost    string // DB_HOST
	DBPort    string // DB_PORT
	DBName    string // DB_NAME
	DBMaxConn int    // DB_MAX_CONNS
	JWTSecret string // JWT_SECRET

	SweepInterval time.Duration // SWEEP_INTERVAL
	TxTimeout     time.Duration // TX_TIMEOUT
	BidRetries    int           // BID_MAX_RETRIES
	EndRetries    int           // END_MAX_RETRIES

	Broker      Broker // NOTIFY_BROKER
	NATSURL     string // NATS_URL
	RabbitMQURL string // RABBITMQ_URL, empty disables the auction.ended queue
	HubBuffer   int    // HUB_BUFFER

	LogLevel  string // LOG_LEVEL
	LogFormat string // LOG_FORMAT: json or console
}

var required = []string{"APP_ENV", "APP_PORT", "DB_USER", "DB_HOST", "DB_PORT", "DB_NAME", "JWT_SECRET"}

// Load reads .env when present, then the environment.  A missing required
// variable is fatal.
func Load() Config {
	_ = godotenv.Load()
	cfg, err := FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	return cfg
}

// FromEnv builds a Config from the current environment.
func FromEnv() (Config, error) {
	var missing []string
	for _, k := range required {
		if os.Getenv(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}

	cfg := Config{
		Env:           os.Getenv("APP_ENV"),
		Port:          os.Getenv("APP_PORT"),
		DBUser:        os.Getenv("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        os.Getenv("DB_PORT"),
		DBName:        os.Getenv("DB_NAME"),
		DBMaxConn:     envInt("DB_MAX_CONNS", 25),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		SweepInterval: envDur("SWEEP_INTERVAL", time.Minute),
		TxTimeout:     envDur("TX_TIMEOUT", 5*time.Second),
		BidRetries:    envInt("BID_MAX_RETRIES", 5),
		EndRetries:    envInt("END_MAX_RETRIES", 3),
		Broker:        Broker(strings.ToLower(envStr("NOTIFY_BROKER", string(BrokerRedis)))),
		NATSURL:       envStr("NATS_URL", "nats://127.0.0.1:4222"),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		HubBuffer:     envInt("HUB_BUFFER", 16),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		LogFormat:     envStr("LOG_FORMAT", "json"),
	}
	switch cfg.Broker {
	case BrokerRedis, BrokerNATS, BrokerNone:
	default:
		return Config{}, fmt.Errorf("NOTIFY_BROKER must be redis, nats or none, got %q", cfg.Broker)
	}
	if cfg.SweepInterval <= 0 || cfg.TxTimeout <= 0 {
		return Config{}, errors.New("SWEEP_INTERVAL and TX_TIMEOUT must be positive")
	}
	return cfg, nil
}
