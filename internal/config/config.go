// Package config loads runtime settings for the marketplace server and its tools.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"example/marketplace/internal/logger"

	"github.com/joho/godotenv"
)

// DB describes how to reach the relational store.
type DB struct {
	Driver string // mysql or sqlite3
	User   string
	Passwd string
	Addr   string
	Name   string
	Path   string
}

// Config holds every knob read from the environment.
type Config struct {
	HTTPAddr        string
	Env             string
	DB              DB
	LedgerTimeout   time.Duration
	KafkaBrokers    []string
	KafkaTopic      string
	ShutdownTimeout time.Duration
	SinkBuffer      int
	WSURL           string
}

// Load reads a .env file if present and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		logger.Log.Debugw("No .env file found, using existing environment variables", "error", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	return Config{
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		Env:      getenv("APP_ENV", "development"),
		DB: DB{
			Driver: getenv("DB_DRIVER", "mysql"),
			User:   getenv("DBUSER", ""),
			Passwd: getenv("DBPASS", ""),
			Addr:   getenv("DB_ADDR", "127.0.0.1:3306"),
			Name:   getenv("DB_NAME", "marketplace"),
			Path:   getenv("DB_PATH", "marketplace.db"),
		},
		LedgerTimeout:   time.Duration(atoienv("LEDGER_TIMEOUT_MS", 2000)) * time.Millisecond,
		KafkaBrokers:    listenv("KAFKA_BROKERS"),
		KafkaTopic:      getenv("KAFKA_TOPIC", "marketplace.events"),
		ShutdownTimeout: time.Duration(atoienv("SHUTDOWN_TIMEOUT", 10)) * time.Second,
		SinkBuffer:      atoienv("SINK_BUFFER", 32),
		WSURL:           getenv("MARKET_WS_URL", "ws://localhost:8080/ws"),
	}
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logger.Log.Warnw("Ignoring malformed integer setting", "key", key, "value", v)
		return def
	}
	return n
}

func listenv(key string) []string {
	var out []string
	for _, part := range strings.Split(getenv(key, ""), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
