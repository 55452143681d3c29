package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every runtime knob of the paper trader. All values come
// from the environment with sensible defaults; the margin rate and the
// reconnect delay are reference defaults, not hard-coded constants.
type Config struct {
	Environment string

	Symbols        []string
	InitialBalance float64
	MarginRate     float64

	Exchange struct {
		StreamURL      string
		APIURL         string
		ReconnectDelay time.Duration
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}

	Notifications struct {
		TelegramToken  string
		TelegramChatID string
	}

	LogDir string

	StatusInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		Environment:    getEnv("ENV", "development"),
		Symbols:        splitSymbols(getEnv("TRADING_SYMBOLS", "BTC,ETH,BNB,SOL,XRP")),
		InitialBalance: getEnvFloat("INITIAL_BALANCE", 100000),
		MarginRate:     getEnvFloat("MARGIN_RATE", 0.10),
		StatusInterval: getEnvDuration("STATUS_INTERVAL", 30*time.Second),
	}

	cfg.Exchange.StreamURL = getEnv("BINANCE_WS_URL", "wss://stream.binance.com:9443/ws")
	cfg.Exchange.APIURL = getEnv("BINANCE_API_URL", "https://api.binance.com")
	cfg.Exchange.ReconnectDelay = getEnvDuration("RECONNECT_DELAY", 3*time.Second)

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	cfg.Notifications.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	cfg.Notifications.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")

	cfg.LogDir = getEnv("LOG_DIR", "logs")

	return cfg
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		symbol := strings.ToUpper(strings.TrimSpace(part))
		if symbol != "" {
			out = append(out, symbol)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
