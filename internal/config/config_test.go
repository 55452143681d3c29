package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestLoad_Defaults loads the reference defaults when the environment is empty.
func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, []string{"BTC", "ETH", "BNB", "SOL", "XRP"}, cfg.Symbols)
	assert.Equal(t, 100000.0, cfg.InitialBalance)
	assert.Equal(t, 0.10, cfg.MarginRate)
	assert.Equal(t, 3*time.Second, cfg.Exchange.ReconnectDelay)
	assert.Equal(t, "wss://stream.binance.com:9443/ws", cfg.Exchange.StreamURL)
	assert.Equal(t, "https://api.binance.com", cfg.Exchange.APIURL)
	assert.Equal(t, 8080, cfg.Monitoring.PrometheusPort)
	assert.Equal(t, 8081, cfg.Monitoring.HealthPort)
}

// TestLoad_Overrides picks up environment overrides, trimming and
// upper-casing the symbol list.
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TRADING_SYMBOLS", " btc , eth ,, doge ")
	t.Setenv("INITIAL_BALANCE", "25000")
	t.Setenv("MARGIN_RATE", "0.2")
	t.Setenv("RECONNECT_DELAY", "5s")
	t.Setenv("PROMETHEUS_PORT", "9100")

	cfg := Load()

	assert.Equal(t, []string{"BTC", "ETH", "DOGE"}, cfg.Symbols)
	assert.Equal(t, 25000.0, cfg.InitialBalance)
	assert.Equal(t, 0.2, cfg.MarginRate)
	assert.Equal(t, 5*time.Second, cfg.Exchange.ReconnectDelay)
	assert.Equal(t, 9100, cfg.Monitoring.PrometheusPort)
}

// TestLoad_IgnoresUnparseable falls back to defaults on malformed values.
func TestLoad_IgnoresUnparseable(t *testing.T) {
	t.Setenv("INITIAL_BALANCE", "lots")
	t.Setenv("RECONNECT_DELAY", "soon")
	t.Setenv("HEALTH_PORT", "eighty")

	cfg := Load()

	assert.Equal(t, 100000.0, cfg.InitialBalance)
	assert.Equal(t, 3*time.Second, cfg.Exchange.ReconnectDelay)
	assert.Equal(t, 8081, cfg.Monitoring.HealthPort)
}
