package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Stream metrics
	quotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_trader_quotes_total",
			Help: "Total number of ticker updates received",
		},
		[]string{"symbol"},
	)

	reconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paper_trader_stream_reconnects_total",
			Help: "Total number of websocket reconnect attempts scheduled",
		},
	)

	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paper_trader_current_price",
			Help: "Latest price per symbol",
		},
		[]string{"symbol"},
	)

	// Ledger metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_trader_trades_total",
			Help: "Total number of paper trades recorded",
		},
		[]string{"symbol", "side"},
	)

	accountBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "paper_trader_account_balance",
			Help: "Cash balance not committed as margin",
		},
	)

	accountEquity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "paper_trader_account_equity",
			Help: "Balance plus unrealized P&L of open positions",
		},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_trader_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(quotesTotal)
	prometheus.MustRegister(reconnectsTotal)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(accountBalance)
	prometheus.MustRegister(accountEquity)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles the Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordQuote counts one decoded ticker update
func RecordQuote(symbol string) {
	quotesTotal.WithLabelValues(symbol).Inc()
}

// RecordReconnect counts one scheduled stream reconnect
func RecordReconnect() {
	reconnectsTotal.Inc()
}

// UpdatePrice updates the current price gauge
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// RecordTrade counts one paper trade
func RecordTrade(symbol, side string) {
	tradesTotal.WithLabelValues(symbol, side).Inc()
}

// UpdateAccount updates the balance and equity gauges
func UpdateAccount(balance, equity float64) {
	accountBalance.Set(balance)
	accountEquity.Set(equity)
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
