package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker exposes the stream connectivity and the freshness of market
// data as a JSON health endpoint.
type HealthChecker struct {
	mu          sync.RWMutex
	startTime   time.Time
	lastQuote   time.Time
	lastPrice   float64
	isConnected bool
	errors      []string
}

type HealthStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	LastQuote   time.Time `json:"last_quote"`
	LastPrice   float64   `json:"last_price"`
	IsConnected bool      `json:"is_connected"`
	Uptime      string    `json:"uptime"`
	Errors      []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		errors:    make([]string, 0),
	}
}

// SetConnected records the current stream connectivity.
func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = connected
}

// UpdateQuote records the latest received price and its arrival time.
func (h *HealthChecker) UpdateQuote(price float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastPrice = price
	h.lastQuote = time.Now()
}

// AddError appends an error message to the health report.
func (h *HealthChecker) AddError(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, message)
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if !h.isConnected {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	if len(h.errors) > 0 {
		status = "unhealthy"
		code = http.StatusInternalServerError
	}

	health := HealthStatus{
		Status:      status,
		Timestamp:   time.Now(),
		LastQuote:   h.lastQuote,
		LastPrice:   h.lastPrice,
		IsConnected: h.isConnected,
		Uptime:      time.Since(h.startTime).String(),
		Errors:      h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}
