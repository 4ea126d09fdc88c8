package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker reports the agent's liveness over HTTP.
type HealthChecker struct {
	mu          sync.RWMutex
	lastPoll    time.Time
	lastTotalOI float64
	isConnected bool
	errors      []string
}

// HealthStatus is the JSON payload served by the health endpoint.
type HealthStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	LastPoll    time.Time `json:"last_poll"`
	LastTotalOI float64   `json:"last_total_oi"`
	IsConnected bool      `json:"is_connected"`
	Uptime      string    `json:"uptime"`
	Errors      []string  `json:"errors,omitempty"`
}

// NewHealthChecker creates a health checker.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		errors: make([]string, 0),
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status, code := "healthy", http.StatusOK
	if !h.isConnected || time.Since(h.lastPoll) > time.Hour {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	if len(h.errors) > 0 {
		status, code = "unhealthy", http.StatusInternalServerError
	}

	health := HealthStatus{
		Status:      status,
		Timestamp:   time.Now(),
		LastPoll:    h.lastPoll,
		LastTotalOI: h.lastTotalOI,
		IsConnected: h.isConnected,
		Uptime:      time.Since(startTime).String(),
		Errors:      h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}

// RecordPoll marks a successful poll cycle.
func (h *HealthChecker) RecordPoll(totalOI float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastPoll = time.Now()
	h.lastTotalOI = totalOI
	h.isConnected = true
	h.errors = h.errors[:0]
}

// RecordDisconnect marks a lost API connection.
func (h *HealthChecker) RecordDisconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = false
}

// RecordError appends an error to the health report, keeping the last five.
func (h *HealthChecker) RecordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > 5 {
		h.errors = h.errors[len(h.errors)-5:]
	}
}
