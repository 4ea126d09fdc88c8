package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Open interest metrics
	openInterestNotional = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "whale_agent_open_interest_notional",
			Help: "Current open interest notional in USD",
		},
		[]string{"symbol"},
	)

	openInterestChangePct = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "whale_agent_open_interest_change_pct",
			Help: "Open interest change over the lookback interval in percent",
		},
		[]string{"symbol"},
	)

	// Alert metrics
	whaleAlertsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "whale_agent_alerts_total",
			Help: "Total number of whale alerts raised",
		},
	)

	// Cycle metrics
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "whale_agent_cycle_duration_seconds",
			Help:    "Duration of monitoring cycles",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whale_agent_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(openInterestNotional)
	prometheus.MustRegister(openInterestChangePct)
	prometheus.MustRegister(whaleAlertsTotal)
	prometheus.MustRegister(cycleDuration)
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

// UpdateOpenInterest updates the notional open interest gauge
func UpdateOpenInterest(symbol string, notional float64) {
	openInterestNotional.WithLabelValues(symbol).Set(notional)
}

// UpdateOpenInterestChange updates the change-percentage gauge
func UpdateOpenInterestChange(symbol string, changePct float64) {
	openInterestChangePct.WithLabelValues(symbol).Set(changePct)
}

// RecordWhaleAlert counts a raised whale alert
func RecordWhaleAlert() {
	whaleAlertsTotal.Inc()
}

// RecordCycleDuration records how long a monitoring cycle took
func RecordCycleDuration(seconds float64) {
	cycleDuration.Observe(seconds)
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
