package spotify

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors updated by the client.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the client collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spotify_metadata_requests_total",
			Help: "Requests sent to the Spotify Metadata API by path and response code.",
		}, []string{"path", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spotify_metadata_request_duration_seconds",
			Help:    "Round trip time of Spotify Metadata API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
	}
}

// observe records a finished request. status is 0 when no response arrived.
func (m *Metrics) observe(path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(path, code).Inc()
	m.duration.WithLabelValues(path).Observe(d.Seconds())
}
