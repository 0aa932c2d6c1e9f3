package refresh

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/darmiel/paytrust/internal/core"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics holds the refresh collectors. A nil *Metrics records nothing.
type Metrics struct {
	refreshes   *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	duration    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg, if non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paytrust",
			Subsystem: "certificate",
			Name:      "refresh_total",
			Help:      "Certificate downloads by registry key and result.",
		}, []string{"key", "result"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "paytrust",
			Subsystem: "certificate",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful certificate download per registry key.",
		}, []string{"key"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "paytrust",
			Subsystem: "certificate",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of single certificate downloads.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.refreshes, m.lastSuccess, m.duration)
	}
	return m
}

func (m *Metrics) observe(key core.RegistryKey, took time.Duration, at time.Time, err error) {
	if m == nil {
		return
	}
	m.duration.Observe(took.Seconds())
	if err != nil {
		m.refreshes.WithLabelValues(key.String(), resultFailure).Inc()
		return
	}
	m.refreshes.WithLabelValues(key.String(), resultSuccess).Inc()
	m.lastSuccess.WithLabelValues(key.String()).Set(float64(at.Unix()))
}

func (m *Metrics) reset() {
	if m == nil {
		return
	}
	m.lastSuccess.Reset()
}
