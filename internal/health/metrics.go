package health

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus collectors for dependency checks.
type Metrics struct {
	checksTotal   *prometheus.CounterVec
	checkStatus   *prometheus.GaugeVec
	checkDuration *prometheus.HistogramVec
}

// NewMetrics creates the health collectors and registers them with
// registry, which is normally the service's private registry.
func NewMetrics(namespace string, registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "checks_total",
				Help:      "Total number of dependency checks performed",
			},
			[]string{"check", "result"},
		),
		checkStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "check_status",
				Help:      "Current dependency status (1=healthy, 0=unhealthy)",
			},
			[]string{"check"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "check_duration_seconds",
				Help:      "Dependency check latency in seconds",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"check"},
		),
	}

	registry.MustRegister(m.checksTotal, m.checkStatus, m.checkDuration)
	m.checkStatus.WithLabelValues("overall")

	return m
}

func (m *Metrics) recordCheck(name string, healthy bool, latency time.Duration) {
	if m == nil {
		return
	}

	result := "success"
	status := 1.0
	if !healthy {
		result = "failure"
		status = 0
	}

	m.checksTotal.WithLabelValues(name, result).Inc()
	m.checkStatus.WithLabelValues(name).Set(status)
	m.checkDuration.WithLabelValues(name).Observe(latency.Seconds())
}

func (m *Metrics) recordOverall(status Status) {
	if m == nil {
		return
	}

	value := 1.0
	if status == StatusUnhealthy {
		value = 0
	}
	m.checkStatus.WithLabelValues("overall").Set(value)
}
