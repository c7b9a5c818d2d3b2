// Package metrics exposes workbench activity for Prometheus scraping.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/BetterCallFirewall/ssti-master/internal/models"
	"github.com/BetterCallFirewall/ssti-master/internal/workbench"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ workbench.Observer = (*Metrics)(nil)

// Metrics holds the collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	completionsTotal  *prometheus.CounterVec
	completionSeconds *prometheus.HistogramVec
	rejectedTotal     *prometheus.CounterVec
	historyItems      prometheus.Gauge
}

// New creates and registers all collectors
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.completionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ssti_master_completions_total",
			Help: "Completion calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	m.completionSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ssti_master_completion_duration_seconds",
			Help:    "Completion call latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
		[]string{"operation"},
	)

	m.rejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ssti_master_busy_rejections_total",
			Help: "Submits rejected because a call was in flight",
		},
		[]string{"operation"},
	)

	m.historyItems = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ssti_master_history_items",
		Help: "Number of entries in the history",
	})

	collectors := []prometheus.Collector{
		m.completionsTotal,
		m.completionSeconds,
		m.rejectedTotal,
		m.historyItems,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return m, nil
}

// WatchClients exports the live websocket client count
func (m *Metrics) WatchClients(count func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ssti_master_websocket_clients",
			Help: "Connected websocket clients",
		},
		func() float64 { return float64(count()) },
	))
}

func (m *Metrics) CompletionFinished(op models.Mode, ok bool, seconds float64) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.completionsTotal.WithLabelValues(string(op), outcome).Inc()
	m.completionSeconds.WithLabelValues(string(op)).Observe(seconds)
}

func (m *Metrics) SubmitRejected(op models.Mode) {
	m.rejectedTotal.WithLabelValues(string(op)).Inc()
}

func (m *Metrics) HistorySize(n int) {
	m.historyItems.Set(float64(n))
}

// Handler serves the registry in the exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
