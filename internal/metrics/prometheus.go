package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus exposes the engine's values for scraping while a run is live.
type Prometheus struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestPhase    *prometheus.HistogramVec
	requestsFailed  *prometheus.CounterVec
	sessions        *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// NewPrometheus creates the collectors on a private registry.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopload_request_duration_seconds",
			Help:    "Latency of backend calls by session step",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"step"}),
		requestPhase: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopload_request_phase_seconds",
			Help:    "Connection phases of backend calls (dns, connect, ttfb)",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}, []string{"phase"}),
		requestsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopload_requests_non_2xx_total",
			Help: "Backend calls answered with a non-2xx status",
		}, []string{"step"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopload_sessions_total",
			Help: "Finished sessions by result",
		}, []string{"result"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shopload_active_sessions",
			Help: "Sessions currently running",
		}),
	}
	p.registry.MustRegister(p.requestDuration, p.requestPhase, p.requestsFailed, p.sessions, p.activeSessions)
	return p
}

func (p *Prometheus) observeRequest(step string, success bool, duration time.Duration) {
	p.requestDuration.WithLabelValues(step).Observe(duration.Seconds())
	if !success {
		p.requestsFailed.WithLabelValues(step).Inc()
	}
}

func (p *Prometheus) observePhases(dns, connect, ttfb time.Duration) {
	if dns > 0 {
		p.requestPhase.WithLabelValues("dns").Observe(dns.Seconds())
	}
	if connect > 0 {
		p.requestPhase.WithLabelValues("connect").Observe(connect.Seconds())
	}
	p.requestPhase.WithLabelValues("ttfb").Observe(ttfb.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
