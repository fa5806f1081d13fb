package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the gateway.
type Metrics struct {
	Turns           *prometheus.CounterVec
	TurnRejections  *prometheus.CounterVec
	WakeOps         *prometheus.CounterVec
	ActiveWakeLocks prometheus.Gauge
	ActiveSessions  prometheus.Gauge
	StreamFrames    *prometheus.CounterVec
	AgentLatency    prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed turns by transport and reply source.",
		}, []string{"transport", "source"}),
		TurnRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_rejections_total",
			Help:      "Rejected turns by reason.",
		}, []string{"reason"}),
		WakeOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wake_ops_total",
			Help:      "Wake arbitration operations by op and outcome reason.",
		}, []string{"op", "reason"}),
		ActiveWakeLocks: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_wake_locks",
			Help:      "Number of live wake leases.",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of tracked conversation sessions.",
		}),
		StreamFrames: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_frames_total",
			Help:      "Streaming channel frames by direction and type.",
		}, []string{"direction", "type"}),
		AgentLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_latency_ms",
			Help:      "Upstream agent call latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
	}
}

func (m *Metrics) ObserveAgentLatency(d time.Duration) {
	m.AgentLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
