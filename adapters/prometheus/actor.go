package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ractor-go/ractor/core/metrics"
	"github.com/ractor-go/ractor/core/ractor"
)

// actorMetrics implements ractor.ActorMetrics using Prometheus, one set of
// series shared by every actor in the process.
type actorMetrics struct {
	mailboxDepth        *prometheus.GaugeVec
	computationDuration *prometheus.HistogramVec
	computationsTotal   *prometheus.CounterVec
	semaphoreInflight   prometheus.Gauge
}

// NewActorMetrics creates a new Prometheus implementation of
// ractor.ActorMetrics.
func NewActorMetrics(reg prometheus.Registerer) ractor.ActorMetrics {
	m := &actorMetrics{
		mailboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ractor_mailbox_depth",
			Help: "Current inbox queue depth",
		}, []string{"actor_id"}),

		computationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ractor_computation_duration_seconds",
			Help:    "Computation execution time in seconds",
			Buckets: defaultBuckets,
		}, []string{"actor_id"}),

		computationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ractor_computations_total",
			Help: "Total number of computations completed",
		}, []string{"actor_id", "success"}),

		semaphoreInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ractor_semaphore_inflight",
			Help: "Process-wide count of currently executing computations",
		}),
	}

	reg.MustRegister(
		m.mailboxDepth,
		m.computationDuration,
		m.computationsTotal,
		m.semaphoreInflight,
	)

	return m
}

func (m *actorMetrics) MailboxDepth(actorID string, depth int) {
	m.mailboxDepth.WithLabelValues(actorID).Set(float64(depth))
}

func (m *actorMetrics) ComputationDuration(actorID string) metrics.Timer {
	return newTimer(m.computationDuration.WithLabelValues(actorID))
}

func (m *actorMetrics) ComputationCompleted(actorID string, success bool) {
	m.computationsTotal.WithLabelValues(actorID, boolToStr(success)).Inc()
}

func (m *actorMetrics) SemaphoreInflight(count int) {
	m.semaphoreInflight.Set(float64(count))
}

var _ ractor.ActorMetrics = (*actorMetrics)(nil)
