// Package prometheus provides a Prometheus implementation of
// core/ractor.ActorMetrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ractor-go/ractor/core/metrics"
	"github.com/ractor-go/ractor/core/ractor"
)

// timer wraps a Prometheus histogram to implement the Timer interface.
type timer struct {
	h     prometheus.Observer
	start time.Time
}

func newTimer(h prometheus.Observer) metrics.Timer {
	return &timer{h: h, start: time.Now()}
}

func (t *timer) ObserveDuration() {
	t.h.Observe(time.Since(t.start).Seconds())
}

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// AllMetrics holds the Prometheus implementation of every metrics
// interface this module exposes. Use this when you want to initialize
// metrics for a whole process at once.
type AllMetrics struct {
	Actor ractor.ActorMetrics
}

// NewAllMetrics creates Prometheus metrics for every pillar this module
// exposes.
func NewAllMetrics(reg prometheus.Registerer) *AllMetrics {
	return &AllMetrics{
		Actor: NewActorMetrics(reg),
	}
}
