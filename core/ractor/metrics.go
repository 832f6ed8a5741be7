package ractor

import "github.com/ractor-go/ractor/core/metrics"

// ActorMetrics defines the metrics this package reports: mailbox depth,
// computation duration and outcome, and the shared semaphore's
// in-flight count.
type ActorMetrics interface {
	// MailboxDepth reports the current inbox length for actorID.
	MailboxDepth(actorID string, depth int)
	// ComputationDuration times one computation invocation for actorID.
	ComputationDuration(actorID string) metrics.Timer
	// ComputationCompleted records the outcome of one computation.
	ComputationCompleted(actorID string, success bool)
	// SemaphoreInflight reports the process-wide count of currently
	// executing computations.
	SemaphoreInflight(count int)
}

type nopActorMetrics struct{}

func (nopActorMetrics) MailboxDepth(string, int)                 {}
func (nopActorMetrics) ComputationDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopActorMetrics) ComputationCompleted(string, bool)        {}
func (nopActorMetrics) SemaphoreInflight(int)                    {}

// NopActorMetrics returns a no-op ActorMetrics implementation, the default
// when Options.Metrics is nil.
func NopActorMetrics() ActorMetrics { return nopActorMetrics{} }
