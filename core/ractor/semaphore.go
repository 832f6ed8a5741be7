package ractor

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the process-wide bound on concurrently executing
// computations across every actor that doesn't supply its own
// Options.Semaphore.
const DefaultConcurrency = 256

// processSemaphore is the shared, non-owned permit pool every actor
// created without an explicit Options.Semaphore draws from. It is never
// closed or released by Actor.Dispose: disposing one actor must not
// break every other actor sharing the process.
var processSemaphore = semaphore.NewWeighted(DefaultConcurrency)

// ProcessSemaphore returns the default process-wide semaphore. Tests that
// want to observe the never-exceeds-capacity invariant can construct
// their own smaller semaphore.Weighted and pass it via Options.Semaphore
// instead of reaching for this one.
func ProcessSemaphore() *semaphore.Weighted { return processSemaphore }

// inflightCount is the live count of computations currently executing
// under a semaphore permit, across every actor in the process, paired
// with each Acquire/Release the way the dispatcher and the local-bypass
// path both report it to ActorMetrics.SemaphoreInflight.
var inflightCount atomic.Int64

// acquireInflight records one more computation entering its semaphore-
// held execution window and returns the new count.
func acquireInflight() int64 { return inflightCount.Add(1) }

// releaseInflight records one computation leaving its semaphore-held
// execution window and returns the new count.
func releaseInflight() int64 { return inflightCount.Add(-1) }
