package ractor

import (
	"context"
	"time"

	"github.com/ractor-go/ractor/core/mailbox"
	"github.com/ractor-go/ractor/internal/ids"
)

// pollInterval bounds how long the dispatch loop ever sleeps without a
// wakeup signal, guarding against a missed or coalesced notification:
// signals are hints, not guaranteed delivery.
const pollInterval = 2 * time.Second

// dispatchLoop is the one goroutine per started Actor that claims inbox
// entries and runs them through the computation under the shared
// semaphore. It holds its semaphore permit for the full duration of one
// computation, never just the claim, so the bound is on concurrently
// *executing* computations rather than merely dispatched ones.
func (a *Actor[In, Out]) dispatchLoop(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		claimed, err := a.claimAndRun(ctx)
		if err != nil {
			a.opts.Logger.Error("dispatch iteration failed", "actor", a.id, "error", err)
		}
		if claimed {
			continue
		}

		a.bus.MessageArrived.Wait(ctx, pollInterval)
	}
}

// claimAndRun claims at most one envelope and, once a semaphore permit is
// held, starts its computation and commit on a goroutine of their own
// without waiting for them. It reports whether an envelope was claimed,
// so the caller can immediately
// retry without waiting on a wakeup when the inbox may still hold more
// work.
func (a *Actor[In, Out]) claimAndRun(ctx context.Context) (bool, error) {
	depth, err := mailbox.QueueLength(ctx, a.opts.Store, a.keys)
	if err == nil {
		a.opts.Metrics.MailboxDepth(a.id, depth)
	}

	pipelineID := ids.New()
	env, ok, err := mailbox.Claim(ctx, a.opts.Store, a.keys, pipelineID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := a.opts.Semaphore.Acquire(ctx, 1); err != nil {
		// Context canceled while waiting for a permit: the claim already
		// recorded the envelope in the pipeline hash, where the recovery
		// scan of the next Start finds it; re-record it there, then stop.
		_ = mailbox.PutPipeline(ctx, a.opts.Store, a.keys, pipelineID, env)
		return true, err
	}
	a.opts.Metrics.SemaphoreInflight(int(acquireInflight()))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			a.opts.Semaphore.Release(1)
			a.opts.Metrics.SemaphoreInflight(int(releaseInflight()))
		}()
		a.runComputationAndCommit(context.Background(), pipelineID, env)
	}()

	return true, nil
}

// recoverPipeline re-queues every envelope still parked in the pipeline
// hash when Start runs: a prior process crashed after claiming but before
// committing. Recovered envelopes are re-posted at high priority, i.e.
// pushed at the inbox tail that claims pop from, so they are claimed
// before any normal-priority backlog, and the orphaned pipeline entry is
// removed.
func (a *Actor[In, Out]) recoverPipeline(ctx context.Context) error {
	orphans, err := mailbox.RecoverPipeline(ctx, a.opts.Store, a.keys)
	if err != nil {
		return err
	}
	for pipelineID, env := range orphans {
		if err := mailbox.Post(ctx, a.opts.Store, a.keys, env.Payload, env.CorrelationID, true); err != nil {
			return err
		}
		if err := mailbox.DeletePipeline(ctx, a.opts.Store, a.keys, pipelineID); err != nil {
			return err
		}
		a.opts.Logger.Warn("recovered orphaned pipeline entry", "actor", a.id, "pipeline_id", pipelineID)
	}
	return nil
}
