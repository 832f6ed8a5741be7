package ractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ractor-go/ractor/core/ds"
	"github.com/ractor-go/ractor/core/mailbox"
	"github.com/ractor-go/ractor/core/store"
	"github.com/ractor-go/ractor/core/wakeup"
	"github.com/ractor-go/ractor/internal/ids"
)

// Actor is a durable, mailbox-backed computation over In, producing Out.
// It is safe for concurrent use by multiple goroutines.
type Actor[In, Out any] struct {
	id   string
	opts Options[In, Out]
	keys mailbox.Keys
	bus  *wakeup.Bus
	sub  store.Subscription

	mu       sync.Mutex
	started  bool
	running  bool
	disposed bool
	children *ds.Set[string]
	byID     map[string]Linkable
	errHand  Linkable

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an Actor identified by id and subscribes to its
// notification channel immediately, before Start, so no wakeup published
// between New and Start is lost. Call Start to begin dispatching claimed
// messages to opts.Computation.
func New[In, Out any](id string, opts Options[In, Out]) (*Actor[In, Out], error) {
	opts = opts.withDefaults()
	if opts.Store == nil {
		return nil, fmt.Errorf("ractor: New(%q): Options.Store is required", id)
	}

	a := &Actor[In, Out]{
		id:       id,
		opts:     opts,
		keys:     mailbox.KeysFor(id),
		bus:      wakeup.NewBus(),
		children: ds.NewSet[string](),
		byID:     make(map[string]Linkable),
	}

	sub, err := opts.Store.Subscribe(context.Background(), a.keys.Channel, a.bus.OnNotification)
	if err != nil {
		return nil, fmt.Errorf("ractor: New(%q): subscribe: %w", id, err)
	}
	a.sub = sub

	return a, nil
}

// Identity returns the actor's id.
func (a *Actor[In, Out]) Identity() string { return a.id }

// Id is a shorter alias for Identity.
func (a *Actor[In, Out]) Id() string { return a.id }

// Start validates the actor has a computation, recovers any pipeline
// entries orphaned by a prior crash, and launches the dispatch loop.
// Start is not idempotent; calling it twice launches two dispatch loops
// and is a caller error.
func (a *Actor[In, Out]) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return ErrDisposed
	}
	if a.opts.Computation == nil {
		a.mu.Unlock()
		return ErrNoComputation
	}
	a.started = true
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.mu.Unlock()

	if err := a.recoverPipeline(ctx); err != nil {
		return fmt.Errorf("ractor: Start(%q): recover pipeline: %w", a.id, err)
	}

	a.mu.Lock()
	a.running = true
	a.mu.Unlock()

	a.wg.Add(1)
	go a.dispatchLoop(runCtx)

	return nil
}

// Stop cancels the dispatch loop and waits for any in-flight computation
// to return. It does not remove the actor's store state or unsubscribe;
// call Dispose to release those.
func (a *Actor[In, Out]) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	started := a.started
	a.running = false
	a.mu.Unlock()
	if !started || cancel == nil {
		return
	}
	cancel()
	a.wg.Wait()
}

// Dispose stops the actor and releases its subscription. It does not
// touch the process-wide semaphore, which is shared by every actor in the
// process, or the mailbox's durable state in the store, which outlives
// any one process's Actor handle. Dispose is idempotent.
func (a *Actor[In, Out]) Dispose() error {
	a.Stop()
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return nil
	}
	a.disposed = true
	sub := a.sub
	a.mu.Unlock()
	if sub != nil {
		return sub.Unsubscribe()
	}
	return nil
}

// Post enqueues in, fire-and-forget, at normal priority.
func (a *Actor[In, Out]) Post(ctx context.Context, in In) error {
	return a.post(ctx, in, "", false)
}

// PostHighPriority enqueues in so it jumps ahead of every normally
// queued, not-yet-claimed message.
func (a *Actor[In, Out]) PostHighPriority(ctx context.Context, in In) error {
	return a.post(ctx, in, "", true)
}

func (a *Actor[In, Out]) post(ctx context.Context, in In, correlationID string, highPriority bool) error {
	if a.isDisposed() {
		return ErrDisposed
	}
	payload, err := a.opts.Codec.Marshal(in)
	if err != nil {
		return fmt.Errorf("ractor: Post(%q): marshal: %w", a.id, err)
	}
	return mailbox.Post(ctx, a.opts.Store, a.keys, payload, correlationID, highPriority)
}

// PostRaw enqueues an already-encoded payload, satisfying Linkable. It is
// how a parent actor fans out to a child and how an error handler
// receives an ErrorEnvelope, both oblivious to the target's own In type.
func (a *Actor[In, Out]) PostRaw(ctx context.Context, payload []byte, highPriority bool) error {
	if a.isDisposed() {
		return ErrDisposed
	}
	return mailbox.Post(ctx, a.opts.Store, a.keys, payload, "", highPriority)
}

// PostAndReply runs in through the computation and returns its output.
// timeout (<= 0 means none) bounds the context handed to the computation;
// when it expires there ErrTimeout is returned, and a computation that
// ignores its context runs to completion. It always takes the local
// bypass path and never enqueues in, so highPriority has no effect: a caller
// holding this exact Actor instance can run the computation inline
// without a store round-trip. The actor must be running (Start must have
// returned successfully and Stop must not have been called since) or
// ErrNotRunning is returned. Use PostAndReplyRemote to go through the
// mailbox instead.
func (a *Actor[In, Out]) PostAndReply(ctx context.Context, in In, highPriority bool, timeout time.Duration) (Out, error) {
	var zero Out
	if a.isDisposed() {
		return zero, ErrDisposed
	}
	if a.opts.Computation == nil {
		return zero, ErrNoComputation
	}
	if !a.isRunning() {
		return zero, ErrNotRunning
	}
	return a.postAndReplyLocal(ctx, in, highPriority, timeout)
}

// postAndReplyLocal runs the computation inline under the shared
// semaphore, bypassing the store round-trip entirely: a caller in the
// same process as the target actor invokes the computation directly,
// still bound by the same concurrency semaphore, without ever touching
// the inbox. The envelope is still recorded in the pipeline hash before
// the computation runs and removed after commit, so a crash mid-
// computation on this path leaves the same crash-recovery trace a
// remote claim would. highPriority is accepted for signature symmetry
// with PostAndReplyRemote but has no effect here: the local path never
// enters the inbox list, so there is no queue to jump.
func (a *Actor[In, Out]) postAndReplyLocal(ctx context.Context, in In, highPriority bool, timeout time.Duration) (Out, error) {
	var zero Out

	payload, err := a.opts.Codec.Marshal(in)
	if err != nil {
		return zero, fmt.Errorf("ractor: PostAndReply(%q): marshal: %w", a.id, err)
	}
	pipelineID := ids.New()
	if err := mailbox.PutPipeline(ctx, a.opts.Store, a.keys, pipelineID, mailbox.Envelope{Payload: payload}); err != nil {
		return zero, fmt.Errorf("ractor: PostAndReply(%q): record pipeline: %w", a.id, err)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := a.opts.Semaphore.Acquire(runCtx, 1); err != nil {
		_ = mailbox.DeletePipeline(context.Background(), a.opts.Store, a.keys, pipelineID)
		return zero, ErrTimeout
	}
	a.opts.Metrics.SemaphoreInflight(int(acquireInflight()))
	defer func() {
		a.opts.Semaphore.Release(1)
		a.opts.Metrics.SemaphoreInflight(int(releaseInflight()))
	}()

	timer := a.opts.Metrics.ComputationDuration(a.id)
	out, err := a.opts.Computation(runCtx, in)
	timer.ObserveDuration()
	a.opts.Metrics.ComputationCompleted(a.id, err == nil)

	if err != nil {
		a.recordFailure(context.Background(), payload, err)
		if derr := mailbox.DeletePipeline(context.Background(), a.opts.Store, a.keys, pipelineID); derr != nil {
			a.opts.Logger.Error("delete pipeline entry after failure", "actor", a.id, "error", derr)
		}
		if timeout > 0 && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return zero, err
	}

	if err := a.fanOut(context.Background(), out); err != nil {
		a.opts.Logger.Error("fan-out to children failed", "actor", a.id, "error", err)
	}
	if err := mailbox.DeletePipeline(context.Background(), a.opts.Store, a.keys, pipelineID); err != nil {
		a.opts.Logger.Error("delete pipeline entry after commit", "actor", a.id, "error", err)
	}
	return out, nil
}

// PostAndReplyRemote posts in through the durable mailbox, at the
// requested priority, with a fresh correlation id and waits on the store
// for the matching result, for callers in a different process than any
// running dispatcher for this actor. PostAndReply always uses the local
// path from within this process's own handle; use PostAndReplyRemote to
// exercise the cross-process path explicitly (e.g. in tests, or from a
// client that intentionally never Starts its own copy of the actor).
func (a *Actor[In, Out]) PostAndReplyRemote(ctx context.Context, in In, highPriority bool, timeout time.Duration) (Out, error) {
	var zero Out
	if a.isDisposed() {
		return zero, ErrDisposed
	}

	correlationID := ids.New()
	if err := a.post(ctx, in, correlationID, highPriority); err != nil {
		return zero, err
	}

	waitCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for {
		raw, ok, err := mailbox.ReadResult(waitCtx, a.opts.Store, a.keys, correlationID, *a.opts.DeleteResultOnRead)
		if err != nil {
			return zero, err
		}
		if ok {
			var out Out
			if err := a.opts.Codec.Unmarshal(raw, &out); err != nil {
				return zero, fmt.Errorf("ractor: PostAndReplyRemote(%q): unmarshal result: %w", a.id, err)
			}
			return out, nil
		}
		if !a.bus.ResultArrived.Wait(waitCtx, 50*time.Millisecond) {
			select {
			case <-waitCtx.Done():
				return zero, ErrTimeout
			default:
			}
		}
	}
}

// Link registers child as a downstream recipient of every successful
// output this actor produces, forming a pipeline. Linking the same
// identity twice replaces the prior handle.
func (a *Actor[In, Out]) Link(child Linkable) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.children.Add(child.Identity())
	a.byID[child.Identity()] = child
}

// UnLink removes a previously linked child by identity. It is a no-op if
// the identity was never linked.
func (a *Actor[In, Out]) UnLink(childID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.children.Remove(childID)
	delete(a.byID, childID)
}

// Children returns the identities of every currently linked child, in
// link order.
func (a *Actor[In, Out]) Children() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.children.Values()
}

// SetErrorHandler binds handler to receive an ErrorEnvelope for every
// computation failure this actor records. A nil handler unbinds it.
func (a *Actor[In, Out]) SetErrorHandler(handler Linkable) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errHand = handler
}

// QueueLength reports the current inbox depth.
func (a *Actor[In, Out]) QueueLength(ctx context.Context) (int, error) {
	if a.isDisposed() {
		return 0, ErrDisposed
	}
	return mailbox.QueueLength(ctx, a.opts.Store, a.keys)
}

func (a *Actor[In, Out]) isDisposed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.disposed
}

func (a *Actor[In, Out]) isRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *Actor[In, Out]) logger() *slog.Logger { return a.opts.Logger }
