package ractor

import (
	"context"
	"encoding/json"

	"github.com/ractor-go/ractor/core/mailbox"
)

// runComputationAndCommit runs the computation for one claimed envelope
// and commits its outcome: on success, fan out to linked children, delete
// the pipeline entry, and only then write the result (if a correlation id
// was given); on failure, append an ErrorEnvelope and forward it to the
// bound error handler, then delete the pipeline entry. The pipeline entry
// is always deleted before results[correlationID] is written, so a crash
// between the two never causes the recovery scan to re-run a computation
// whose result has already been written — results[correlationID] is
// written at most once, at the cost of a possible crash losing the
// result after a successful, un-recovered commit.
func (a *Actor[In, Out]) runComputationAndCommit(ctx context.Context, pipelineID string, env mailbox.Envelope) {
	var in In
	if err := a.opts.Codec.Unmarshal(env.Payload, &in); err != nil {
		a.opts.Logger.Error("decode claimed envelope", "actor", a.id, "error", err)
		_ = mailbox.DeletePipeline(ctx, a.opts.Store, a.keys, pipelineID)
		return
	}

	timer := a.opts.Metrics.ComputationDuration(a.id)
	out, err := a.opts.Computation(ctx, in)
	timer.ObserveDuration()
	a.opts.Metrics.ComputationCompleted(a.id, err == nil)

	if err != nil {
		a.recordFailure(ctx, env.Payload, err)
		if derr := mailbox.DeletePipeline(ctx, a.opts.Store, a.keys, pipelineID); derr != nil {
			a.opts.Logger.Error("delete pipeline entry after failure", "actor", a.id, "error", derr)
		}
		return
	}

	if err := a.commit(ctx, pipelineID, env.CorrelationID, out); err != nil {
		a.opts.Logger.Error("commit computation result", "actor", a.id, "error", err)
	}
}

// commit fans out to every linked child, deletes the pipeline entry for
// pipelineID, and finally writes the result for correlationID if one was
// requested — in that order, so the pipeline entry never outlives the
// fan-out and is always gone before the result becomes visible.
func (a *Actor[In, Out]) commit(ctx context.Context, pipelineID, correlationID string, out Out) error {
	payload, err := a.opts.Codec.Marshal(out)
	if err != nil {
		return err
	}

	if err := a.fanOutRaw(ctx, payload); err != nil {
		a.opts.Logger.Error("fan-out to children failed", "actor", a.id, "error", err)
	}

	if err := mailbox.DeletePipeline(ctx, a.opts.Store, a.keys, pipelineID); err != nil {
		a.opts.Logger.Error("delete pipeline entry after commit", "actor", a.id, "error", err)
	}

	if correlationID != "" {
		if err := mailbox.WriteResult(ctx, a.opts.Store, a.keys, correlationID, payload); err != nil {
			return err
		}
	}

	return nil
}

// fanOut encodes out and forwards it to every linked child, in
// deterministic link order.
func (a *Actor[In, Out]) fanOut(ctx context.Context, out Out) error {
	payload, err := a.opts.Codec.Marshal(out)
	if err != nil {
		return err
	}
	return a.fanOutRaw(ctx, payload)
}

func (a *Actor[In, Out]) fanOutRaw(ctx context.Context, payload []byte) error {
	a.mu.Lock()
	children := make([]Linkable, 0, a.children.Len())
	for _, id := range a.children.Values() {
		if c, ok := a.byID[id]; ok {
			children = append(children, c)
		}
	}
	a.mu.Unlock()

	var firstErr error
	for _, child := range children {
		if err := child.PostRaw(ctx, payload, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// recordFailure appends an ErrorEnvelope for the failed input and, if an
// error handler is bound, forwards it there as well.
func (a *Actor[In, Out]) recordFailure(ctx context.Context, inputPayload json.RawMessage, cause error) {
	env := mailbox.ErrorEnvelope{
		ActorID: a.id,
		Payload: inputPayload,
		Error:   cause.Error(),
	}

	if err := mailbox.AppendError(ctx, a.opts.Store, a.keys, env); err != nil {
		a.opts.Logger.Error("append error envelope", "actor", a.id, "error", err)
	}

	a.mu.Lock()
	handler := a.errHand
	a.mu.Unlock()
	if handler == nil {
		return
	}

	wire, err := env.Encode()
	if err != nil {
		a.opts.Logger.Error("encode error envelope for handler", "actor", a.id, "error", err)
		return
	}
	if err := handler.PostRaw(ctx, wire, true); err != nil {
		a.opts.Logger.Error("forward error to handler", "actor", a.id, "error", err)
	}
}
