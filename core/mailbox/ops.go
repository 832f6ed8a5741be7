package mailbox

import (
	"context"

	"github.com/ractor-go/ractor/core/store"
)

// Post pushes payload (already JSON-encoded) into the inbox, at the head
// for normal priority or the tail for high priority, then publishes an
// empty notification. Claim always pops the tail, so a head push ages
// toward the tail (FIFO) while a tail push lands immediately next to the
// pop side (priority jump).
func Post(ctx context.Context, s store.Store, k Keys, payload []byte, correlationID string, highPriority bool) error {
	env := Envelope{Payload: payload, CorrelationID: correlationID}
	wire, err := env.Encode()
	if err != nil {
		return err
	}

	if highPriority {
		if err := s.ListPushTail(ctx, k.Inbox, wire); err != nil {
			return err
		}
	} else {
		if err := s.ListPushHead(ctx, k.Inbox, wire); err != nil {
			return err
		}
	}

	return NotifyMessageArrived(ctx, s, k)
}

// Claim atomically pops the next envelope from the inbox and records it in
// the pipeline hash under pipelineID. It returns (Envelope{}, false, nil)
// when the inbox is empty.
func Claim(ctx context.Context, s store.Store, k Keys, pipelineID string) (Envelope, bool, error) {
	raw, err := store.Claim(ctx, s, k.Inbox, k.Pipeline, pipelineID)
	if err != nil {
		return Envelope{}, false, err
	}
	if raw == nil {
		return Envelope{}, false, nil
	}
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return Envelope{}, false, err
	}
	return env, true, nil
}

// PutPipeline records env directly in the pipeline hash under pipelineID,
// bypassing the inbox. This is used by the request/reply coordinator's
// local-bypass path, which never touches the inbox list.
func PutPipeline(ctx context.Context, s store.Store, k Keys, pipelineID string, env Envelope) error {
	wire, err := env.Encode()
	if err != nil {
		return err
	}
	return s.HashSet(ctx, k.Pipeline, pipelineID, wire, store.OverwriteAlways)
}

// DeletePipeline removes the in-flight entry for pipelineID, completing a
// commit or discarding a deterministically failed message.
func DeletePipeline(ctx context.Context, s store.Store, k Keys, pipelineID string) error {
	return s.HashDelete(ctx, k.Pipeline, pipelineID)
}

// RecoverPipeline returns every entry currently parked in the pipeline
// hash, for the crash-recovery scan an actor runs on Start.
func RecoverPipeline(ctx context.Context, s store.Store, k Keys) (map[string]Envelope, error) {
	raw, err := s.HashGetAll(ctx, k.Pipeline)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Envelope, len(raw))
	for id, wire := range raw {
		env, err := DecodeEnvelope(wire)
		if err != nil {
			return nil, err
		}
		out[id] = env
	}
	return out, nil
}

// WriteResult writes results[correlationID] = output (overwrite) and
// publishes correlationID as the "result may have arrived" notification.
// The dispatcher writes at most once per correlation id.
func WriteResult(ctx context.Context, s store.Store, k Keys, correlationID string, output []byte) error {
	if err := s.HashSet(ctx, k.Results, correlationID, output, store.OverwriteAlways); err != nil {
		return err
	}
	return s.Publish(ctx, k.Channel, []byte(correlationID))
}

// ReadResult returns the output payload for correlationID, or (nil, false,
// nil) if it hasn't arrived yet. When deleteOnRead is true the entry is
// removed after a successful read, bounding storage growth.
func ReadResult(ctx context.Context, s store.Store, k Keys, correlationID string, deleteOnRead bool) ([]byte, bool, error) {
	v, err := s.HashGet(ctx, k.Results, correlationID)
	if err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	if deleteOnRead {
		if err := s.HashDelete(ctx, k.Results, correlationID); err != nil {
			return nil, false, err
		}
	}
	return v, true, nil
}

// AppendError appends env to the errors list.
func AppendError(ctx context.Context, s store.Store, k Keys, env ErrorEnvelope) error {
	wire, err := env.Encode()
	if err != nil {
		return err
	}
	return s.ListPushTail(ctx, k.Errors, wire)
}

// NotifyMessageArrived publishes the "mailbox may be non-empty" signal:
// an empty payload.
func NotifyMessageArrived(ctx context.Context, s store.Store, k Keys) error {
	return s.Publish(ctx, k.Channel, []byte{})
}

// QueueLength reports the current inbox length.
func QueueLength(ctx context.Context, s store.Store, k Keys) (int, error) {
	return s.ListLength(ctx, k.Inbox)
}
