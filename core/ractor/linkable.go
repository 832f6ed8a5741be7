package ractor

import "context"

// Linkable is the handle a parent actor holds for a linked child, or for a
// bound error-handler actor: the parent only knows child identities and a
// handle to post to them. Any *Actor[In, Out] satisfies it regardless of
// its own In/Out types, since fan-out and error routing move raw,
// already-encoded payloads.
type Linkable interface {
	// Identity returns the linked actor's stable id.
	Identity() string
	// PostRaw enqueues an already-encoded payload, fire-and-forget.
	PostRaw(ctx context.Context, payload []byte, highPriority bool) error
}
