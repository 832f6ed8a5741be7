// Package store defines the Store Adapter port: a thin, synchronous
// abstraction over a key-value store with lists, hashes, atomic
// server-side scripts, and pub/sub. The mailbox protocol (package
// mailbox) and everything built on top of it depend only on this
// interface, never on a concrete backend.
package store

import (
	"context"
	"errors"
)

// OverwritePolicy controls HashSet behavior when a field already exists.
type OverwritePolicy int

const (
	// OverwriteAlways replaces any existing value for the field.
	OverwriteAlways OverwritePolicy = iota
	// OverwriteNever leaves an existing value untouched and reports ErrFieldExists.
	OverwriteNever
)

// ErrFieldExists is returned by HashSet(..., OverwriteNever) when the field
// is already set.
var ErrFieldExists = errors.New("store: field already exists")

// Script names a server-side atomic operation passed to Eval. Adapters
// implement the same atomicity contract for each script natively; the
// core never depends on how a given adapter achieves it.
type Script string

// ScriptClaim is the atomic claim operation: pop the next envelope from
// the inbox list and, if one exists, record it under a fresh pipeline id
// in the pipeline hash. ClaimArgs/ClaimResult describe its argument and
// result shapes.
const ScriptClaim Script = "claim"

// ClaimArgs is the Eval argument payload for ScriptClaim.
type ClaimArgs struct {
	InboxKey    string
	PipelineKey string
	PipelineID  string
}

// ClaimResult is the Eval result payload for ScriptClaim.
type ClaimResult struct {
	// Envelope is nil when the inbox was empty.
	Envelope []byte
}

// Subscription represents an active Subscribe call.
type Subscription interface {
	Unsubscribe() error
}

// Store is the operation set the actor runtime core requires. Every
// method is synchronous from the caller's point of view — Go callers
// that want concurrency just `go` the call.
//
// HashGet and ListPopTail return (nil, nil) when the key/field is
// absent, so callers aren't forced through a sentinel-error check on a
// path that isn't exceptional.
type Store interface {
	// ListPushTail appends value to the tail of the list at key.
	ListPushTail(ctx context.Context, key string, value []byte) error
	// ListPushHead prepends value to the head of the list at key.
	ListPushHead(ctx context.Context, key string, value []byte) error
	// ListPopTail removes and returns the value at the tail of the list at
	// key, or (nil, nil) if the list is empty.
	ListPopTail(ctx context.Context, key string) ([]byte, error)
	// ListLength returns the number of elements in the list at key.
	ListLength(ctx context.Context, key string) (int, error)

	// HashSet sets field in the hash at key to value, honoring policy.
	HashSet(ctx context.Context, key, field string, value []byte, policy OverwritePolicy) error
	// HashGet returns the value of field in the hash at key, or (nil, nil)
	// if absent.
	HashGet(ctx context.Context, key, field string) ([]byte, error)
	// HashDelete removes field from the hash at key. It is not an error if
	// the field is already absent.
	HashDelete(ctx context.Context, key, field string) error
	// HashGetAll returns every field/value pair in the hash at key. It is
	// used by the mailbox's crash-recovery scan and returns an empty map,
	// not an error, for an absent key.
	HashGetAll(ctx context.Context, key string) (map[string][]byte, error)

	// Eval executes script atomically on the server. args/result are
	// script-specific JSON payloads (see ClaimArgs/ClaimResult for
	// ScriptClaim).
	Eval(ctx context.Context, script Script, args []byte) ([]byte, error)

	// Publish sends message on channel to every current subscriber.
	Publish(ctx context.Context, channel string, message []byte) error
	// Subscribe registers onMessage to be called (on its own goroutine, one
	// at a time per subscription) for every message published on channel
	// after the call returns.
	Subscribe(ctx context.Context, channel string, onMessage func(payload []byte)) (Subscription, error)
}
