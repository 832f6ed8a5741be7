package ractor

import (
	"context"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/ractor-go/ractor/internal/codec"

	"github.com/ractor-go/ractor/core/store"
)

// Computation transforms an actor's input into its output. A nil
// Computation is a usage error at Start time.
type Computation[In, Out any] func(ctx context.Context, in In) (Out, error)

// Options configures a new Actor.
type Options[In, Out any] struct {
	// Store is the backing Store Adapter. Required.
	Store store.Store
	// Computation is the actor's transform. It must be set before Start;
	// relying on PostAndReply's local bypass alone does not exempt it.
	Computation Computation[In, Out]
	// Codec marshals/unmarshals In and Out across the store boundary.
	// Defaults to codec.JSONCodec{}.
	Codec codec.Codec
	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// Metrics receives instrumentation callbacks. Defaults to
	// NopActorMetrics().
	Metrics ActorMetrics
	// Semaphore bounds concurrently executing computations. Defaults to
	// the process-wide ProcessSemaphore().
	Semaphore *semaphore.Weighted
	// DeleteResultOnRead controls result retention. Nil defaults to true
	// (read-once-then-delete).
	DeleteResultOnRead *bool
}

func (o Options[In, Out]) withDefaults() Options[In, Out] {
	if o.Codec == nil {
		o.Codec = codec.JSONCodec{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = NopActorMetrics()
	}
	if o.Semaphore == nil {
		o.Semaphore = ProcessSemaphore()
	}
	if o.DeleteResultOnRead == nil {
		t := true
		o.DeleteResultOnRead = &t
	}
	return o
}
