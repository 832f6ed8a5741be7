package ractor

import "errors"

var (
	// ErrNoComputation is returned by Start when the actor was created
	// without a Computation.
	ErrNoComputation = errors.New("ractor: actor has no computation")
	// ErrNotRunning is returned by PostAndReply's local bypass when Start
	// has not yet returned successfully, or Stop has been called since:
	// the local path still requires a running actor even though it never
	// touches the dispatch loop.
	ErrNotRunning = errors.New("ractor: actor is not running")
	// ErrDisposed is returned by every error-returning method called on a
	// disposed actor, except a second Dispose, which is a no-op. Methods
	// without an error result (Link, UnLink, Children, SetErrorHandler,
	// Stop) do not check for disposal.
	ErrDisposed = errors.New("ractor: actor is disposed")
	// ErrTimeout is returned by PostAndReply when no result arrives within
	// the requested timeout.
	ErrTimeout = errors.New("ractor: timed out waiting for reply")
)
