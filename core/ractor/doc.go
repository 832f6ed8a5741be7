// Package ractor implements a durable, mailbox-backed actor: an
// intake/commit/ack pipeline on top of a store.Store, bounded by a
// process-wide semaphore, with parent/child fan-out and errors routed to
// a bound error-handler actor.
//
// # Creating and running an actor
//
//	echo, err := ractor.New[int, int]("echo", ractor.Options[int, int]{
//	    Store: store.NewMemStore(),
//	    Computation: func(ctx context.Context, in int) (int, error) {
//	        return in, nil
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := echo.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer echo.Dispose()
//
//	out, err := echo.PostAndReply(ctx, 42, false, time.Second)
//
// # Chaining actors
//
// Link makes an actor's output automatically posted to a child actor's
// mailbox, forming a pipeline:
//
//	double.Link(inc)
//
// # Errors
//
// A computation's failure never stops the dispatcher loop: the input and
// error are appended to the actor's errors list and, if an error handler
// is bound via SetErrorHandler, forwarded to it as a fresh post.
package ractor
