package ractor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/ractor-go/ractor/core/mailbox"
	"github.com/ractor-go/ractor/core/store"
)

func newTestActor[In, Out any](t *testing.T, id string, fn Computation[In, Out]) *Actor[In, Out] {
	t.Helper()
	s := store.NewMemStore()
	return newTestActorWithStore(t, s, id, fn)
}

func newTestActorWithStore[In, Out any](t *testing.T, s store.Store, id string, fn Computation[In, Out]) *Actor[In, Out] {
	t.Helper()
	a, err := New(id, Options[In, Out]{Store: s, Computation: fn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Dispose() })
	return a
}

func TestActor_PostAndReplyLocal_EchoRoundTrip(t *testing.T) {
	a := newTestActor(t, "echo", func(_ context.Context, in string) (string, error) {
		return "echo:" + in, nil
	})
	require.NoError(t, a.Start(t.Context()))

	out, err := a.PostAndReply(t.Context(), "hello", false, time.Second)
	require.NoError(t, err)
	require.Equal(t, "echo:hello", out)
}

func TestActor_PostAndReplyRemote_RoundTrip(t *testing.T) {
	s := store.NewMemStore()
	a := newTestActorWithStore(t, s, "remote-echo", func(_ context.Context, in string) (string, error) {
		return "echo:" + in, nil
	})
	require.NoError(t, a.Start(t.Context()))

	out, err := a.PostAndReplyRemote(t.Context(), "world", false, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, "echo:world", out)
}

func TestActor_Post_FireAndForget_IsProcessed(t *testing.T) {
	var mu sync.Mutex
	var seen []int

	a := newTestActor(t, "sink", func(_ context.Context, in int) (int, error) {
		mu.Lock()
		seen = append(seen, in)
		mu.Unlock()
		return in, nil
	})
	require.NoError(t, a.Start(t.Context()))

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Post(t.Context(), i))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 5
	}, 2*time.Second, 10*time.Millisecond)
}

func TestActor_PipelineFanOut(t *testing.T) {
	s := store.NewMemStore()

	var mu sync.Mutex
	var doubled []int

	sink := newTestActorWithStore(t, s, "sink", func(_ context.Context, in int) (int, error) {
		mu.Lock()
		doubled = append(doubled, in)
		mu.Unlock()
		return in, nil
	})
	require.NoError(t, sink.Start(t.Context()))

	source := newTestActorWithStore(t, s, "source", func(_ context.Context, in int) (int, error) {
		return in * 2, nil
	})
	source.Link(sink)
	require.NoError(t, source.Start(t.Context()))

	require.NoError(t, source.Post(t.Context(), 21))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(doubled) == 1 && doubled[0] == 42
	}, 2*time.Second, 10*time.Millisecond)
}

func TestActor_ErrorRouting_ForwardsToHandler(t *testing.T) {
	s := store.NewMemStore()

	var mu sync.Mutex
	var received []mailbox.ErrorEnvelope

	handler := newTestActorWithStore(t, s, "handler", func(_ context.Context, in mailbox.ErrorEnvelope) (mailbox.ErrorEnvelope, error) {
		mu.Lock()
		received = append(received, in)
		mu.Unlock()
		return in, nil
	})
	require.NoError(t, handler.Start(t.Context()))

	boom := newTestActorWithStore(t, s, "boom", func(_ context.Context, in int) (int, error) {
		return 0, fmt.Errorf("boom: %d", in)
	})
	boom.SetErrorHandler(handler)
	require.NoError(t, boom.Start(t.Context()))

	require.NoError(t, boom.Post(t.Context(), 7))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestActor_PostAndReply_Timeout(t *testing.T) {
	a := newTestActor(t, "slow", func(ctx context.Context, in int) (int, error) {
		select {
		case <-time.After(200 * time.Millisecond):
			return in, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
	require.NoError(t, a.Start(t.Context()))

	_, err := a.PostAndReply(t.Context(), 1, false, 10*time.Millisecond)
	require.Error(t, err)
}

func TestActor_PostHighPriority_JumpsQueue(t *testing.T) {
	s := store.NewMemStore()

	var mu sync.Mutex
	var order []int

	a, err := New("priority", Options[int, int]{
		Store: s,
		Computation: func(_ context.Context, in int) (int, error) {
			mu.Lock()
			order = append(order, in)
			mu.Unlock()
			return in, nil
		},
		Semaphore: semaphore.NewWeighted(1),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Dispose() })

	require.NoError(t, a.Post(t.Context(), 1))
	require.NoError(t, a.Post(t.Context(), 2))
	require.NoError(t, a.PostHighPriority(t.Context(), 99))

	require.NoError(t, a.Start(t.Context()))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{99, 1, 2}, order)
}

func TestActor_Start_WithoutComputation_ReturnsErrNoComputation(t *testing.T) {
	s := store.NewMemStore()
	a, err := New("no-comp", Options[int, int]{Store: s})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Dispose() })

	require.ErrorIs(t, a.Start(t.Context()), ErrNoComputation)
}

func TestActor_PostAndReply_BeforeStart_ReturnsErrNotRunning(t *testing.T) {
	a := newTestActor(t, "idle", func(_ context.Context, in int) (int, error) { return in, nil })

	_, err := a.PostAndReply(t.Context(), 1, false, time.Second)
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestActor_PostAndReply_AfterStop_ReturnsErrNotRunning(t *testing.T) {
	a := newTestActor(t, "stopped", func(_ context.Context, in int) (int, error) { return in, nil })
	require.NoError(t, a.Start(t.Context()))
	a.Stop()

	_, err := a.PostAndReply(t.Context(), 1, false, time.Second)
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestActor_PostAndReplyRemote_HighPriority_JumpsQueue(t *testing.T) {
	s := store.NewMemStore()

	var mu sync.Mutex
	var order []int

	a, err := New("remote-priority", Options[int, int]{
		Store: s,
		Computation: func(_ context.Context, in int) (int, error) {
			mu.Lock()
			order = append(order, in)
			mu.Unlock()
			return in, nil
		},
		Semaphore: semaphore.NewWeighted(1),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Dispose() })

	require.NoError(t, a.Post(t.Context(), 1))

	replyErr := make(chan error, 1)
	go func() {
		_, err := a.PostAndReplyRemote(t.Context(), 99, true, time.Second)
		replyErr <- err
	}()
	require.Eventually(t, func() bool {
		n, err := a.QueueLength(t.Context())
		return err == nil && n == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, a.Start(t.Context()))
	require.NoError(t, <-replyErr)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{99, 1}, order)
}

func TestActor_DisposedActor_RejectsOperations(t *testing.T) {
	a := newTestActor(t, "disposable", func(_ context.Context, in int) (int, error) { return in, nil })
	require.NoError(t, a.Dispose())

	require.ErrorIs(t, a.Post(t.Context(), 1), ErrDisposed)
	require.ErrorIs(t, a.Start(t.Context()), ErrDisposed)
}

func TestActor_CrashRecovery_OrphanedPipelineEntryIsReplayed(t *testing.T) {
	s := store.NewMemStore()
	k := mailbox.KeysFor("recovered")

	env := mailbox.Envelope{Payload: mustMarshal(t, 99)}
	require.NoError(t, mailbox.PutPipeline(t.Context(), s, k, "orphan-1", env))

	var mu sync.Mutex
	var got []int

	a, err := New("recovered", Options[int, int]{
		Store: s,
		Computation: func(_ context.Context, in int) (int, error) {
			mu.Lock()
			got = append(got, in)
			mu.Unlock()
			return in, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Dispose() })

	require.NoError(t, a.Start(t.Context()))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == 99
	}, time.Second, 5*time.Millisecond)
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
