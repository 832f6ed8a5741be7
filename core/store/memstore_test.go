package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemStore_ListFIFO(t *testing.T) {
	s := NewMemStore()

	require.NoError(t, s.ListPushHead(t.Context(), "q", []byte("a")))
	require.NoError(t, s.ListPushHead(t.Context(), "q", []byte("b")))
	require.NoError(t, s.ListPushHead(t.Context(), "q", []byte("c")))

	n, err := s.ListLength(t.Context(), "q")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	v, err := s.ListPopTail(t.Context(), "q")
	require.NoError(t, err)
	require.Equal(t, "a", string(v))

	v, err = s.ListPopTail(t.Context(), "q")
	require.NoError(t, err)
	require.Equal(t, "b", string(v))
}

func TestMemStore_HighPriorityJumpsQueue(t *testing.T) {
	s := NewMemStore()

	require.NoError(t, s.ListPushHead(t.Context(), "q", []byte("normal-1")))
	require.NoError(t, s.ListPushTail(t.Context(), "q", []byte("high-1")))

	v, err := s.ListPopTail(t.Context(), "q")
	require.NoError(t, err)
	require.Equal(t, "high-1", string(v))

	v, err = s.ListPopTail(t.Context(), "q")
	require.NoError(t, err)
	require.Equal(t, "normal-1", string(v))
}

func TestMemStore_PopEmptyReturnsNilNil(t *testing.T) {
	s := NewMemStore()
	v, err := s.ListPopTail(t.Context(), "empty")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestMemStore_HashSetGetDelete(t *testing.T) {
	s := NewMemStore()

	v, err := s.HashGet(t.Context(), "h", "f")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, s.HashSet(t.Context(), "h", "f", []byte("v1"), OverwriteAlways))
	v, err = s.HashGet(t.Context(), "h", "f")
	require.NoError(t, err)
	require.Equal(t, "v1", string(v))

	require.NoError(t, s.HashSet(t.Context(), "h", "f", []byte("v2"), OverwriteAlways))
	v, _ = s.HashGet(t.Context(), "h", "f")
	require.Equal(t, "v2", string(v))

	require.ErrorIs(t, s.HashSet(t.Context(), "h", "f", []byte("v3"), OverwriteNever), ErrFieldExists)

	require.NoError(t, s.HashDelete(t.Context(), "h", "f"))
	v, _ = s.HashGet(t.Context(), "h", "f")
	require.Nil(t, v)
}

func TestMemStore_HashGetAll(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.HashSet(t.Context(), "h", "a", []byte("1"), OverwriteAlways))
	require.NoError(t, s.HashSet(t.Context(), "h", "b", []byte("2"), OverwriteAlways))

	all, err := s.HashGetAll(t.Context(), "h")
	require.NoError(t, err)
	require.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, all)

	empty, err := s.HashGetAll(t.Context(), "missing")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestMemStore_Claim(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.ListPushHead(t.Context(), "inbox", []byte("env-1")))

	env, err := Claim(t.Context(), s, "inbox", "pipeline", "pid-1")
	require.NoError(t, err)
	require.Equal(t, "env-1", string(env))

	pv, err := s.HashGet(t.Context(), "pipeline", "pid-1")
	require.NoError(t, err)
	require.Equal(t, "env-1", string(pv))

	env, err = Claim(t.Context(), s, "inbox", "pipeline", "pid-2")
	require.NoError(t, err)
	require.Nil(t, env)
}

func TestMemStore_PubSub(t *testing.T) {
	s := NewMemStore()
	received := make(chan []byte, 1)

	sub, err := s.Subscribe(t.Context(), "ch", func(payload []byte) {
		received <- payload
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, s.Publish(t.Context(), "ch", []byte("hello")))
	require.Equal(t, "hello", string(<-received))
}
