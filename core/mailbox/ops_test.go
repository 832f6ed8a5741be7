package mailbox

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ractor-go/ractor/core/store"
)

func TestOps_PostClaimCommit(t *testing.T) {
	s := store.NewMemStore()
	k := KeysFor("actor-1")

	payload, _ := json.Marshal(42)
	require.NoError(t, Post(t.Context(), s, k, payload, "", false))

	n, err := QueueLength(t.Context(), s, k)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	env, ok, err := Claim(t.Context(), s, k, "pid-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "", env.CorrelationID)

	var v int
	require.NoError(t, json.Unmarshal(env.Payload, &v))
	require.Equal(t, 42, v)

	n, _ = QueueLength(t.Context(), s, k)
	require.Equal(t, 0, n)

	require.NoError(t, DeletePipeline(t.Context(), s, k, "pid-1"))

	recovered, err := RecoverPipeline(t.Context(), s, k)
	require.NoError(t, err)
	require.Empty(t, recovered)
}

func TestOps_ResultReadOnceThenDelete(t *testing.T) {
	s := store.NewMemStore()
	k := KeysFor("actor-1")

	require.NoError(t, WriteResult(t.Context(), s, k, "cid-1", []byte(`"done"`)))

	v, ok, err := ReadResult(t.Context(), s, k, "cid-1", true)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `"done"`, string(v))

	_, ok, err = ReadResult(t.Context(), s, k, "cid-1", true)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOps_RecoverPipelineAfterSimulatedCrash(t *testing.T) {
	s := store.NewMemStore()
	k := KeysFor("actor-1")

	env := Envelope{Payload: json.RawMessage(`"leftover"`)}
	require.NoError(t, PutPipeline(t.Context(), s, k, "pid-leftover", env))

	recovered, err := RecoverPipeline(t.Context(), s, k)
	require.NoError(t, err)
	require.Len(t, recovered, 1)
	require.Equal(t, env, recovered["pid-leftover"])
}

func TestOps_AppendError(t *testing.T) {
	s := store.NewMemStore()
	k := KeysFor("boom")

	require.NoError(t, AppendError(t.Context(), s, k, ErrorEnvelope{
		ActorID: "boom",
		Payload: json.RawMessage(`"hi"`),
		Error:   "kaboom",
	}))

	raw, err := s.ListPopTail(t.Context(), k.Errors)
	require.NoError(t, err)
	errEnv, err := DecodeErrorEnvelope(raw)
	require.NoError(t, err)
	require.Equal(t, "boom", errEnv.ActorID)
	require.Equal(t, "kaboom", errEnv.Error)
}

func TestOps_HighPriorityClaimedFirst(t *testing.T) {
	s := store.NewMemStore()
	k := KeysFor("q")

	pA, _ := json.Marshal("A")
	pB, _ := json.Marshal("B")
	require.NoError(t, Post(t.Context(), s, k, pA, "", false))
	require.NoError(t, Post(t.Context(), s, k, pB, "", true))

	env, ok, err := Claim(t.Context(), s, k, "pid-1")
	require.NoError(t, err)
	require.True(t, ok)
	var v string
	require.NoError(t, json.Unmarshal(env.Payload, &v))
	require.Equal(t, "B", v)
}
