package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ractor-go/ractor/core/perkey"
)

// MemStore is an in-process Store implementation backed by plain Go maps.
// It is suitable for single-process deployments and tests; it is not
// durable across process restarts.
//
// Each key's mutations are serialized through a perkey.Scheduler, and
// every read and write also holds the store-wide mu, so the
// Eval(ScriptClaim, ...) operation is genuinely atomic with respect to
// concurrent pushes/pops on the same inbox.
type MemStore struct {
	mu    sync.RWMutex
	lists map[string][][]byte
	hash  map[string]map[string][]byte

	subMu sync.Mutex
	subs  map[string]map[*memSub]struct{}

	sched *perkey.Scheduler[string]
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		lists: make(map[string][][]byte),
		hash:  make(map[string]map[string][]byte),
		subs:  make(map[string]map[*memSub]struct{}),
		sched: perkey.New[string](),
	}
}

func (m *MemStore) ListPushTail(ctx context.Context, key string, value []byte) error {
	return m.sched.DoContext(ctx, key, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.lists[key] = append(m.lists[key], value)
		return nil
	})
}

func (m *MemStore) ListPushHead(ctx context.Context, key string, value []byte) error {
	return m.sched.DoContext(ctx, key, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.lists[key] = append([][]byte{value}, m.lists[key]...)
		return nil
	})
}

func (m *MemStore) ListPopTail(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := m.sched.DoContext(ctx, key, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		l := m.lists[key]
		if len(l) == 0 {
			return nil
		}
		out = l[len(l)-1]
		m.lists[key] = l[:len(l)-1]
		return nil
	})
	return out, err
}

func (m *MemStore) ListLength(_ context.Context, key string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lists[key]), nil
}

func (m *MemStore) HashSet(ctx context.Context, key, field string, value []byte, policy OverwritePolicy) error {
	return m.sched.DoContext(ctx, key, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		h, ok := m.hash[key]
		if !ok {
			h = make(map[string][]byte)
			m.hash[key] = h
		}
		if policy == OverwriteNever {
			if _, exists := h[field]; exists {
				return ErrFieldExists
			}
		}
		h[field] = value
		return nil
	})
}

func (m *MemStore) HashGet(_ context.Context, key, field string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hash[key][field], nil
}

func (m *MemStore) HashDelete(ctx context.Context, key, field string) error {
	return m.sched.DoContext(ctx, key, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.hash[key], field)
		return nil
	})
}

func (m *MemStore) HashGetAll(_ context.Context, key string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.hash[key]))
	for k, v := range m.hash[key] {
		out[k] = v
	}
	return out, nil
}

// Eval implements the one atomic script this runtime needs: ScriptClaim.
// It runs under the same per-key serialization as the plain list/hash
// operations above, so a claim can never race with a concurrent push/pop
// on the same inbox.
func (m *MemStore) Eval(ctx context.Context, script Script, args []byte) ([]byte, error) {
	switch script {
	case ScriptClaim:
		return m.evalClaim(ctx, args)
	default:
		return nil, &UnknownScriptError{Script: script}
	}
}

func (m *MemStore) evalClaim(ctx context.Context, args []byte) ([]byte, error) {
	var a ClaimArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var res ClaimResult
	err := m.sched.DoContext(ctx, a.InboxKey, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()

		l := m.lists[a.InboxKey]
		if len(l) == 0 {
			return nil
		}
		env := l[len(l)-1]
		m.lists[a.InboxKey] = l[:len(l)-1]

		h, ok := m.hash[a.PipelineKey]
		if !ok {
			h = make(map[string][]byte)
			m.hash[a.PipelineKey] = h
		}
		h[a.PipelineID] = env

		res.Envelope = env
		return nil
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(res)
}

func (m *MemStore) Publish(_ context.Context, channel string, message []byte) error {
	m.subMu.Lock()
	subs := make([]*memSub, 0, len(m.subs[channel]))
	for s := range m.subs[channel] {
		subs = append(subs, s)
	}
	m.subMu.Unlock()

	for _, s := range subs {
		s.deliver(message)
	}
	return nil
}

func (m *MemStore) Subscribe(_ context.Context, channel string, onMessage func(payload []byte)) (Subscription, error) {
	s := &memSub{store: m, channel: channel, onMessage: onMessage}

	m.subMu.Lock()
	if m.subs[channel] == nil {
		m.subs[channel] = make(map[*memSub]struct{})
	}
	m.subs[channel][s] = struct{}{}
	m.subMu.Unlock()

	return s, nil
}

type memSub struct {
	store     *MemStore
	channel   string
	onMessage func(payload []byte)

	mu sync.Mutex // serializes onMessage calls for this subscription
}

// deliver runs the handler on its own goroutine so a slow subscriber
// never blocks Publish or other subscribers; mu keeps the calls for one
// subscription one at a time.
func (s *memSub) deliver(payload []byte) {
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.onMessage(payload)
	}()
}

func (s *memSub) Unsubscribe() error {
	s.store.subMu.Lock()
	defer s.store.subMu.Unlock()
	delete(s.store.subs[s.channel], s)
	return nil
}

// UnknownScriptError is returned by Eval for a script name no adapter
// implements.
type UnknownScriptError struct {
	Script Script
}

func (e *UnknownScriptError) Error() string {
	return "store: unknown script " + string(e.Script)
}

var _ Store = (*MemStore)(nil)
