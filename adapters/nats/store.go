package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/ractor-go/ractor/core/store"
)

// claimLockRetry is how long acquireClaimLock waits between Create
// attempts while another claimer holds the lock for the same inbox.
const claimLockRetry = 5 * time.Millisecond

// StoreConfig configures a JetStream-backed Store Adapter.
type StoreConfig struct {
	Connect Connector    // Connect creates the underlying NATS connection. ConnectDefault() if nil.
	Bucket  string       // Bucket names the JetStream KV bucket backing lists and hashes.
	Log     *slog.Logger // Log for diagnostics (optional)
}

// Store is a store.Store backed by a NATS JetStream key-value bucket for
// lists and hashes, and core NATS pub/sub for the notification channel.
// Lists are CAS-looped against the KV's optimistic revision for
// single-key reads and writes.
//
// The claim script (Eval(ScriptClaim, ...)) pops the inbox tail and
// writes the result into the pipeline hash as two separate KV calls;
// acquireClaimLock wraps both in a per-inbox advisory lock (a KV key
// created with Create, which fails if another claimer already holds it)
// so two concurrent claimers against the same inbox never interleave.
// The lock does not protect against a process crashing while it holds
// the key: a crashed claimer leaves the lock key in place until an
// operator clears it, trading liveness for the atomicity guarantee.
type Store struct {
	nc      *natsgo.Conn
	closeNc closeFunc
	kv      jetstream.KeyValue
	log     *slog.Logger

	mu   sync.Mutex
	subs map[*natsgo.Subscription]struct{}
}

// NewStore connects and creates (or reuses) the configured JetStream KV
// bucket.
func NewStore(cfg StoreConfig) (*Store, error) {
	connFn := cfg.Connect
	if connFn == nil {
		connFn = ConnectDefault()
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "ractor_mailboxes"
	}

	nc, closeNc, err := connFn()
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, err
	}

	kv, err := js.CreateOrUpdateKeyValue(context.Background(), jetstream.KeyValueConfig{
		Bucket:  bucket,
		Storage: jetstream.FileStorage,
	})
	if err != nil {
		return nil, err
	}

	return &Store{
		nc:      nc,
		closeNc: closeNc,
		kv:      kv,
		log:     log.With(slog.String("store", "nats")),
		subs:    make(map[*natsgo.Subscription]struct{}),
	}, nil
}

// Close drains pub/sub subscriptions and releases the connection.
func (s *Store) Close() error {
	s.mu.Lock()
	for sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = map[*natsgo.Subscription]struct{}{}
	s.mu.Unlock()
	if s.nc != nil {
		s.nc.Drain()
	}
	if s.closeNc != nil {
		s.closeNc()
	}
	return nil
}

func claimLockKVKey(inboxKey string) string { return "claimlock." + sanitize(inboxKey) }

// acquireClaimLock takes the per-inbox advisory lock backing
// Store.Eval(ScriptClaim, ...): it creates the lock key, retrying on
// ErrKeyExists until ctx is done, and returns a release func that
// deletes it. Create is the same exists-if-present primitive casUpdateList
// already relies on for a key's first write, so a second claimer blocked
// on this key observes the same conflict error as a blocked list writer.
func (s *Store) acquireClaimLock(ctx context.Context, inboxKey string) (func(), error) {
	key := claimLockKVKey(inboxKey)
	for {
		_, err := s.kv.Create(ctx, key, []byte("1"))
		if err == nil {
			return func() { _ = s.kv.Delete(context.Background(), key) }, nil
		}
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(claimLockRetry):
		}
	}
}

func listKVKey(key string) string { return "list." + sanitize(key) }

func hashKVPrefix(key string) string { return "hash." + sanitize(key) + "." }

func hashKVKey(key, field string) string { return hashKVPrefix(key) + sanitize(field) }

// sanitize maps the store's logical key separator (":"), which JetStream
// KV keys do not accept, to "_". Dots separate the list/hash prefix from
// the field, so fields that themselves contain dots are not expected in
// this domain (ids are hex/nanoid alphanumerics).
func sanitize(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

type listEnvelope struct {
	Items [][]byte `json:"items"`
}

// casUpdateList runs fn against the current list contents and writes the
// result back under the revision it was read at, retrying on a
// conflicting concurrent writer (jetstream.ErrKeyExists-style revision
// mismatch) since the mailbox has multiple producers per key.
func (s *Store) casUpdateList(ctx context.Context, key string, fn func([][]byte) [][]byte) error {
	kvKey := listKVKey(key)
	for {
		entry, err := s.kv.Get(ctx, kvKey)
		var rev uint64
		var items [][]byte
		if err != nil {
			if !errors.Is(err, jetstream.ErrKeyNotFound) {
				return err
			}
			rev = 0
			items = nil
		} else {
			var le listEnvelope
			if err := json.Unmarshal(entry.Value(), &le); err != nil {
				return err
			}
			rev = entry.Revision()
			items = le.Items
		}

		next := fn(items)
		wire, err := json.Marshal(listEnvelope{Items: next})
		if err != nil {
			return err
		}

		if rev == 0 {
			if _, err := s.kv.Create(ctx, kvKey, wire); err != nil {
				if errors.Is(err, jetstream.ErrKeyExists) {
					continue
				}
				return err
			}
			return nil
		}
		if _, err := s.kv.Update(ctx, kvKey, wire, rev); err != nil {
			if isRevisionConflict(err) {
				continue
			}
			return err
		}
		return nil
	}
}

func isRevisionConflict(err error) bool {
	return errors.Is(err, jetstream.ErrKeyExists) || strings.Contains(err.Error(), "wrong last sequence")
}

func (s *Store) ListPushTail(ctx context.Context, key string, value []byte) error {
	return s.casUpdateList(ctx, key, func(items [][]byte) [][]byte {
		return append(items, value)
	})
}

func (s *Store) ListPushHead(ctx context.Context, key string, value []byte) error {
	return s.casUpdateList(ctx, key, func(items [][]byte) [][]byte {
		return append([][]byte{value}, items...)
	})
}

func (s *Store) ListPopTail(ctx context.Context, key string) ([]byte, error) {
	var popped []byte
	err := s.casUpdateList(ctx, key, func(items [][]byte) [][]byte {
		if len(items) == 0 {
			popped = nil
			return items
		}
		popped = items[len(items)-1]
		return items[:len(items)-1]
	})
	return popped, err
}

func (s *Store) ListLength(ctx context.Context, key string) (int, error) {
	entry, err := s.kv.Get(ctx, listKVKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var le listEnvelope
	if err := json.Unmarshal(entry.Value(), &le); err != nil {
		return 0, err
	}
	return len(le.Items), nil
}

func (s *Store) HashSet(ctx context.Context, key, field string, value []byte, policy store.OverwritePolicy) error {
	kvKey := hashKVKey(key, field)
	if policy == store.OverwriteNever {
		if _, err := s.kv.Create(ctx, kvKey, value); err != nil {
			if errors.Is(err, jetstream.ErrKeyExists) {
				return store.ErrFieldExists
			}
			return err
		}
		return nil
	}
	_, err := s.kv.Put(ctx, kvKey, value)
	return err
}

func (s *Store) HashGet(ctx context.Context, key, field string) ([]byte, error) {
	entry, err := s.kv.Get(ctx, hashKVKey(key, field))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return entry.Value(), nil
}

func (s *Store) HashDelete(ctx context.Context, key, field string) error {
	err := s.kv.Delete(ctx, hashKVKey(key, field))
	if err != nil && errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (s *Store) HashGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	prefix := hashKVPrefix(key)
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return map[string][]byte{}, nil
		}
		return nil, err
	}

	out := make(map[string][]byte)
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		entry, err := s.kv.Get(ctx, k)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}
			return nil, err
		}
		out[strings.TrimPrefix(k, prefix)] = entry.Value()
	}
	return out, nil
}

// Eval implements store.ScriptClaim. It takes the per-inbox advisory
// lock, pops the inbox tail, and, if an envelope was present, writes it
// into the pipeline hash under the caller-supplied pipeline id, holding
// the lock across both calls so no concurrent claimer against the same
// inbox can pop an envelope this call already owns before it is recorded
// in the pipeline hash.
func (s *Store) Eval(ctx context.Context, script store.Script, args []byte) ([]byte, error) {
	if script != store.ScriptClaim {
		return nil, fmt.Errorf("nats store: unknown script %q", script)
	}
	var in store.ClaimArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}

	release, err := s.acquireClaimLock(ctx, in.InboxKey)
	if err != nil {
		return nil, fmt.Errorf("nats store: acquire claim lock: %w", err)
	}
	defer release()

	envelope, err := s.ListPopTail(ctx, in.InboxKey)
	if err != nil {
		return nil, err
	}
	if envelope != nil {
		if err := s.HashSet(ctx, in.PipelineKey, in.PipelineID, envelope, store.OverwriteAlways); err != nil {
			return nil, err
		}
	}

	out, err := json.Marshal(store.ClaimResult{Envelope: envelope})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Publish(_ context.Context, channel string, message []byte) error {
	return s.nc.Publish(channel, message)
}

func (s *Store) Subscribe(_ context.Context, channel string, onMessage func(payload []byte)) (store.Subscription, error) {
	sub, err := s.nc.Subscribe(channel, func(msg *natsgo.Msg) {
		onMessage(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("nats: subscribe %q: %w", channel, err)
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	return &subscription{sub: sub, unregister: func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
	}}, nil
}

type subscription struct {
	sub        *natsgo.Subscription
	unregister func()
}

func (sc *subscription) Unsubscribe() error {
	sc.unregister()
	return sc.sub.Unsubscribe()
}

var _ store.Store = &Store{}
