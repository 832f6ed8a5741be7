// Package nats provides the JetStream-backed store.Store adapter: Store
// (in store.go) maps the mailbox's lists/hashes/claim-script/pub-sub port
// onto a JetStream KV bucket and core NATS subjects. This file is the
// connection lifecycle the Store dials through, kept independent of the
// mailbox shape so it can be unit-tested (connect_test.go) and shared
// between a gateway process's Store and its own pub/sub publishers.
package nats

import (
	"os"
	"sync"
	"sync/atomic"

	natsgo "github.com/nats-io/nats.go"
)

type closeFunc = func()

// Connector dials (or reuses) a NATS connection for a Store. ReuseConnection
// wraps one so every Store created against the same Connector shares a
// single underlying *natsgo.Conn, reference-counted and closed once the last
// lease releases it.
type Connector func() (nc *natsgo.Conn, close closeFunc, err error)

func ReuseConnection(connect Connector) Connector {
	var mu sync.Mutex
	var nc *natsgo.Conn
	var closeCon closeFunc
	var leased atomic.Int64
	var weakClose closeFunc = func() {
		mu.Lock()
		defer mu.Unlock()
		if leased.Add(-1) == 0 {
			closeCon()
			nc = nil
		}
	}
	return func() (*natsgo.Conn, closeFunc, error) {
		mu.Lock()
		defer mu.Unlock()
		if nc == nil {
			var err error
			nc, closeCon, err = connect()
			if err != nil {
				return nil, nil, err
			}
			leased.Add(1)
			return nc, weakClose, nil
		}
		leased.Add(1)
		return nc, weakClose, nil
	}
}

func ConnectURL(natsURL string) Connector {
	return func() (*natsgo.Conn, closeFunc, error) {
		nc, err := natsgo.Connect(
			natsURL,
			natsgo.MaxReconnects(3),
		)
		if err != nil {
			return nil, nil, err
		}
		return nc, func() { nc.Close() }, nil
	}
}

func ConnectDefault() Connector {
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		return ConnectURL(natsURL)
	}
	return ConnectURL(natsgo.DefaultURL)
}
