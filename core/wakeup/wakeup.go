// Package wakeup implements a two-signal local wakeup bus: an
// edge-triggered "a message may have arrived" signal and a separate "a
// result may have arrived" signal, fed from a single store.Subscribe
// callback that demultiplexes on empty/non-empty payload.
//
// The two signal kinds are modeled as two distinct channels rather than
// a single overloaded one, so callers never need to inspect payload
// emptiness outside the demux itself.
package wakeup

import (
	"context"
	"time"
)

// Signal is a capacity-1 edge-triggered flag: a non-blocking Set never
// blocks and coalesces with any pending, unconsumed Set; Wait clears the
// edge it observes. Signals are hints, not delivery — callers must
// re-check the store after waking.
type Signal struct {
	ch chan struct{}
}

// NewSignal creates a cleared Signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Set raises the edge. Idempotent while unconsumed.
func (s *Signal) Set() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the edge is set (consuming it), the context is done,
// or timeout elapses (timeout <= 0 means wait indefinitely). It reports
// whether the edge fired.
func (s *Signal) Wait(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-s.ch:
			return true
		case <-ctx.Done():
			return false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.ch:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Bus holds the two per-actor signals and the subscription demultiplexing
// into them.
type Bus struct {
	MessageArrived *Signal
	ResultArrived  *Signal
}

// NewBus creates a cleared Bus.
func NewBus() *Bus {
	return &Bus{
		MessageArrived: NewSignal(),
		ResultArrived:  NewSignal(),
	}
}

// OnNotification is the store.Subscribe callback: an empty payload means
// "mailbox may be non-empty", any non-empty payload (the correlation id,
// which callers re-read rather than trust) means "a result may have
// arrived".
func (b *Bus) OnNotification(payload []byte) {
	if len(payload) == 0 {
		b.MessageArrived.Set()
	} else {
		b.ResultArrived.Set()
	}
}
