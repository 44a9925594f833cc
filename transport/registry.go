package transport

import (
	"sync"
)

// transactionID is section 3's MessageTransportIdentifier: the pair
// (Token, Endpoint) that names one outstanding logical transaction.
type transactionID struct {
	token    string
	endpoint Endpoint
}

// delegateEntry is what the router looks up by transactionID.
type delegateEntry struct {
	delegate    Delegate
	observation bool
}

// registry is the single-writer operations executor of section 5: every
// mutation of the connection map, delegate map and per-peer message-ID
// counters runs as a closure submitted over ops and executed on run's
// goroutine, so none of the three maps needs its own lock. This is the
// "single-writer task... receives commands over a bounded channel" option
// section 9 offers in place of three independent locks, grounded on the
// mutex-protected registries the deleted coap.UartConnector kept before
// this module moved to UDP/DTLS peers.
type registry struct {
	ops  chan func()
	done chan struct{}
	wg   sync.WaitGroup

	conns     map[Endpoint]*peerConnection
	delegates map[transactionID]*delegateEntry
}

func newRegistry() *registry {
	r := &registry{
		ops:       make(chan func(), 64),
		done:      make(chan struct{}),
		conns:     map[Endpoint]*peerConnection{},
		delegates: map[transactionID]*delegateEntry{},
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *registry) run() {
	defer r.wg.Done()
	for {
		select {
		case op := <-r.ops:
			op()
		case <-r.done:
			// Drain whatever is already queued so callers blocked on do
			// get a reply instead of hanging, then exit.
			for {
				select {
				case op := <-r.ops:
					op()
				default:
					return
				}
			}
		}
	}
}

// do submits fn to the executor and blocks until it has run. Safe to call
// from any goroutine except the run goroutine itself: calling it from
// inside another fn deadlocks, which this package never does.
func (r *registry) do(fn func()) {
	done := make(chan struct{})
	select {
	case r.ops <- func() { fn(); close(done) }:
	case <-r.done:
		return
	}
	select {
	case <-done:
	case <-r.done:
	}
}

// close stops the executor goroutine. Callers should cancel all
// connections first; close does not do that on their behalf.
func (r *registry) close() {
	close(r.done)
	r.wg.Wait()
}
