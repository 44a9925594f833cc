package transport

import (
	"context"

	"github.com/lobaro/coap-transport/coapmsg"
	"github.com/lobaro/coap-transport/socket"
	"github.com/sirupsen/logrus"
)

// Option configures a Transport at construction time.
type Option func(*Transport)

// WithClock overrides the Clock a Transport uses for its setup and
// keepalive timers. Tests use this to drive both deterministically; a
// production caller never needs it.
func WithClock(c Clock) Option {
	return func(t *Transport) { t.clock = c }
}

// Transport is the public facade of section 4.8: send, message-ID
// issuance, per-transaction and per-connection cancellation, and a global
// close-all. It consumes only a Clock and a socket.Factory - the
// retry/backoff loop, resource dispatch and HTTP bridging above it are
// someone else's job (section 1's non-goals).
type Transport struct {
	clock   Clock
	factory socket.Factory

	registry *registry
	log      *logrus.Entry
}

// New builds a Transport that dials peers through factory. factory governs
// which wire security applies: plain UDP, DTLS-PSK, or CoAP-over-WebSocket,
// depending on which socket.Factory implementation the caller supplies
// (section 6's construction-time configuration).
func New(factory socket.Factory, opts ...Option) *Transport {
	t := &Transport{
		clock:   RealClock{},
		factory: factory,
		log:     logrus.WithField("component", "coap-transport"),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.registry = newRegistry()
	return t
}

func (t *Transport) seed() int64 {
	return t.clock.Now().UnixNano()
}

// Send encodes msg and dispatches it to ep. If msg carries a non-empty
// token and delegate is non-nil, the pair is registered in the transaction
// table before Send returns - so an inbound datagram the receive loop
// observes immediately after is guaranteed to find it (section 5's
// ordering guarantee). The connection for ep is created if it does not
// already exist in a non-terminal state (section 4.5's reuse rule).
func (t *Transport) Send(msg *coapmsg.Message, ep Endpoint, delegate Delegate) error {
	bin, err := msg.MarshalBinary()
	if err != nil {
		return &EncodeError{Err: err}
	}

	tracked := delegate != nil && len(msg.Token) > 0
	id := transactionID{token: string(msg.Token), endpoint: ep}
	observation := msg.IsObservation()

	t.registry.do(func() {
		conn := t.ensureConnection(ep)
		if tracked {
			t.registry.delegates[id] = &delegateEntry{delegate: delegate, observation: observation}
		}

		write := func() { t.writeAsync(conn, bin, id, tracked, delegate) }
		if conn.state == stateReady {
			write()
		} else {
			conn.pending = append(conn.pending, write)
		}
	})
	return nil
}

// MessageID draws the next message ID for ep (section 4.5), creating the
// connection record if this is the first call for that peer.
func (t *Transport) MessageID(ep Endpoint) uint16 {
	var id uint16
	t.registry.do(func() {
		conn := t.ensureConnection(ep)
		id = conn.msgIDs.Next()
	})
	return id
}

// CancelTransmission removes a single transaction's delegate registration.
// The connection, and any other transaction on it, is left untouched.
// Idempotent.
func (t *Transport) CancelTransmission(ep Endpoint, token []byte) {
	id := transactionID{token: string(token), endpoint: ep}
	t.registry.do(func() {
		delete(t.registry.delegates, id)
	})
}

// CancelConnection tears down the connection to ep: its socket is closed,
// its keepalive timer invalidated, and every delegate bound to it dropped
// without notification (an explicit cancel is not a failure). Idempotent.
func (t *Transport) CancelConnection(ep Endpoint) {
	t.registry.do(func() {
		conn, ok := t.registry.conns[ep]
		if !ok {
			return
		}
		conn.state = stateCancelled
		t.teardown(conn, nil)
	})
}

// CloseAll cancels every known peer connection.
func (t *Transport) CloseAll() {
	t.registry.do(func() {
		for _, conn := range t.registry.conns {
			conn.state = stateCancelled
			t.teardown(conn, nil)
		}
	})
}

// Close stops the registry's executor goroutine. Call CloseAll first if any
// connections are still open; Close itself does not cancel them.
func (t *Transport) Close() {
	t.registry.close()
}

// ensureConnection returns the connection record for ep, creating and
// dialing a fresh one if none exists or the existing one is terminal
// (section 4.5's reuse rule). Must run inside the registry executor.
func (t *Transport) ensureConnection(ep Endpoint) *peerConnection {
	if conn, ok := t.registry.conns[ep]; ok && !conn.state.terminal() {
		return conn
	}

	conn := newPeerConnection(ep, t.seed())
	t.registry.conns[ep] = conn
	conn.state = statePreparing
	conn.setupTimer = t.clock.AfterFunc(setupTimeout, func() {
		t.registry.do(func() { t.onSetupTimeout(conn) })
	})
	go t.dial(conn)
	return conn
}

func (t *Transport) dial(conn *peerConnection) {
	sock, err := t.factory.Dial(context.Background(), conn.endpoint.Network, conn.endpoint.Address())
	t.registry.do(func() {
		if conn.state.terminal() {
			if err == nil {
				sock.Close()
			}
			return
		}
		if err != nil {
			t.failSetup(conn, err.Error())
			return
		}
		conn.sock = sock
		t.enterReady(conn)
	})
}

func (t *Transport) onSetupTimeout(conn *peerConnection) {
	if conn.state != statePreparing && conn.state != stateWaiting {
		return
	}
	t.failSetup(conn, "connection did not reach Ready within the setup timeout")
}

func (t *Transport) failSetup(conn *peerConnection, reason string) {
	conn.state = stateFailed
	t.teardown(conn, &SetupError{Endpoint: conn.endpoint, Reason: reason})
}

func (t *Transport) enterReady(conn *peerConnection) {
	conn.state = stateReady
	if conn.setupTimer != nil {
		conn.setupTimer.Stop()
		conn.setupTimer = nil
	}

	pending := conn.pending
	conn.pending = nil
	for _, write := range pending {
		write()
	}

	// A completed handshake counts as contact: without this a freshly
	// Ready connection looks stale from the moment it's born, and the
	// first keepalive fire would immediately declare it dead.
	conn.lastReceived = t.clock.Now()

	t.startReceiveLoop(conn)
	t.scheduleKeepalive(conn)
}

// teardown stops conn's timers, closes its socket if dialed, evicts it from
// the registry, and drops every delegate bound to its endpoint. If err is
// non-nil each dropped delegate is notified via DidFail before its entry is
// removed; an explicit cancel passes nil and notifies no one.
func (t *Transport) teardown(conn *peerConnection, err error) {
	if conn.setupTimer != nil {
		conn.setupTimer.Stop()
	}
	if conn.keepaliveTimer != nil {
		conn.keepaliveTimer.Stop()
	}
	if conn.sock != nil {
		conn.sock.Close()
	}
	delete(t.registry.conns, conn.endpoint)

	for id, entry := range t.registry.delegates {
		if id.endpoint != conn.endpoint {
			continue
		}
		delete(t.registry.delegates, id)
		if err != nil {
			entry.delegate.DidFail(err)
		}
	}
}

// writeAsync performs the socket write off the registry executor (section
// 5: "the socket send call itself runs off-executor"), re-entering the
// executor only to report a failure. delegate, if non-nil, is notified via
// DidFail regardless of whether the transaction is tracked - a tokenless
// send still has a caller waiting to hear about it (sections 4.7 and 7).
// tracked gates only the registration cleanup: id identifies the
// transaction entry to remove, which only exists when a token was
// supplied. ping/ACK/RST writes pass a zero transactionID, tracked=false
// and a nil delegate since they have no delegate of their own.
func (t *Transport) writeAsync(conn *peerConnection, data []byte, id transactionID, tracked bool, delegate Delegate) {
	go func() {
		err := conn.sock.Write(data)
		if err == nil {
			return
		}
		t.registry.do(func() {
			if tracked {
				delete(t.registry.delegates, id)
			}
			if delegate != nil {
				delegate.DidFail(&SendError{Endpoint: conn.endpoint, Err: err})
			}
		})
	}()
}
