package transport

import (
	"time"

	"github.com/lobaro/coap-transport/coapmsg"
)

// keepaliveGrace is the extra second added to the reschedule delay after a
// ping is sent, so the next fire waits out the round trip before treating
// silence as further evidence of a dead peer.
const keepaliveGrace = 1 * time.Second

// scheduleKeepalive arms the first P-period fire for conn, on entering
// Ready.
func (t *Transport) scheduleKeepalive(conn *peerConnection) {
	conn.keepaliveTimer = t.clock.AfterFunc(keepalivePeriod, func() {
		t.registry.do(func() { t.onKeepaliveFire(conn) })
	})
}

func (t *Transport) onKeepaliveFire(conn *peerConnection) {
	if conn.state != stateReady {
		// Superseded: cancel_connection or a socket failure already tore
		// this connection down between scheduling and firing.
		return
	}

	now := t.clock.Now()
	elapsed := now.Sub(conn.lastReceived)

	switch {
	case elapsed >= deadPeerThreshold:
		t.declareDead(conn)
	case elapsed < keepalivePeriod:
		conn.keepaliveTimer = t.clock.AfterFunc(keepalivePeriod-elapsed, func() {
			t.registry.do(func() { t.onKeepaliveFire(conn) })
		})
	default:
		t.sendPing(conn)
		conn.keepaliveTimer = t.clock.AfterFunc(keepalivePeriod+keepaliveGrace, func() {
			t.registry.do(func() { t.onKeepaliveFire(conn) })
		})
	}
}

func (t *Transport) declareDead(conn *peerConnection) {
	conn.state = stateFailed
	t.teardown(conn, &PingTimeoutError{Endpoint: conn.endpoint})
}

func (t *Transport) sendPing(conn *peerConnection) {
	id := conn.msgIDs.Next()
	ping := coapmsg.NewPing(id)
	t.writeAsync(conn, ping.MustMarshalBinary(), transactionID{}, false, nil)
}
