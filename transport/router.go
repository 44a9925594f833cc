package transport

import (
	"github.com/lobaro/coap-transport/coapmsg"
)

// startReceiveLoop spawns the goroutine that forwards a connection's
// inbound datagrams and terminal errors back onto the registry executor.
// It runs off-executor so a blocking channel read never holds up any other
// peer's operations; every datagram it sees is handed to the delivery
// router (handleInbound) through a single do() call, which is what gives
// section 5 its "delivered in socket-receive order" guarantee.
func (t *Transport) startReceiveLoop(conn *peerConnection) {
	sock := conn.sock
	go func() {
		for {
			select {
			case data, ok := <-sock.Reads():
				if !ok {
					return
				}
				t.registry.do(func() { t.handleInbound(conn, data) })
			case err, ok := <-sock.Errs():
				if !ok {
					return
				}
				t.registry.do(func() { t.handleSocketError(conn, err) })
				return
			}
		}
	}()
}

func (t *Transport) handleSocketError(conn *peerConnection, err error) {
	if conn.state.terminal() {
		return
	}
	conn.state = stateFailed
	t.teardown(conn, &SocketIOError{Endpoint: conn.endpoint, Err: err})
}

// handleInbound implements section 4.7's delivery router. It runs inside
// the registry executor, so the map lookups and mutations it makes need no
// locking of their own.
func (t *Transport) handleInbound(conn *peerConnection, data []byte) {
	msg, err := coapmsg.ParseMessage(data)
	if err != nil {
		conn.log.WithError(err).Debug("dropping malformed datagram")
		return
	}

	conn.msgIDs.observe(msg.MessageID)
	conn.lastReceived = t.clock.Now()

	id := transactionID{token: string(msg.Token), endpoint: conn.endpoint}
	entry, hasDelegate := t.registry.delegates[id]

	if msg.Type == coapmsg.Confirmable {
		if !hasDelegate {
			t.sendRST(conn, msg.MessageID)
			return
		}
		t.sendAck(conn, msg.MessageID)
	}

	if !hasDelegate {
		return
	}

	entry.delegate.DidReceiveData(data, conn.endpoint)
	if !entry.observation && msg.Type == coapmsg.Acknowledgement {
		delete(t.registry.delegates, id)
	}
}

func (t *Transport) sendRST(conn *peerConnection, messageID uint16) {
	rst := coapmsg.NewRst(messageID)
	t.writeAsync(conn, rst.MustMarshalBinary(), transactionID{}, false, nil)
}

func (t *Transport) sendAck(conn *peerConnection, messageID uint16) {
	ack := coapmsg.NewAck(messageID)
	t.writeAsync(conn, ack.MustMarshalBinary(), transactionID{}, false, nil)
}
