package socket

import (
	"context"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// WSFactory dials CoAP-over-WebSocket sockets (RFC 8323, a feature the
// distilled specification doesn't name but the original UART transport's
// framing concerns map onto naturally): each CoAP datagram becomes one
// binary WebSocket message on the "coap" subprotocol.
type WSFactory struct {
	Dialer *websocket.Dialer
}

func (f *WSFactory) Dial(ctx context.Context, network, address string) (Socket, error) {
	u := url.URL{Scheme: "ws", Host: address, Path: "/"}

	dialer := f.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{Subprotocols: []string{"coap"}}
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dial ws %q", address)
	}

	s := &wsSocket{conn: conn, reads: make(chan []byte, 16), errs: make(chan error, 1)}
	go s.readLoop()
	return s, nil
}

type wsSocket struct {
	conn  *websocket.Conn
	reads chan []byte
	errs  chan error
}

func (s *wsSocket) Write(b []byte) error {
	return s.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (s *wsSocket) Close() error { return s.conn.Close() }

func (s *wsSocket) Reads() <-chan []byte { return s.reads }
func (s *wsSocket) Errs() <-chan error   { return s.errs }

func (s *wsSocket) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.errs <- err
			close(s.reads)
			return
		}
		s.reads <- data
	}
}
