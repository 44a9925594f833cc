package transport

import (
	"context"
	"sync"

	"github.com/lobaro/coap-transport/socket"
)

// fakeSocket and fakeFactory replace a real UDP/DTLS/WS socket with two
// in-memory packet queues, the same shape as coap/connector_test.go's
// PacketBuffer/TestConnector pair: deliver() plays the role of
// TestConnector.FakeReceiveData, popWritten() the role of GetSendData.
type fakeSocket struct {
	mu       sync.Mutex
	written  [][]byte
	closed   bool
	writeErr error

	reads chan []byte
	errs  chan error
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		reads: make(chan []byte, 16),
		errs:  make(chan error, 1),
	}
}

func (s *fakeSocket) Write(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	s.written = append(s.written, cp)
	return nil
}

// failWrites makes every subsequent Write report err, simulating a socket
// write failure.
func (s *fakeSocket) failWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.reads)
	}
	return nil
}

func (s *fakeSocket) Reads() <-chan []byte { return s.reads }
func (s *fakeSocket) Errs() <-chan error   { return s.errs }

// deliver plays an inbound datagram into the socket's receive loop, as if
// it had arrived from the wire.
func (s *fakeSocket) deliver(b []byte) {
	s.reads <- b
}

// fail ends the receive loop with a terminal error.
func (s *fakeSocket) fail(err error) {
	s.errs <- err
}

func (s *fakeSocket) popWritten() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.written) == 0 {
		return nil
	}
	b := s.written[0]
	s.written = s.written[1:]
	return b
}

func (s *fakeSocket) writtenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.written)
}

type fakeFactory struct {
	mu      sync.Mutex
	sockets map[string]*fakeSocket
	dialErr error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{sockets: map[string]*fakeSocket{}}
}

func (f *fakeFactory) Dial(ctx context.Context, network, address string) (socket.Socket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	s := newFakeSocket()
	f.sockets[network+"|"+address] = s
	return s, nil
}

func (f *fakeFactory) socketFor(ep Endpoint) *fakeSocket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sockets[ep.Network+"|"+ep.Address()]
}
