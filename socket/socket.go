// Package socket provides the datagram transports a coap-transport.Transport
// dials through: plain UDP, DTLS-PSK, and CoAP-over-WebSocket. None of it
// knows about CoAP messages - it moves raw byte slices and leaves framing
// and retries to the transport package.
package socket

import "context"

// Socket is a bidirectional datagram channel bound to one peer. Reads()
// delivers inbound datagrams to a single consumer; Errs() reports the one
// terminal I/O failure that ends the stream. Write is safe to call
// concurrently with draining Reads()/Errs().
type Socket interface {
	Write(b []byte) error
	Close() error
	Reads() <-chan []byte
	Errs() <-chan error
}

// Factory dials a Socket for a given network/address pair. network is one
// of the transport.Network* constants ("udp", "udp-dtls", "ws"); address is
// a host:port pair.
type Factory interface {
	Dial(ctx context.Context, network, address string) (Socket, error)
}
