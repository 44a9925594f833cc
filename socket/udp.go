package socket

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"golang.org/x/net/ipv6"
)

// UDPFactory dials unicast or link-local-multicast UDP sockets.
// MulticastInterface, if set and the address is an IPv6 multicast group
// (RFC 7252 section 8.2, CoAP's "All CoAP Nodes" group), is used to join
// that group through golang.org/x/net/ipv6's PacketConn. It does not select
// the interface outgoing datagrams leave by.
type UDPFactory struct {
	MulticastInterface *net.Interface
	ReadBufferSize     int
}

func (f *UDPFactory) Dial(ctx context.Context, network, address string) (Socket, error) {
	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve udp address %q", address)
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial udp %q", address)
	}

	if raddr.IP.To4() == nil && raddr.IP.IsMulticast() && f.MulticastInterface != nil {
		pc := ipv6.NewPacketConn(conn)
		if err := pc.JoinGroup(f.MulticastInterface, &net.UDPAddr{IP: raddr.IP}); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "join ipv6 multicast group")
		}
	}

	s := &udpSocket{conn: conn, reads: make(chan []byte, 16), errs: make(chan error, 1)}
	go s.readLoop(f.readBufferSize())
	return s, nil
}

func (f *UDPFactory) readBufferSize() int {
	if f.ReadBufferSize > 0 {
		return f.ReadBufferSize
	}
	return 2048
}

type udpSocket struct {
	conn  *net.UDPConn
	reads chan []byte
	errs  chan error
}

func (s *udpSocket) Write(b []byte) error {
	_, err := s.conn.Write(b)
	return err
}

func (s *udpSocket) Close() error {
	return s.conn.Close()
}

func (s *udpSocket) Reads() <-chan []byte { return s.reads }
func (s *udpSocket) Errs() <-chan error   { return s.errs }

func (s *udpSocket) readLoop(bufSize int) {
	buf := make([]byte, bufSize)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			s.errs <- err
			close(s.reads)
			return
		}
		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		s.reads <- datagram
	}
}
