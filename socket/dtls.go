package socket

import (
	"context"
	"net"

	"github.com/pion/dtls/v2"
	"github.com/pkg/errors"
)

// DefaultCipherSuite is the PSK suite section 6 names as this transport's
// default for DTLS-secured CoAP.
const DefaultCipherSuite = dtls.TLS_PSK_WITH_AES_128_GCM_SHA256

// DTLSFactory dials DTLS-PSK sockets. Section 6 specifies an empty PSK
// identity hint, so PSK is expected to return the same key regardless of
// the hint the peer sends.
type DTLSFactory struct {
	PSK          func(hint []byte) ([]byte, error)
	CipherSuites []dtls.CipherSuiteID
}

func (f *DTLSFactory) Dial(ctx context.Context, network, address string) (Socket, error) {
	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve dtls address %q", address)
	}

	cfg := &dtls.Config{
		PSK:             f.PSK,
		PSKIdentityHint: []byte{},
		CipherSuites:    f.cipherSuites(),
	}

	conn, err := dtls.DialWithContext(ctx, "udp", raddr, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "dial dtls %q", address)
	}

	s := &dtlsSocket{conn: conn, reads: make(chan []byte, 16), errs: make(chan error, 1)}
	go s.readLoop()
	return s, nil
}

func (f *DTLSFactory) cipherSuites() []dtls.CipherSuiteID {
	if len(f.CipherSuites) > 0 {
		return f.CipherSuites
	}
	return []dtls.CipherSuiteID{DefaultCipherSuite}
}

type dtlsSocket struct {
	conn  *dtls.Conn
	reads chan []byte
	errs  chan error
}

func (s *dtlsSocket) Write(b []byte) error {
	_, err := s.conn.Write(b)
	return err
}

func (s *dtlsSocket) Close() error { return s.conn.Close() }

func (s *dtlsSocket) Reads() <-chan []byte { return s.reads }
func (s *dtlsSocket) Errs() <-chan error   { return s.errs }

func (s *dtlsSocket) readLoop() {
	buf := make([]byte, 2048)
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
