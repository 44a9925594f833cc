package transport

import (
	"fmt"
	"net"
)

// Network names identify which socket.Factory implementation reaches a
// given Endpoint.
const (
	NetworkUDP  = "udp"
	NetworkDTLS = "udp-dtls"
	NetworkWS   = "ws"
)

// Endpoint identifies a peer: host, port and the network used to reach it
// (section 3's (host, port, transport) triple). Two endpoints are equal iff
// all three fields match, so Endpoint is safe to use as a map key directly.
type Endpoint struct {
	Host    string
	Port    int
	Network string
}

func NewEndpoint(host string, port int, network string) Endpoint {
	return Endpoint{Host: host, Port: port, Network: network}
}

// EndpointFromHostPort synthesizes a default-network Endpoint from a bare
// host/port pair. It is the stateless helper section 9 asks for in place of
// a second, inherited delegate method: a caller that only has host+port
// builds its own Endpoint here rather than the transport offering an
// overloaded DidReceiveData.
func EndpointFromHostPort(host string, port int) Endpoint {
	return NewEndpoint(host, port, NetworkUDP)
}

func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, fmt.Sprint(e.Port))
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s://%s", e.Network, e.Address())
}
