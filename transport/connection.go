package transport

import (
	"time"

	"github.com/lobaro/coap-transport/socket"
	"github.com/sirupsen/logrus"
)

type connState uint8

const (
	stateSetup connState = iota
	statePreparing
	stateWaiting
	stateReady
	stateCancelled
	stateFailed
)

func (s connState) String() string {
	switch s {
	case stateSetup:
		return "Setup"
	case statePreparing:
		return "Preparing"
	case stateWaiting:
		return "Waiting"
	case stateReady:
		return "Ready"
	case stateCancelled:
		return "Cancelled"
	case stateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

func (s connState) terminal() bool {
	return s == stateCancelled || s == stateFailed
}

// setupTimeout is the 2s window section 4.7 gives a connection to reach
// Ready before it is failed with a SetupError.
const setupTimeout = 2 * time.Second

// keepalivePeriod and deadPeerThreshold are section 4.6's P and 3P.
const keepalivePeriod = 1500 * time.Millisecond
const deadPeerThreshold = 3 * keepalivePeriod

// peerConnection is the per-endpoint record of section 4.5: a socket
// handle, state, message-ID counter, and the timers driving setup and
// keepalive. Every field is only ever written from inside a closure
// running on the registry's executor goroutine (see registry.go), so none
// of them need their own lock; the write and receive goroutines only read
// sock, which is set before either of them starts.
type peerConnection struct {
	endpoint Endpoint
	sock     socket.Socket
	state    connState

	lastReceived time.Time
	msgIDs       *messageIDGenerator

	setupTimer     Timer
	keepaliveTimer Timer

	// pending holds write closures queued while the connection is still
	// Preparing/Waiting; each flushes itself once the socket is Ready.
	pending []func()

	log *logrus.Entry
}

func newPeerConnection(ep Endpoint, seed int64) *peerConnection {
	return &peerConnection{
		endpoint: ep,
		state:    stateSetup,
		msgIDs:   newMessageIDGenerator(seed),
		log:      logrus.WithField("endpoint", ep.String()),
	}
}
