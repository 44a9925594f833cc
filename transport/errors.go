package transport

import "fmt"

// Error taxonomy of section 7. EncodeError is returned by Send itself; none
// of the others bubble past the Delegate boundary: the registry either
// retries on the caller's next Send or reports exactly one of them through
// DidFail.

// EncodeError means the message could not be serialized; Send fails
// synchronously with this and never touches a socket.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "coap-transport: encode failed: " + e.Err.Error() }
func (e *EncodeError) Unwrap() error { return e.Err }

// SetupError means the connection did not reach Ready within the setup
// timeout, or the dial itself failed. Reported to every delegate bound to
// Endpoint before the connection is cancelled.
type SetupError struct {
	Endpoint Endpoint
	Reason   string
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("coap-transport: setup failed for %s: %s", e.Endpoint, e.Reason)
}

// SendError means a socket write reported failure. Reported to the
// sender's own delegate; that one registration is removed, the connection
// is left open for other transactions.
type SendError struct {
	Endpoint Endpoint
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("coap-transport: send to %s failed: %v", e.Endpoint, e.Err)
}
func (e *SendError) Unwrap() error { return e.Err }

// PingTimeoutError means the keepalive prober saw 3P of silence. Reported
// to every delegate bound to Endpoint; the connection is cancelled.
type PingTimeoutError struct {
	Endpoint Endpoint
}

func (e *PingTimeoutError) Error() string {
	return fmt.Sprintf("coap-transport: %s did not answer keepalive, declaring it dead", e.Endpoint)
}

// SocketIOError wraps a non-cancellation error the receive loop surfaced.
// Reported to every delegate bound to Endpoint; the connection is
// cancelled.
type SocketIOError struct {
	Endpoint Endpoint
	Err      error
}

func (e *SocketIOError) Error() string {
	return fmt.Sprintf("coap-transport: socket error on %s: %v", e.Endpoint, e.Err)
}
func (e *SocketIOError) Unwrap() error { return e.Err }
