// Command coap-ping sends a single confirmable GET to a CoAP server and
// prints whatever comes back, to exercise the transport facade end to end.
package main

import (
	"flag"
	"time"

	"github.com/lobaro/coap-transport/coapmsg"
	"github.com/lobaro/coap-transport/socket"
	"github.com/lobaro/coap-transport/transport"
	"github.com/sirupsen/logrus"
)

type printDelegate struct {
	done chan struct{}
}

func (d *printDelegate) DidReceiveData(data []byte, ep transport.Endpoint) {
	msg, err := coapmsg.ParseMessage(data)
	if err != nil {
		logrus.WithError(err).Error("received malformed datagram")
		close(d.done)
		return
	}
	logrus.WithField("code", msg.Code.String()).
		WithField("payload", string(msg.Payload)).
		Info("received response")
	close(d.done)
}

func (d *printDelegate) DidFail(err error) {
	logrus.WithError(err).Error("request failed")
	close(d.done)
}

func main() {
	host := flag.String("host", "127.0.0.1", "CoAP server host")
	port := flag.Int("port", 5683, "CoAP server port")
	path := flag.String("path", "", "Uri-Path to GET, slash separated")
	flag.Parse()

	tr := transport.New(&socket.UDPFactory{})
	defer tr.Close()

	ep := transport.EndpointFromHostPort(*host, *port)

	msg := coapmsg.NewMessage()
	msg.Type = coapmsg.Confirmable
	msg.Code = coapmsg.GET
	msg.MessageID = tr.MessageID(ep)
	msg.SetTokenValue(uint64(time.Now().UnixNano()) & 0xFFFFFFFF)
	msg.SetPathString(*path)

	delegate := &printDelegate{done: make(chan struct{})}
	if err := tr.Send(&msg, ep, delegate); err != nil {
		logrus.WithError(err).Fatal("send failed")
	}

	select {
	case <-delegate.done:
	case <-time.After(5 * time.Second):
		logrus.Error("timed out waiting for a response")
	}

	tr.CloseAll()
}
