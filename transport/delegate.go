package transport

// Delegate is the single callback surface a host of this transport must
// implement (section 6). There is no inheritance here: DidReceiveData is
// the only receive callback, alongside DidFail. A caller that only wants to key off host+port
// rather than an Endpoint value uses the EndpointFromHostPort helper
// (endpoint.go) to adapt itself, instead of the transport exposing a second
// default-implemented overload.
type Delegate interface {
	DidReceiveData(data []byte, ep Endpoint)
	DidFail(err error)
}

// DelegateFunc adapts plain functions to Delegate, for callers that would
// rather not declare a named type for a one-shot request.
type DelegateFunc struct {
	OnData func(data []byte, ep Endpoint)
	OnFail func(err error)
}

func (f DelegateFunc) DidReceiveData(data []byte, ep Endpoint) {
	if f.OnData != nil {
		f.OnData(data, ep)
	}
}

func (f DelegateFunc) DidFail(err error) {
	if f.OnFail != nil {
		f.OnFail(err)
	}
}
