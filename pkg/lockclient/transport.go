package lockclient

import "net/http"

// HeaderLockToken is the request header the server's lock gate reads.
const HeaderLockToken = "X-Event-Lock-Token"

// Transport attaches the active lock token to every outgoing request
// while the machine is locked.  Requests are cloned, never mutated.
type Transport struct {
	Machine *Machine
	// Base is the underlying transport; nil means http.DefaultTransport.
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if s := t.Machine.State(); s.State == Locked && s.Token != "" {
		req = req.Clone(req.Context())
		req.Header.Set(HeaderLockToken, s.Token)
	}
	return base.RoundTrip(req)
}
