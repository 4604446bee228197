// Package rdata wraps an inbound sip.Request the way PJSIP's rdata
// carries a receive buffer through a module chain: a clone the
// distributor can safely hand off across goroutines, an endpoint slot
// the Identifier module fills in, and a release discipline that runs
// exactly once regardless of how many module stages touch it.
package rdata

import (
	"sync"

	"github.com/emiago/sipgo/sip"

	"github.com/sebas/distributor/internal/endpoint"
)

// Data is one inbound request as it travels through the module chain.
type Data struct {
	Req *sip.Request

	// Endpoint is filled in by the distributor from dialog affinity, or
	// otherwise by the Identifier module: the configured endpoint the
	// request was attributed to, or the synthetic one.
	Endpoint *endpoint.Endpoint

	release sync.Once
	onFinal func()
}

// Clone deep-copies req the way the transport-thread receive buffer is
// cloned before being handed to a serializer task, so the original
// transport buffer can be reused the moment the clone is taken.
func Clone(req *sip.Request, onFinal func()) *Data {
	return &Data{Req: req.Clone(), onFinal: onFinal}
}

// CallID returns the cloned request's Call-ID value, or "" if absent.
func (d *Data) CallID() string {
	if h, ok := d.Req.CallID(); ok {
		return h.Value()
	}
	return ""
}

// FromTag returns the From header's tag parameter, or "" if absent.
func (d *Data) FromTag() string {
	from, ok := d.Req.From()
	if !ok {
		return ""
	}
	tag, _ := from.Params.Get("tag")
	return tag
}

// ToTag returns the To header's tag parameter, or "" if absent.
func (d *Data) ToTag() string {
	to, ok := d.Req.To()
	if !ok {
		return ""
	}
	tag, _ := to.Params.Get("tag")
	return tag
}

// AttachEndpoint records the endpoint identified for this request,
// bumping its reference count for the span of the Data's lifetime.
func (d *Data) AttachEndpoint(e *endpoint.Endpoint) {
	d.Endpoint = e.Acquire()
}

// Release runs the registered cleanup exactly once: drops the endpoint
// reference it is holding and invokes the onFinal callback, if any. Safe
// to call from multiple module stages or defer sites; only the first
// call has effect.
func (d *Data) Release() {
	d.release.Do(func() {
		if d.Endpoint != nil {
			d.Endpoint.Release()
		}
		if d.onFinal != nil {
			d.onFinal()
		}
	})
}
