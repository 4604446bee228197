// Package distributor implements the Distributor module: the entry
// point every inbound SIP message passes through on a transport thread,
// responsible for affinity resolution, overload shedding, and handing
// the message off to a serializer so the rest of the module chain runs
// off the transport thread.
package distributor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/emiago/sipgo/sip"

	"github.com/sebas/distributor/internal/dialogstore"
	"github.com/sebas/distributor/internal/endpoint"
	"github.com/sebas/distributor/internal/hashing"
	"github.com/sebas/distributor/internal/moduleproc"
	"github.com/sebas/distributor/internal/pool"
	"github.com/sebas/distributor/internal/rdata"
	"github.com/sebas/distributor/internal/serializer"
	"github.com/sebas/distributor/internal/txstore"
)

// Distributor resolves affinity for every inbound message and dispatches
// it onto a serializer; it is not itself a moduleproc.Module, since its
// job is structurally different from the modules that run after it: it
// decides WHERE a message runs, they decide WHAT happens once it does.
type Distributor struct {
	pool      *pool.Pool
	dialogs   *dialogstore.Store
	txs       *txstore.Store
	registry  *serializer.Registry
	endpoints *endpoint.Store
	chain     *moduleproc.Chain
	logger    *slog.Logger

	booted atomic.Bool
}

// New creates a Distributor. chain is run on the serializer for every
// dispatched request, starting immediately after the Distributor's own
// affinity resolution — i.e. chain should contain the Endpoint
// Identifier and Authenticator modules, in that priority order.
func New(p *pool.Pool, dialogs *dialogstore.Store, txs *txstore.Store, registry *serializer.Registry, endpoints *endpoint.Store, chain *moduleproc.Chain, logger *slog.Logger) *Distributor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Distributor{pool: p, dialogs: dialogs, txs: txs, registry: registry, endpoints: endpoints, chain: chain, logger: logger}
}

// SetBooted flips the boot gate. Until it is set, HandleRequest and
// HandleResponse drop everything immediately, relying on peer
// retransmission once the subsystem finishes starting.
func (d *Distributor) SetBooted(v bool) { d.booted.Store(v) }

// Booted reports the current boot-gate state, for the admin health check.
func (d *Distributor) Booted() bool { return d.booted.Load() }

// dialogKeyForRequest builds the dialog lookup key for a request: local
// tag is the request's To-tag, remote tag is its From-tag.
func dialogKeyForRequest(req *sip.Request) dialogstore.Key {
	callID := ""
	if h, ok := req.CallID(); ok {
		callID = h.Value()
	}
	localTag, remoteTag := "", ""
	if to, ok := req.To(); ok {
		localTag, _ = to.Params.Get("tag")
	}
	if from, ok := req.From(); ok {
		remoteTag, _ = from.Params.Get("tag")
	}
	return dialogstore.Key{CallID: callID, LocalTag: localTag, RemoteTag: remoteTag}
}

// dialogKeyForResponse builds the dialog lookup key for a response:
// local tag is the response's From-tag, remote tag is its To-tag.
func dialogKeyForResponse(res *sip.Response) dialogstore.Key {
	callID := ""
	if h, ok := res.CallID(); ok {
		callID = h.Value()
	}
	localTag, remoteTag := "", ""
	if from, ok := res.From(); ok {
		localTag, _ = from.Params.Get("tag")
	}
	if to, ok := res.To(); ok {
		remoteTag, _ = to.Params.Get("tag")
	}
	return dialogstore.Key{CallID: callID, LocalTag: localTag, RemoteTag: remoteTag}
}

// clientTransactionKey is the correlation key used on the outbound tx
// recording path and the response-side transaction lookup: the CSeq
// method plus Call-ID, the client-transaction identity per RFC 3261.
func clientTransactionKey(method, callID string) string {
	return fmt.Sprintf("%s:%s", method, callID)
}

// uasInviteKey is the alias under which a UAS INVITE transaction is
// recorded so a subsequent CANCEL lacking a to-tag (and therefore
// unable to use direct dialog lookup) can still be correlated to it,
// mirroring the "transaction lookup keyed by (role=UAS, method=INVITE,
// rdata)" fallback.
func uasInviteKey(callID string) string {
	return "uas-invite:" + callID
}

// HandleRequest is the transport-thread entry point for inbound
// requests. It always does bounded, non-blocking work and never invokes
// application logic directly.
func (d *Distributor) HandleRequest(req *sip.Request, tx sip.ServerTransaction) {
	if !d.booted.Load() {
		return
	}

	callID := ""
	if h, ok := req.CallID(); ok {
		callID = h.Value()
	}

	// Step 1: dialog affinity.
	if s, ep, ok := d.dialogAffinityForRequest(req, callID); ok {
		d.dispatch(req, tx, s, ep, callID)
		return
	}

	// BYE/CANCEL with no matched dialog: stateless 481.
	if req.Method == sip.BYE || req.Method == sip.CANCEL {
		d.respondStateless(req, tx, 481, "Call/Transaction Does Not Exist")
		return
	}

	if d.registry.Overloaded() {
		return
	}

	fromTag := ""
	if from, ok := req.From(); ok {
		fromTag, _ = from.Params.Get("tag")
	}
	idx := hashing.Bucket(pool.Size, callID, fromTag)
	s := d.pool.Bucket(idx)
	d.dispatch(req, tx, s, nil, callID)
}

// dialogAffinityForRequest implements step 1 of the decision procedure
// for requests, including the CANCEL-without-to-tag transaction
// fallback.
func (d *Distributor) dialogAffinityForRequest(req *sip.Request, callID string) (*serializer.Serializer, *endpoint.Endpoint, bool) {
	if req.Method == sip.CANCEL {
		if to, ok := req.To(); ok {
			if tag, _ := to.Params.Get("tag"); tag == "" {
				return d.cancelTransactionAffinity(callID)
			}
		} else {
			return d.cancelTransactionAffinity(callID)
		}
	}

	key := dialogKeyForRequest(req)
	ann, ok := d.dialogs.Lookup(key)
	if !ok || ann.SerializerName == "" {
		return nil, nil, false
	}
	s, ok := d.registry.ByName(ann.SerializerName)
	if !ok {
		return nil, nil, false
	}
	var ep *endpoint.Endpoint
	if ann.EndpointID != "" && d.endpoints != nil {
		if found, ok := d.endpoints.Identify(ann.EndpointID); ok {
			ep = found
		}
	}
	return s, ep, true
}

func (d *Distributor) cancelTransactionAffinity(callID string) (*serializer.Serializer, *endpoint.Endpoint, bool) {
	name, ok := d.txs.Lookup(uasInviteKey(callID))
	if !ok {
		return nil, nil, false
	}
	s, ok := d.registry.ByName(name)
	if !ok {
		return nil, nil, false
	}
	return s, nil, true
}

// HandleResponse is the transport-thread entry point for inbound
// responses.
func (d *Distributor) HandleResponse(res *sip.Response) {
	if !d.booted.Load() {
		return
	}

	callID := ""
	if h, ok := res.CallID(); ok {
		callID = h.Value()
	}

	// Step 1: dialog affinity.
	key := dialogKeyForResponse(res)
	if ann, ok := d.dialogs.Lookup(key); ok && ann.SerializerName != "" {
		if s, ok := d.registry.ByName(ann.SerializerName); ok {
			d.dispatchResponse(res, s)
			return
		}
	}

	// Step 2: transaction affinity via outbound tx recording.
	method := ""
	if cseq, ok := res.CSeq(); ok {
		method = string(cseq.MethodName)
	}
	if name, ok := d.txs.Lookup(clientTransactionKey(method, callID)); ok {
		if s, ok := d.registry.ByName(name); ok {
			d.dispatchResponse(res, s)
			return
		}
	}

	// Step 3: overload shed.
	if d.registry.Overloaded() {
		return
	}

	// Step 4: hash fallback.
	toTag := ""
	if to, ok := res.To(); ok {
		toTag, _ = to.Params.Get("tag")
	}
	idx := hashing.Bucket(pool.Size, callID, toTag)
	d.dispatchResponse(res, d.pool.Bucket(idx))
}

func (d *Distributor) dispatchResponse(res *sip.Response, s *serializer.Serializer) {
	if err := s.Push(func(ctx context.Context) {
		d.logger.Debug("response dispatched", "serializer", s.Name(), "status", int(res.StatusCode))
	}); err != nil {
		d.logger.Warn("failed to enqueue response", "error", err)
	}
	s.Release()
}

// dispatch implements the clone-and-enqueue tail of the decision
// procedure shared by every request path: clone the receive buffer,
// copy any dialog-resolved endpoint reference onto the clone, enqueue
// the distribute task, and always release the serializer reference
// picked up along the way.
func (d *Distributor) dispatch(req *sip.Request, tx sip.ServerTransaction, s *serializer.Serializer, ep *endpoint.Endpoint, callID string) {
	defer s.Release()

	data := rdata.Clone(req, nil)
	if ep != nil {
		data.AttachEndpoint(ep)
	}

	if req.Method == sip.INVITE {
		d.txs.Annotate(uasInviteKey(callID), s.Name())
	}

	err := s.Push(func(ctx context.Context) {
		d.distribute(ctx, data, tx)
	})
	if err != nil {
		data.Release()
		d.logger.Warn("failed to enqueue request", "error", err, "call_id", callID)
	}
}

// distribute is the task body run on the chosen serializer: run the
// module chain, and if nothing in it produced a final response for a
// non-ACK request, fall back to a stateless 501.
func (d *Distributor) distribute(ctx context.Context, data *rdata.Data, tx sip.ServerTransaction) {
	defer data.Release()

	var handled bool
	if d.chain != nil {
		handled = d.chain.Run(ctx, data, tx)
	}

	if !handled && data.Req.Method != sip.ACK {
		d.respondStateless(data.Req, tx, 501, "Not Implemented")
	}
}

// RecordOutboundSerializer is the outbound tx hook: called by the
// outbound sending path with the request being transmitted, reading the
// name of the serializer currently running from the task-local context
// and recording the (method, Call-ID) -> serializer name mapping used
// to route the eventual response.
func (d *Distributor) RecordOutboundSerializer(ctx context.Context, req *sip.Request) {
	name := serializer.CurrentName(ctx)
	if name == "" {
		return
	}
	callID := ""
	if h, ok := req.CallID(); ok {
		callID = h.Value()
	}
	key := clientTransactionKey(string(req.Method), callID)
	if existing, ok := d.txs.Lookup(key); ok && existing == name {
		return
	}
	d.txs.Annotate(key, name)
}

// respondStateless sends a final response outside any dialog or
// serializer context. sipgo always hands the transport-thread entry
// points a transaction even for requests with no matched application
// state, so "stateless" here means "not routed through a serializer",
// not "no transaction at all" — the response still goes out through the
// transaction sipgo already opened for this request.
func (d *Distributor) respondStateless(req *sip.Request, tx sip.ServerTransaction, code sip.StatusCode, reason string) {
	if tx == nil {
		return
	}
	res := sip.NewResponseFromRequest(req, code, reason, nil)
	if err := tx.Respond(res); err != nil {
		d.logger.Error("failed to send stateless response", "error", err, "status", int(code))
	}
}
