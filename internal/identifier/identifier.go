// Package identifier implements the Endpoint Identifier module: the
// first stage of the distributor's module chain, run on the serializer
// the distributor's affinity resolution chose, responsible for
// attributing an inbound request to a configured endpoint.
package identifier

import (
	"context"
	"log/slog"

	"github.com/emiago/sipgo/sip"

	"github.com/sebas/distributor/internal/endpoint"
	"github.com/sebas/distributor/internal/moduleproc"
	"github.com/sebas/distributor/internal/rdata"
	"github.com/sebas/distributor/internal/secevent"
	"github.com/sebas/distributor/internal/synthetic"
)

// Priority is this module's position in the chain: it must run before
// anything that reads d.Endpoint, including the Authenticator.
const Priority = 10

// Identifier resolves the endpoint identity of every inbound request,
// falling back to the synthetic endpoint when no configured endpoint
// matches.
type Identifier struct {
	store     *endpoint.Store
	synthetic *synthetic.Pair
	reporter  secevent.Reporter
	logger    *slog.Logger
}

// New creates an Identifier backed by store, with synth as the
// fallback pair and reporter receiving a KindEndpointNotIdentified event
// whenever the fallback is used.
func New(store *endpoint.Store, synth *synthetic.Pair, reporter secevent.Reporter, logger *slog.Logger) *Identifier {
	if reporter == nil {
		reporter = secevent.NoopReporter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Identifier{store: store, synthetic: synth, reporter: reporter, logger: logger}
}

// Name identifies this module in diagnostics.
func (i *Identifier) Name() string { return "identifier" }

// Priority reports this module's chain position.
func (i *Identifier) Priority() int { return Priority }

// Process attributes d to a configured endpoint by the From URI user
// part. ACK requests that match nothing are passed through unidentified
// rather than pinned to synthetic: an ACK has no response to carry a
// challenge or rejection, so misattributing it to synthetic would only
// mislead the Authenticator. If d already carries an endpoint — dialog
// affinity resolved one before the chain ran — Process leaves it alone
// rather than overwriting it and leaking the prior reference.
func (i *Identifier) Process(ctx context.Context, d *rdata.Data, tx sip.ServerTransaction) moduleproc.Verdict {
	if d.Endpoint != nil {
		return moduleproc.Continue
	}

	id := fromUser(d.Req)

	ep, ok := i.store.Identify(id)
	if ok {
		d.AttachEndpoint(ep)
		return moduleproc.Continue
	}

	if d.Req.Method == sip.ACK {
		return moduleproc.Continue
	}

	i.reporter.Report(secevent.New(d.Req.Source(), id, string(d.Req.Method), d.CallID()).EndpointNotIdentified())
	i.logger.Info("endpoint not identified, falling back to synthetic",
		"from_user", id, "method", string(d.Req.Method), "call_id", d.CallID())

	d.AttachEndpoint(i.synthetic.Endpoint)
	return moduleproc.Continue
}

func fromUser(req *sip.Request) string {
	from, ok := req.From()
	if !ok {
		return ""
	}
	return from.Address.User
}
