package identifier

import (
	"context"
	"strings"
	"testing"

	"github.com/emiago/sipgo/parser"
	"github.com/emiago/sipgo/sip"

	"github.com/sebas/distributor/internal/endpoint"
	"github.com/sebas/distributor/internal/moduleproc"
	"github.com/sebas/distributor/internal/rdata"
	"github.com/sebas/distributor/internal/synthetic"
)

func testRequest(t *testing.T, method, fromUser string) *rdata.Data {
	t.Helper()
	raw := strings.Join([]string{
		method + " sip:bob@127.0.0.1:5060 SIP/2.0",
		"Via: SIP/2.0/UDP 127.0.0.1:5060;branch=z9hG4bKtest",
		"From: <sip:" + fromUser + "@127.0.0.1>;tag=ftag",
		"To: <sip:bob@127.0.0.1>",
		"Call-ID: id-1@127.0.0.1",
		"CSeq: 1 " + method,
		"Content-Length: 0",
		"", "",
	}, "\r\n")

	msg, err := parser.ParseMessage([]byte(raw))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	req, ok := msg.(*sip.Request)
	if !ok {
		t.Fatalf("parsed message is not a request: %T", msg)
	}
	return rdata.Clone(req, nil)
}

func TestProcessAttributesKnownEndpoint(t *testing.T) {
	store := endpoint.NewStore()
	alice := endpoint.New("alice", true, nil)
	store.Put(alice)

	id := New(store, synthetic.New(), nil, nil)
	d := testRequest(t, "INVITE", "alice")

	if v := id.Process(context.Background(), d, nil); v != moduleproc.Continue {
		t.Fatalf("Process verdict = %v, want Continue", v)
	}
	if d.Endpoint != alice {
		t.Fatalf("d.Endpoint = %v, want alice", d.Endpoint)
	}
}

func TestProcessFallsBackToSyntheticForUnknownNonACK(t *testing.T) {
	store := endpoint.NewStore()
	synth := synthetic.New()

	id := New(store, synth, nil, nil)
	d := testRequest(t, "INVITE", "ghost")

	id.Process(context.Background(), d, nil)
	if d.Endpoint != synth.Endpoint {
		t.Fatalf("d.Endpoint = %v, want synthetic endpoint", d.Endpoint)
	}
}

func TestProcessLeavesPreAttachedEndpointAlone(t *testing.T) {
	store := endpoint.NewStore()
	alice := endpoint.New("alice", true, nil)
	store.Put(alice)
	bob := endpoint.New("bob", true, nil)

	id := New(store, synthetic.New(), nil, nil)
	d := testRequest(t, "INVITE", "alice")
	d.AttachEndpoint(bob)

	before := bob.RefCount()
	if v := id.Process(context.Background(), d, nil); v != moduleproc.Continue {
		t.Fatalf("Process verdict = %v, want Continue", v)
	}
	if d.Endpoint != bob {
		t.Fatalf("d.Endpoint = %v, want bob (pre-attached by dialog affinity), unchanged", d.Endpoint)
	}
	if got := bob.RefCount(); got != before {
		t.Fatalf("bob RefCount changed from %d to %d; Process must not re-attach over an existing endpoint", before, got)
	}
}

func TestProcessLeavesACKUnidentifiedWhenUnknown(t *testing.T) {
	store := endpoint.NewStore()
	synth := synthetic.New()

	id := New(store, synth, nil, nil)
	d := testRequest(t, "ACK", "ghost")

	id.Process(context.Background(), d, nil)
	if d.Endpoint != nil {
		t.Fatalf("d.Endpoint = %v, want nil for unmatched ACK", d.Endpoint)
	}
}
