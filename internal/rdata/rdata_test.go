package rdata

import (
	"strings"
	"testing"

	"github.com/emiago/sipgo/parser"
	"github.com/emiago/sipgo/sip"

	"github.com/sebas/distributor/internal/endpoint"
)

func testInvite(t *testing.T) *sip.Request {
	t.Helper()
	raw := strings.Join([]string{
		"INVITE sip:bob@127.0.0.1:5060 SIP/2.0",
		"Via: SIP/2.0/UDP 127.0.0.1:5060;branch=z9hG4bKtest",
		"From: \"Alice\" <sip:alice@127.0.0.1>;tag=fromtag1",
		"To: \"Bob\" <sip:bob@127.0.0.1>",
		"Call-ID: test-call-id@127.0.0.1",
		"CSeq: 1 INVITE",
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
	return req
}

func TestCloneCopiesCallIDAndTags(t *testing.T) {
	req := testInvite(t)
	d := Clone(req, nil)

	if got := d.CallID(); got != "test-call-id@127.0.0.1" {
		t.Fatalf("CallID() = %q", got)
	}
	if got := d.FromTag(); got != "fromtag1" {
		t.Fatalf("FromTag() = %q, want fromtag1", got)
	}
	if got := d.ToTag(); got != "" {
		t.Fatalf("ToTag() = %q, want empty (no tag on initial INVITE)", got)
	}
}

func TestReleaseRunsOnce(t *testing.T) {
	req := testInvite(t)
	calls := 0
	d := Clone(req, func() { calls++ })

	d.Release()
	d.Release()
	d.Release()

	if calls != 1 {
		t.Fatalf("onFinal called %d times, want 1", calls)
	}
}

func TestReleaseDropsEndpointReference(t *testing.T) {
	req := testInvite(t)
	e := endpoint.New("alice", true, nil)
	e.Acquire() // simulate the store's own reference

	d := Clone(req, nil)
	d.AttachEndpoint(e)

	if got := e.RefCount(); got != 3 {
		t.Fatalf("RefCount after AttachEndpoint = %d, want 3", got)
	}

	d.Release()
	if got := e.RefCount(); got != 2 {
		t.Fatalf("RefCount after Release = %d, want 2", got)
	}
}
