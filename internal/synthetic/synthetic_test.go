package synthetic

import "testing"

func TestNewHasSingleSentinelAuth(t *testing.T) {
	p := New()
	auths := p.Endpoint.InboundAuths()
	if len(auths) != 1 {
		t.Fatalf("synthetic endpoint has %d inbound auths, want 1", len(auths))
	}
	a := auths[0]
	if !a.Artificial {
		t.Fatal("sentinel auth must be tagged Artificial")
	}
	if a.Username != "" || a.Password != "" {
		t.Fatal("sentinel auth must carry empty username and password")
	}
	if a.Realm != Realm {
		t.Fatalf("sentinel auth realm = %q, want %q", a.Realm, Realm)
	}
}

func TestNewEndpointRequiresAuth(t *testing.T) {
	p := New()
	if !p.Endpoint.RequiresAuthentication() {
		t.Fatal("synthetic endpoint must require authentication, so it is always challenged and refused")
	}
}

func TestNewEndpointIsMarkedArtificial(t *testing.T) {
	p := New()
	if !p.Endpoint.Artificial() {
		t.Fatal("synthetic endpoint must report Artificial() true")
	}
}

func TestReleaseDropsFoundingReference(t *testing.T) {
	p := New()
	if got := p.Endpoint.RefCount(); got != 1 {
		t.Fatalf("RefCount after New = %d, want 1", got)
	}
	p.Release()
	if got := p.Endpoint.RefCount(); got != 0 {
		t.Fatalf("RefCount after Release = %d, want 0", got)
	}
}
