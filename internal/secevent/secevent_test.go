package secevent

import "testing"

func TestBuilderFieldsCarryThrough(t *testing.T) {
	b := New("10.0.0.1:5060", "alice", "INVITE", "call-1")

	e := b.AuthFailed("response mismatch")
	if e.SourceAddr != "10.0.0.1:5060" || e.EndpointID != "alice" || e.Method != "INVITE" || e.CallID != "call-1" {
		t.Fatalf("unexpected base fields: %+v", e)
	}
	if e.Kind != KindAuthFailed {
		t.Fatalf("Kind = %v, want KindAuthFailed", e.Kind)
	}
	if e.Detail != "response mismatch" {
		t.Fatalf("Detail = %q", e.Detail)
	}
	if e.ID == "" {
		t.Fatal("expected a generated event ID")
	}
}

func TestEachBuilderMethodSetsDistinctKind(t *testing.T) {
	b := New("", "", "", "")
	kinds := map[Kind]bool{
		b.EndpointNotIdentified().Kind: true,
		b.ChallengeIssued().Kind:       true,
		b.AuthFailed("x").Kind:         true,
		b.AuthSucceeded().Kind:         true,
		b.BruteForceBlocked().Kind:     true,
	}
	if len(kinds) != 5 {
		t.Fatalf("expected 5 distinct kinds, got %d: %v", len(kinds), kinds)
	}
}

func TestNoopReporterDoesNotPanic(t *testing.T) {
	var r Reporter = NoopReporter{}
	r.Report(New("", "", "", "").AuthSucceeded())
}
