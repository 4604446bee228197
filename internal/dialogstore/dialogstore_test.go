package dialogstore

import (
	"testing"
	"time"
)

func TestAnnotateLookupForget(t *testing.T) {
	s := New(time.Hour, time.Hour)
	defer s.Close()

	k := Key{CallID: "c1", LocalTag: "l1", RemoteTag: "r1"}
	s.Annotate(k, Annotation{SerializerName: "dlg-1", EndpointID: "alice"})

	got, ok := s.Lookup(k)
	if !ok {
		t.Fatal("expected annotation present")
	}
	if got.SerializerName != "dlg-1" || got.EndpointID != "alice" {
		t.Fatalf("unexpected annotation: %+v", got)
	}

	s.Forget(k)
	if _, ok := s.Lookup(k); ok {
		t.Fatal("expected annotation gone after Forget")
	}
}

func TestLookupRefreshesTTL(t *testing.T) {
	s := New(10*time.Millisecond, time.Hour)
	defer s.Close()

	k := Key{CallID: "c2"}
	s.Annotate(k, Annotation{SerializerName: "dlg-2"})

	time.Sleep(5 * time.Millisecond)
	if _, ok := s.Lookup(k); !ok {
		t.Fatal("expected annotation still live before TTL elapses")
	}

	time.Sleep(5 * time.Millisecond)
	if _, ok := s.Lookup(k); !ok {
		t.Fatal("expected Lookup's own refresh to have kept the entry alive")
	}
}

func TestLookupMissUnknownKey(t *testing.T) {
	s := New(time.Hour, time.Hour)
	defer s.Close()

	if _, ok := s.Lookup(Key{CallID: "nope"}); ok {
		t.Fatal("expected miss for unknown key")
	}
}
