package ttlstore

import (
	"testing"
	"time"
)

func TestSetGetDelete(t *testing.T) {
	s := New[string, int](time.Hour)
	defer s.Close()

	s.Set("a", 1, time.Minute)
	if v, ok := s.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v; want 1, true", v, ok)
	}

	s.Delete("a")
	if _, ok := s.Get("a"); ok {
		t.Fatal("expected a gone after Delete")
	}
}

func TestExpiredEntryNotReturned(t *testing.T) {
	s := New[string, int](time.Hour)
	defer s.Close()

	s.Set("a", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := s.Get("a"); ok {
		t.Fatal("expected expired entry to not be returned")
	}
}

func TestRefreshExtendsTTL(t *testing.T) {
	s := New[string, int](time.Hour)
	defer s.Close()

	s.Set("a", 1, 5*time.Millisecond)
	if !s.Refresh("a", time.Hour) {
		t.Fatal("Refresh on live key should succeed")
	}
	time.Sleep(10 * time.Millisecond)
	if _, ok := s.Get("a"); !ok {
		t.Fatal("expected refreshed entry to still be live")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	s := New[string, int](2 * time.Millisecond)
	defer s.Close()

	s.Set("a", 1, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if s.Len() != 0 {
		t.Fatalf("Len after sweep = %d, want 0", s.Len())
	}
}
