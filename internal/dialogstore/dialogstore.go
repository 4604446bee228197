// Package dialogstore annotates in-progress dialogs with the serializer
// and endpoint they were resolved onto, so later requests inside the
// same dialog reuse that affinity instead of re-resolving it. Built on
// internal/ttlstore, the same expiring-map shape used for transaction
// bookkeeping.
package dialogstore

import (
	"time"

	"github.com/sebas/distributor/internal/ttlstore"
)

// Key identifies a dialog by the tuple affinity is resolved against:
// Call-ID plus the local and remote tags. Either tag may be empty for
// an early or tagless leg.
type Key struct {
	CallID    string
	LocalTag  string
	RemoteTag string
}

// Annotation is what a dialog is remembered as: the serializer it is
// pinned to and the endpoint it was attributed to.
type Annotation struct {
	SerializerName string
	EndpointID     string
}

// Store is the TTL-backed dialog annotation table.
type Store struct {
	inner *ttlstore.Store[Key, Annotation]
	ttl   time.Duration
}

// New creates a dialog store whose entries expire after ttl of
// inactivity unless refreshed, swept on the given interval.
func New(ttl, sweepInterval time.Duration) *Store {
	return &Store{inner: ttlstore.New[Key, Annotation](sweepInterval), ttl: ttl}
}

// Annotate records (or replaces) the affinity for a dialog and resets
// its TTL.
func (s *Store) Annotate(k Key, a Annotation) {
	s.inner.Set(k, a, s.ttl)
}

// Lookup returns a dialog's recorded affinity, refreshing its TTL on a
// hit so an active dialog never expires mid-conversation.
func (s *Store) Lookup(k Key) (Annotation, bool) {
	a, ok := s.inner.Get(k)
	if ok {
		s.inner.Refresh(k, s.ttl)
	}
	return a, ok
}

// Forget removes a dialog's annotation immediately instead of waiting
// for its TTL to lapse.
func (s *Store) Forget(k Key) {
	s.inner.Delete(k)
}

// Len reports the number of live dialog annotations, for diagnostics.
func (s *Store) Len() int { return s.inner.Len() }

// Close stops the background sweep.
func (s *Store) Close() { s.inner.Close() }
