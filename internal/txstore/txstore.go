// Package txstore annotates an in-flight transaction with the name of
// the serializer handling it, so a retransmission or a response to that
// transaction lands back on the same serializer instead of
// re-resolving affinity.
package txstore

import (
	"time"

	"github.com/sebas/distributor/internal/ttlstore"
)

// Store is the TTL-backed transaction annotation table, keyed by a
// caller-built string (the distributor uses "<method>:<Call-ID>" and
// "uas-invite:<Call-ID>").
type Store struct {
	inner *ttlstore.Store[string, string]
	ttl   time.Duration
}

// New creates a transaction store whose entries expire after ttl unless
// refreshed, swept on the given interval. ttl should track the SIP
// transaction lifetime (RFC 3261 Timer F and friends), not the dialog.
func New(ttl, sweepInterval time.Duration) *Store {
	return &Store{inner: ttlstore.New[string, string](sweepInterval), ttl: ttl}
}

// Annotate records the serializer name handling txKey.
func (s *Store) Annotate(txKey, serializerName string) {
	s.inner.Set(txKey, serializerName, s.ttl)
}

// Lookup returns the serializer name handling txKey, refreshing its TTL
// on a hit.
func (s *Store) Lookup(txKey string) (string, bool) {
	name, ok := s.inner.Get(txKey)
	if ok {
		s.inner.Refresh(txKey, s.ttl)
	}
	return name, ok
}

// Forget removes a transaction's annotation once it terminates.
func (s *Store) Forget(txKey string) {
	s.inner.Delete(txKey)
}

// Len reports the number of live transaction annotations.
func (s *Store) Len() int { return s.inner.Len() }

// Close stops the background sweep.
func (s *Store) Close() { s.inner.Close() }
