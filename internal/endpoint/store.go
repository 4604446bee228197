package endpoint

import "sync/atomic"

// table is the immutable snapshot swapped atomically on every mutation:
// a lock-free-read, copy-on-write map.
type table struct {
	byID map[string]*Endpoint
}

// Store is the in-memory endpoint/sorcery configuration store: a
// lock-free-read, copy-on-write map from endpoint ID to Endpoint.
// Identify resolves the endpoint a request's From URI matches, the
// lookup the Endpoint Identifier module drives before falling back to
// the synthetic endpoint.
type Store struct {
	snap atomic.Pointer[table]
}

// NewStore creates an empty endpoint store.
func NewStore() *Store {
	s := &Store{}
	s.snap.Store(&table{byID: make(map[string]*Endpoint)})
	return s
}

// Put inserts or replaces an endpoint under its ID.
func (s *Store) Put(e *Endpoint) {
	for {
		old := s.snap.Load()
		next := &table{byID: make(map[string]*Endpoint, len(old.byID)+1)}
		for k, v := range old.byID {
			next.byID[k] = v
		}
		next.byID[e.ID] = e
		if s.snap.CompareAndSwap(old, next) {
			return
		}
	}
}

// Delete removes an endpoint by ID, if present.
func (s *Store) Delete(id string) {
	for {
		old := s.snap.Load()
		if _, ok := old.byID[id]; !ok {
			return
		}
		next := &table{byID: make(map[string]*Endpoint, len(old.byID))}
		for k, v := range old.byID {
			if k != id {
				next.byID[k] = v
			}
		}
		if s.snap.CompareAndSwap(old, next) {
			return
		}
	}
}

// Identify looks up an endpoint by ID (the From URI user part). It does
// not bump the reference count: the caller's own Acquire decides the
// span.
func (s *Store) Identify(id string) (*Endpoint, bool) {
	e, ok := s.snap.Load().byID[id]
	return e, ok
}

// Len reports the number of configured endpoints, for diagnostics.
func (s *Store) Len() int {
	return len(s.snap.Load().byID)
}

// All returns a snapshot slice of every configured endpoint, for
// iteration by callers such as the qualify prober that must walk the
// whole directory periodically.
func (s *Store) All() []*Endpoint {
	t := s.snap.Load()
	out := make([]*Endpoint, 0, len(t.byID))
	for _, e := range t.byID {
		out = append(out, e)
	}
	return out
}
