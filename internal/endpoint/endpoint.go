// Package endpoint models the identity the distributor resolves inbound
// requests against: the endpoint a request is attributed to, and the
// inbound-auth credentials that gate it. The in-memory Store uses a
// lock-free-read, copy-on-write discipline.
package endpoint

import "sync/atomic"

// AuthConfig is one inbound-auth credential attached to an endpoint.
// Artificial marks the synthetic sentinel credential that is never
// dereferenced for a real challenge.
type AuthConfig struct {
	Realm      string
	Username   string
	Password   string
	Artificial bool
}

// Endpoint is a configured identity requests are matched against. A
// real endpoint carries one or more inbound auths and a requires-auth
// policy; the synthetic endpoint (see internal/synthetic) carries
// exactly one sentinel auth and is never itself authenticated against.
type Endpoint struct {
	ID string

	// Address is the endpoint's contact host:port, if known, used only
	// for outbound liveness probing (see internal/qualify). Empty means
	// no known contact and the endpoint is never probed.
	Address string

	requiresAuth bool
	inboundAuths []*AuthConfig
	artificial   bool

	refs atomic.Int32
}

// New creates an endpoint with the given id, auth requirement, and
// inbound-auth list. The slice is retained, not copied.
func New(id string, requiresAuth bool, auths []*AuthConfig) *Endpoint {
	e := &Endpoint{
		ID:           id,
		requiresAuth: requiresAuth,
		inboundAuths: auths,
	}
	e.refs.Store(1)
	return e
}

// RequiresAuthentication reports whether requests attributed to this
// endpoint must pass the Authenticator module, which runs on the
// serializer after the distributor's dialog/transaction affinity logic.
func (e *Endpoint) RequiresAuthentication() bool { return e.requiresAuth }

// InboundAuths returns the endpoint's configured inbound-auth credentials.
func (e *Endpoint) InboundAuths() []*AuthConfig { return e.inboundAuths }

// Artificial reports whether this is the process-wide synthetic endpoint.
func (e *Endpoint) Artificial() bool { return e.artificial }

// MarkArtificial flags this endpoint as the process-wide synthetic
// fallback. Only internal/synthetic calls this, once, at construction.
func (e *Endpoint) MarkArtificial() { e.artificial = true }

// Acquire bumps the reference count and returns the same endpoint.
func (e *Endpoint) Acquire() *Endpoint {
	e.refs.Add(1)
	return e
}

// Release drops a reference. Endpoints carry no resources beyond memory,
// so Release only maintains the ref-count invariant the distributor's
// lifecycle discipline is tested against; it never frees anything itself.
func (e *Endpoint) Release() {
	e.refs.Add(-1)
}

// RefCount reports the current reference count, for tests and the admin
// HTTP debug surface.
func (e *Endpoint) RefCount() int32 { return e.refs.Load() }
