// Package synthetic holds the process-wide synthetic endpoint and
// synthetic auth the Endpoint Identifier module falls back to when no
// configured endpoint matches an inbound request. Both singletons are
// created once, for the process lifetime, and held for as long as the
// server runs.
package synthetic

import "github.com/sebas/distributor/internal/endpoint"

const (
	// ID is the synthetic endpoint's stable identity.
	ID = "artificial"
	// Realm is the synthetic auth's realm, fixed regardless of deployment.
	Realm = "asterisk"
)

// Pair is the synthetic endpoint plus its one sentinel inbound auth.
// The auth carries empty username and password and is tagged
// Artificial so the Authenticator module can recognize it and refuse
// to ever accept a digest response against it.
type Pair struct {
	Endpoint *endpoint.Endpoint
	Auth     *endpoint.AuthConfig
}

// New constructs the synthetic endpoint and its sentinel auth. The
// endpoint requires authentication like any other, but its one
// inbound-auth entry is Artificial, so no Authorization header can ever
// satisfy it: every request attributed to synthetic gets challenged and
// then refused, since it was never actually identified as a configured
// endpoint.
func New() *Pair {
	auth := &endpoint.AuthConfig{
		Realm:      Realm,
		Username:   "",
		Password:   "",
		Artificial: true,
	}
	ep := endpoint.New(ID, true, []*endpoint.AuthConfig{auth})
	ep.MarkArtificial()
	return &Pair{Endpoint: ep, Auth: auth}
}

// Release drops the pool's reference to the synthetic endpoint. Callers
// that resolved onto the synthetic endpoint during normal operation hold
// their own reference via Acquire; this only releases the pool's
// founding reference taken at New.
func (p *Pair) Release() {
	p.Endpoint.Release()
}
