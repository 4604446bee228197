// Package secevent reports security-relevant outcomes of inbound request
// processing (unmatched endpoints, authentication failures) the way the
// teacher's events package reports call lifecycle events: small typed
// events built fluently, handed to a Reporter.
package secevent

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies the type of security event.
type Kind string

const (
	// KindEndpointNotIdentified fires when a request could not be
	// attributed to any configured endpoint and fell back to synthetic.
	KindEndpointNotIdentified Kind = "endpoint_not_identified"
	// KindAuthChallengeIssued fires when the Authenticator module sends a
	// 401 challenge.
	KindAuthChallengeIssued Kind = "auth_challenge_issued"
	// KindAuthFailed fires when a supplied Authorization header fails
	// verification: malformed, no matching credential, digest error, or
	// response mismatch.
	KindAuthFailed Kind = "auth_failed"
	// KindAuthSucceeded fires when a digest response matched.
	KindAuthSucceeded Kind = "auth_succeeded"
	// KindBruteForceBlocked fires when a source was refused before digest
	// verification because it exceeded the failure-rate threshold.
	KindBruteForceBlocked Kind = "bruteforce_blocked"
)

// Event is one security-relevant occurrence in the inbound pipeline.
type Event struct {
	ID         string
	Kind       Kind
	Time       time.Time
	SourceAddr string
	EndpointID string
	Method     string
	CallID     string
	Detail     string
}

// Builder constructs events with common fields pre-filled.
type Builder struct {
	sourceAddr string
	endpointID string
	method     string
	callID     string
}

// New starts a Builder for one request's security events.
func New(sourceAddr, endpointID, method, callID string) *Builder {
	return &Builder{sourceAddr: sourceAddr, endpointID: endpointID, method: method, callID: callID}
}

func (b *Builder) base(kind Kind) Event {
	return Event{
		ID:         uuid.New().String(),
		Kind:       kind,
		Time:       time.Now().UTC(),
		SourceAddr: b.sourceAddr,
		EndpointID: b.endpointID,
		Method:     b.method,
		CallID:     b.callID,
	}
}

// EndpointNotIdentified builds a KindEndpointNotIdentified event.
func (b *Builder) EndpointNotIdentified() Event {
	return b.base(KindEndpointNotIdentified)
}

// ChallengeIssued builds a KindAuthChallengeIssued event.
func (b *Builder) ChallengeIssued() Event {
	return b.base(KindAuthChallengeIssued)
}

// AuthFailed builds a KindAuthFailed event with a detail string (e.g.
// "bad credentials", "response mismatch").
func (b *Builder) AuthFailed(detail string) Event {
	e := b.base(KindAuthFailed)
	e.Detail = detail
	return e
}

// AuthSucceeded builds a KindAuthSucceeded event.
func (b *Builder) AuthSucceeded() Event {
	return b.base(KindAuthSucceeded)
}

// BruteForceBlocked builds a KindBruteForceBlocked event.
func (b *Builder) BruteForceBlocked() Event {
	return b.base(KindBruteForceBlocked)
}
