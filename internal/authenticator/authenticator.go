// Package authenticator implements the Authenticator module: digest
// challenge and verification for endpoints whose configuration
// requires it, gated by a per-source failure-rate throttle. Grounded on
// sipgo's own register example server, generalized from "one hardcoded
// challenge" to per-request nonce issuance and per-endpoint credential
// lookup.
package authenticator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emiago/sipgo/sip"
	"github.com/icholy/digest"
	"golang.org/x/time/rate"

	"github.com/sebas/distributor/internal/endpoint"
	"github.com/sebas/distributor/internal/moduleproc"
	"github.com/sebas/distributor/internal/rdata"
	"github.com/sebas/distributor/internal/secevent"
)

// Priority runs after Identifier (which must have already attached an
// endpoint); like every chain module it runs on the serializer the
// Distributor's affinity resolution already chose.
const Priority = 20

// Verdict is the outcome of running a request through the Authenticator.
type Verdict int

const (
	// Skipped means the request was an ACK, or the attributed endpoint
	// does not require authentication.
	Skipped Verdict = iota
	// Challenged means a 401 was sent and the chain stops here.
	Challenged
	// Succeeded means a supplied digest response matched.
	Succeeded
	// Failed means a supplied digest response did not match, or no
	// matching credential exists; a 401 was sent.
	Failed
	// Errored means a malformed Authorization header or a digest
	// computation error prevented verification; a 500 was sent.
	Errored
	// Throttled means the source exceeded the failure-rate limit and was
	// refused without attempting verification; a 403 was sent.
	Throttled
)

const (
	realmDefault     = "asterisk"
	failuresPerMin   = 5.0
	failuresBurst    = 5
	cleanupSweepSpan = 10 * time.Minute
)

// Authenticator is the digest-auth gate in front of the distributor.
type Authenticator struct {
	reporter secevent.Reporter
	logger   *slog.Logger

	mu      sync.Mutex
	limits  map[string]*rate.Limiter
	lastUse map[string]time.Time
}

// New creates an Authenticator.
func New(reporter secevent.Reporter, logger *slog.Logger) *Authenticator {
	if reporter == nil {
		reporter = secevent.NoopReporter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Authenticator{
		reporter: reporter,
		logger:   logger,
		limits:   make(map[string]*rate.Limiter),
		lastUse:  make(map[string]time.Time),
	}
	go a.sweepLoop()
	return a
}

// Name identifies this module in diagnostics.
func (a *Authenticator) Name() string { return "authenticator" }

// Priority reports this module's chain position.
func (a *Authenticator) Priority() int { return Priority }

// Process runs the Authenticator as a moduleproc.Module: Challenged and
// Failed/Errored/Throttled verdicts stop the chain (a final response has
// already been sent), everything else continues.
func (a *Authenticator) Process(ctx context.Context, d *rdata.Data, tx sip.ServerTransaction) moduleproc.Verdict {
	v := a.Authenticate(d, tx)
	if v == Skipped || v == Succeeded {
		return moduleproc.Continue
	}
	return moduleproc.Stop
}

// Authenticate runs the digest challenge/verify exchange for d and
// writes a response on tx when the verdict is not Succeeded or Skipped.
func (a *Authenticator) Authenticate(d *rdata.Data, tx sip.ServerTransaction) Verdict {
	if d.Req.Method == sip.ACK {
		return Skipped
	}

	ep := d.Endpoint
	if ep == nil || !ep.RequiresAuthentication() {
		return Skipped
	}

	source := d.Req.Source()
	if !a.allow(source) {
		a.reporter.Report(a.events(d).BruteForceBlocked())
		a.respond(tx, d.Req, sip.StatusCode(403), "Forbidden")
		return Throttled
	}

	h := d.Req.GetHeader("Authorization")
	if h == nil {
		a.challenge(d, tx, ep)
		return Challenged
	}

	cred, err := digest.ParseCredentials(h.Value())
	if err != nil {
		a.recordFailure(source)
		a.reporter.Report(a.events(d).AuthFailed("malformed authorization header"))
		a.respond(tx, d.Req, sip.StatusCode(500), "Internal Server Error")
		return Errored
	}

	auth := matchCredential(ep, cred.Username)
	if auth == nil || auth.Artificial {
		a.recordFailure(source)
		a.reporter.Report(a.events(d).AuthFailed("no matching credential"))
		a.respond(tx, d.Req, sip.StatusCode(401), "Unauthorized")
		return Failed
	}

	want, err := digest.Digest(&digest.Challenge{
		Realm:     auth.Realm,
		Nonce:     cred.Nonce,
		Algorithm: "MD5",
	}, digest.Options{
		Method:   string(d.Req.Method),
		URI:      cred.URI,
		Username: cred.Username,
		Password: auth.Password,
	})
	if err != nil {
		a.recordFailure(source)
		a.reporter.Report(a.events(d).AuthFailed(fmt.Sprintf("digest computation failed: %v", err)))
		a.respond(tx, d.Req, sip.StatusCode(500), "Internal Server Error")
		return Errored
	}

	if cred.Response != want.Response {
		a.recordFailure(source)
		a.reporter.Report(a.events(d).AuthFailed("response mismatch"))
		a.respond(tx, d.Req, sip.StatusCode(401), "Unauthorized")
		return Failed
	}

	a.recordSuccess(source)
	a.reporter.Report(a.events(d).AuthSucceeded())
	return Succeeded
}

func (a *Authenticator) challenge(d *rdata.Data, tx sip.ServerTransaction, ep *endpoint.Endpoint) {
	realm := realmDefault
	if auths := ep.InboundAuths(); len(auths) > 0 {
		realm = auths[0].Realm
	}
	chal := digest.Challenge{
		Realm:     realm,
		Nonce:     fmt.Sprintf("%d", time.Now().UnixNano()),
		Opaque:    "distributor",
		Algorithm: "MD5",
	}

	res := sip.NewResponseFromRequest(d.Req, 401, "Unauthorized", nil)
	res.AppendHeader(sip.NewHeader("WWW-Authenticate", chal.String()))

	a.reporter.Report(a.events(d).ChallengeIssued())
	if tx != nil {
		if err := tx.Respond(res); err != nil {
			a.logger.Error("failed to send auth challenge", "error", err, "call_id", d.CallID())
		}
	}
}

func (a *Authenticator) respond(tx sip.ServerTransaction, req *sip.Request, code sip.StatusCode, reason string) {
	if tx == nil {
		return
	}
	res := sip.NewResponseFromRequest(req, code, reason, nil)
	if err := tx.Respond(res); err != nil {
		a.logger.Error("failed to send auth response", "error", err, "status", int(code))
	}
}

func (a *Authenticator) events(d *rdata.Data) *secevent.Builder {
	epID := ""
	if d.Endpoint != nil {
		epID = d.Endpoint.ID
	}
	return secevent.New(d.Req.Source(), epID, string(d.Req.Method), d.CallID())
}

func matchCredential(ep *endpoint.Endpoint, username string) *endpoint.AuthConfig {
	for _, a := range ep.InboundAuths() {
		if a.Username == username {
			return a
		}
	}
	return nil
}

func (a *Authenticator) allow(source string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	lim, ok := a.limits[source]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(failuresPerMin/60.0), failuresBurst)
		a.limits[source] = lim
	}
	a.lastUse[source] = time.Now()
	return lim.Tokens() > 0
}

func (a *Authenticator) recordFailure(source string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	lim, ok := a.limits[source]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(failuresPerMin/60.0), failuresBurst)
		a.limits[source] = lim
	}
	lim.Allow()
	a.lastUse[source] = time.Now()
}

func (a *Authenticator) recordSuccess(source string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.limits, source)
	delete(a.lastUse, source)
}

func (a *Authenticator) sweepLoop() {
	t := time.NewTicker(cleanupSweepSpan)
	defer t.Stop()
	for range t.C {
		a.sweep()
	}
}

func (a *Authenticator) sweep() {
	a.mu.Lock()
	defer a.mu.Unlock()
	cutoff := time.Now().Add(-cleanupSweepSpan)
	for src, last := range a.lastUse {
		if last.Before(cutoff) {
			delete(a.limits, src)
			delete(a.lastUse, src)
		}
	}
}
