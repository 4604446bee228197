// Package qualify periodically probes configured endpoints that carry a
// known contact address with a SIP OPTIONS ping, grounded on the
// health-check loop real SIP proxies run against their backend trunks:
// each probe is sent on a serializer task so it goes through the same
// outbound tx-recording path as any other message this process sends,
// and a prometheus gauge tracks the last result per endpoint.
package qualify

import (
	"context"
	"log/slog"
	"time"

	"github.com/emiago/sipgo/sip"

	"github.com/sebas/distributor/internal/endpoint"
	"github.com/sebas/distributor/internal/hashing"
	"github.com/sebas/distributor/internal/metrics"
	"github.com/sebas/distributor/internal/pool"
	"github.com/sebas/distributor/internal/txrecorder"
)

// pingTimeout bounds how long a single OPTIONS probe waits for a
// response before the endpoint is marked unreachable.
const pingTimeout = 5 * time.Second

// Prober periodically sends OPTIONS pings to every endpoint that has a
// known contact address.
type Prober struct {
	client     *txrecorder.Client
	endpoints  *endpoint.Store
	pool       *pool.Pool
	collectors *metrics.Collectors
	logger     *slog.Logger
	interval   time.Duration
}

// New creates a Prober. interval is how often the full endpoint
// directory is walked.
func New(client *txrecorder.Client, endpoints *endpoint.Store, p *pool.Pool, collectors *metrics.Collectors, logger *slog.Logger, interval time.Duration) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{client: client, endpoints: endpoints, pool: p, collectors: collectors, logger: logger, interval: interval}
}

// Run walks the endpoint directory every interval until ctx is
// cancelled, pinging every endpoint with a non-empty Address.
func (pr *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(pr.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pr.sweep(ctx)
		}
	}
}

func (pr *Prober) sweep(ctx context.Context) {
	for _, ep := range pr.endpoints.All() {
		if ep.Address == "" {
			continue
		}
		ep := ep
		idx := hashing.Bucket(pool.Size, ep.ID, "qualify")
		s := pr.pool.Bucket(idx)
		err := s.Push(func(taskCtx context.Context) {
			pr.ping(taskCtx, ep)
		})
		s.Release()
		if err != nil {
			pr.logger.Warn("failed to enqueue qualify probe", "endpoint", ep.ID, "error", err)
		}
	}
}

func (pr *Prober) ping(ctx context.Context, ep *endpoint.Endpoint) {
	var uri sip.Uri
	if err := sip.ParseUri("sip:"+ep.Address, &uri); err != nil {
		pr.logger.Warn("qualify: invalid endpoint address", "endpoint", ep.ID, "address", ep.Address, "error", err)
		return
	}

	req := sip.NewRequest(sip.OPTIONS, uri)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	tx, err := pr.client.TransactionRequest(pingCtx, req)
	if err != nil {
		pr.mark(ep.ID, false)
		pr.logger.Warn("qualify: sending OPTIONS failed", "endpoint", ep.ID, "error", err)
		return
	}
	defer tx.Terminate()

	select {
	case <-pingCtx.Done():
		pr.mark(ep.ID, false)
	case <-tx.Done():
		pr.mark(ep.ID, false)
	case res := <-tx.Responses():
		pr.mark(ep.ID, res != nil && res.StatusCode >= 200 && res.StatusCode < 300)
	}
}

func (pr *Prober) mark(endpointID string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	pr.collectors.EndpointReachable.WithLabelValues(endpointID).Set(v)
}
