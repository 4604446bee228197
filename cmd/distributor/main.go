// Command distributor runs the SIP request distributor as a standalone
// process: it binds a SIP transport, resolves affinity and shedding
// for every inbound message, and exposes an admin HTTP surface for
// health and diagnostics.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emiago/sipgo"
	"github.com/emiago/sipgo/sip"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sebas/distributor/internal/adminhttp"
	"github.com/sebas/distributor/internal/authenticator"
	"github.com/sebas/distributor/internal/config"
	"github.com/sebas/distributor/internal/dialogstore"
	"github.com/sebas/distributor/internal/distributor"
	"github.com/sebas/distributor/internal/endpoint"
	"github.com/sebas/distributor/internal/identifier"
	"github.com/sebas/distributor/internal/metrics"
	"github.com/sebas/distributor/internal/moduleproc"
	"github.com/sebas/distributor/internal/obslog"
	"github.com/sebas/distributor/internal/pool"
	"github.com/sebas/distributor/internal/qualify"
	"github.com/sebas/distributor/internal/secevent"
	"github.com/sebas/distributor/internal/serializer"
	"github.com/sebas/distributor/internal/txrecorder"
	"github.com/sebas/distributor/internal/txstore"
)

func main() {
	cfg := config.Load()
	logger := obslog.Init(obslog.ParseLevel(cfg.LogLevel), obslog.ParseFormat(cfg.LogFormat))

	if err := run(cfg, logger); err != nil {
		logger.Error("distributor exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	registry := serializer.NewRegistry(cfg.HighWaterMark)

	p, err := pool.Start(registry)
	if err != nil {
		return fmt.Errorf("starting serializer pool: %w", err)
	}

	endpoints := endpoint.NewStore()
	var sqliteSource *endpoint.SQLiteSource
	if cfg.EndpointDB != "" {
		src, err := endpoint.OpenSQLiteSource(cfg.EndpointDB)
		if err != nil {
			p.Stop(context.Background())
			return fmt.Errorf("opening endpoint database: %w", err)
		}
		if err := src.LoadAll(context.Background(), endpoints); err != nil {
			src.Close()
			p.Stop(context.Background())
			return fmt.Errorf("loading endpoints: %w", err)
		}
		sqliteSource = src
		logger.Info("loaded endpoint configuration", "source", cfg.EndpointDB, "count", endpoints.Len())
	}

	dialogs := dialogstore.New(cfg.DialogTTL, cfg.SweepInterval)
	txs := txstore.New(cfg.TxTTL, cfg.SweepInterval)

	reporter := secevent.NewSlogReporter(logger)
	ident := identifier.New(endpoints, p.Synthetic, reporter, logger)
	auth := authenticator.New(reporter, logger)
	chain := moduleproc.NewChain(ident, auth)

	dist := distributor.New(p, dialogs, txs, registry, endpoints, chain, logger)

	collectors := metrics.New(prometheus.DefaultRegisterer)

	ua, err := sipgo.NewUA()
	if err != nil {
		return fmt.Errorf("creating user agent: %w", err)
	}
	srv, err := sipgo.NewServer(ua)
	if err != nil {
		return fmt.Errorf("creating SIP server: %w", err)
	}
	client, err := sipgo.NewClient(ua)
	if err != nil {
		return fmt.Errorf("creating SIP client: %w", err)
	}
	recordingClient := txrecorder.New(client, dist)

	for _, method := range []sip.RequestMethod{
		sip.INVITE, sip.ACK, sip.CANCEL, sip.BYE, sip.REGISTER, sip.OPTIONS,
		sip.SUBSCRIBE, sip.NOTIFY, sip.REFER, sip.INFO, sip.MESSAGE,
		sip.PRACK, sip.UPDATE, sip.PUBLISH,
	} {
		srv.OnRequest(method, dist.HandleRequest)
	}

	// sipgo's transaction layer (this version) only exposes unmatched
	// responses to the UserAgent through its unexported transaction.Layer
	// field, with no public Server-level hook equivalent to OnRequest for
	// responses. The qualify prober below routes its own OPTIONS
	// responses straight off the sip.ClientTransaction it holds, since
	// those are always matched; dist.HandleResponse is built and tested
	// (see distributor_test.go) against the day a response-side hook for
	// genuinely unmatched responses is exposed.

	admin := adminhttp.New(registry, dist.Booted, logger)
	adminSrv := &http.Server{Addr: cfg.AdminAddr, Handler: admin}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sampleCtx, stopSampling := context.WithCancel(context.Background())
	go sampleMetrics(sampleCtx, registry, collectors, 5*time.Second)

	prober := qualify.New(recordingClient, endpoints, p, collectors, logger, cfg.QualifyInterval)
	qualifyCtx, stopQualify := context.WithCancel(context.Background())
	go prober.Run(qualifyCtx)

	go func() {
		logger.Info("admin HTTP listening", "addr", cfg.AdminAddr)
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin HTTP server failed", "error", err)
		}
	}()

	sipErrCh := make(chan error, 1)
	go func() {
		logger.Info("SIP transport listening", "addr", cfg.BindAddr)
		sipErrCh <- srv.ListenAndServe(ctx, "udp", cfg.BindAddr)
	}()

	dist.SetBooted(true)
	logger.Info("distributor booted")

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-sipErrCh:
		if err != nil {
			logger.Error("SIP transport failed", "error", err)
		}
	}

	dist.SetBooted(false)
	stopSampling()
	stopQualify()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admin HTTP shutdown error", "error", err)
	}

	if err := srv.Close(); err != nil {
		logger.Warn("SIP server close error", "error", err)
	}
	if err := client.Close(); err != nil {
		logger.Warn("SIP client close error", "error", err)
	}

	if err := p.Stop(shutdownCtx); err != nil {
		logger.Warn("pool shutdown error", "error", err)
	}
	dialogs.Close()
	txs.Close()
	if sqliteSource != nil {
		sqliteSource.Close()
	}

	logger.Info("distributor stopped")
	return nil
}

func sampleMetrics(ctx context.Context, registry *serializer.Registry, collectors *metrics.Collectors, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			names := registry.Names()
			depths := make(map[string]int, len(names))
			for _, name := range names {
				if s, ok := registry.ByName(name); ok {
					depths[name] = s.Depth()
					s.Release()
				}
			}
			collectors.ObservePoolDepths(depths)
			collectors.SetOverloaded(registry.Overloaded())
		}
	}
}
