// Package main implements the RAB lookup proxy server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aerodados/rab-proxy/engine/rab"
	"github.com/aerodados/rab-proxy/pkg/cache"
	"github.com/aerodados/rab-proxy/pkg/metrics"
	"github.com/aerodados/rab-proxy/pkg/natsutil"
	"github.com/aerodados/rab-proxy/pkg/resilience"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	reg := metrics.New()

	// --- Upstream fetcher ---
	breakerState := reg.Gauge("rab_upstream_breaker_state", "Upstream circuit breaker state: 0 closed, 1 open, 2 half-open")
	breaker := resilience.NewBreaker(resilience.BreakerOpts{
		FailThreshold: resilience.DefaultBreakerOpts.FailThreshold,
		Timeout:       resilience.DefaultBreakerOpts.Timeout,
		HalfOpenMax:   resilience.DefaultBreakerOpts.HalfOpenMax,
		OnStateChange: func(from, to resilience.State) {
			breakerState.Set(int64(to))
			logger.Warn("upstream breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	var throttle *rate.Limiter
	if cfg.UpstreamRPS > 0 {
		throttle = rate.NewLimiter(rate.Limit(cfg.UpstreamRPS), cfg.UpstreamBurst)
	}

	fetcher := rab.NewFetcher(rab.FetcherOpts{
		URL:      cfg.RABURL,
		Timeout:  cfg.UpstreamTimeout,
		Cache:    cache.NewLRU[string, string](cfg.CacheMaxEntries, cfg.CacheTTL),
		Breaker:  breaker,
		Throttle: throttle,
		Metrics:  reg,
		Logger:   logger,
	})

	opts := []rab.Option{rab.WithLogger(logger)}

	// --- Lookup events (optional) ---
	if cfg.NATSURL != "" {
		nc, err := natsutil.Connect(cfg.NATSURL, "rab-proxy")
		if err != nil {
			return err
		}
		defer nc.Drain()
		opts = append(opts, rab.WithEvents(natsutil.NewPublisher[rab.LookupEvent](nc, cfg.NATSSubject)))
		logger.Info("publishing lookup events", "url", cfg.NATSURL, "subject", cfg.NATSSubject)
	}

	svc := rab.NewService(fetcher, rab.DefaultParser, opts...)

	// --- Build HTTP server ---
	handler := newRouter(routerDeps{
		Lookup: svc,
		Limiter: resilience.NewLimiter(resilience.LimiterOpts{
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		}),
		Metrics:    reg,
		Logger:     logger,
		CORSOrigin: cfg.CORSOrigin,
		StaticDir:  cfg.StaticDir,
		TrustProxy: cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("rab proxy starting", "addr", ln.Addr().String(), "upstream", cfg.RABURL)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
