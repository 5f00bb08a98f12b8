package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/aerodados/rab-proxy/pkg/metrics"
	"github.com/aerodados/rab-proxy/pkg/mid"
	"github.com/aerodados/rab-proxy/pkg/resilience"
)

// routerDeps are the collaborators the HTTP layer needs.
type routerDeps struct {
	Lookup     Lookuper
	Limiter    *resilience.Limiter
	Metrics    *metrics.Registry
	Logger     *slog.Logger
	CORSOrigin string
	StaticDir  string
	TrustProxy bool
}

func newRouter(d routerDeps) http.Handler {
	limited := func(h http.Handler) http.Handler {
		if d.Limiter == nil {
			return h
		}
		return mid.Chain(h, mid.RateLimit(d.Limiter, mid.ClientIP(d.TrustProxy)))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.Handle("GET /metrics", d.Metrics.Handler())
	mux.Handle("GET /api/aeronave", limited(handleAeronave(d.Lookup, d.Logger)))
	mux.Handle("GET /api/aeronave.xlsx", limited(handleAeronaveXLSX(d.Lookup, d.Logger)))

	if d.StaticDir != "" {
		if fi, err := os.Stat(d.StaticDir); err == nil && fi.IsDir() {
			mux.Handle("GET /", http.FileServer(http.Dir(d.StaticDir)))
		} else {
			d.Logger.Info("static directory not found, static files disabled", "dir", d.StaticDir)
		}
	}

	return mid.Chain(mux,
		mid.Recover(d.Logger),
		mid.Logger(d.Logger),
		mid.Metrics(d.Metrics, mid.MuxRoute(mux)),
		mid.OTel("rab-proxy"),
		mid.SecurityHeaders(),
		mid.CORS(d.CORSOrigin),
		mid.Compress(),
	)
}
