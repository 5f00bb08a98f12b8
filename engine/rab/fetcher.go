package rab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/aerodados/rab-proxy/engine/domain"
	"github.com/aerodados/rab-proxy/pkg/cache"
	"github.com/aerodados/rab-proxy/pkg/metrics"
	"github.com/aerodados/rab-proxy/pkg/resilience"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("rab-proxy/engine/rab")

// DefaultURL is the registry's answer page.
const DefaultURL = "https://sistemas.anac.gov.br/aeronaves/cons_rab_resposta.asp"

// QueryParam is the query parameter carrying the tail number upstream.
const QueryParam = "marca"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// FetcherOpts configures an HTTPFetcher.
type FetcherOpts struct {
	URL       string
	Timeout   time.Duration
	UserAgent string

	// Cache holds decoded pages keyed by normalized tail number.
	Cache   cache.Cache[string, string]
	Breaker *resilience.Breaker

	// Throttle, if set, paces requests to the registry. Cache hits skip it.
	Throttle *rate.Limiter

	Metrics *metrics.Registry
	Logger  *slog.Logger
}

// HTTPFetcher downloads answer pages from the registry.
type HTTPFetcher struct {
	url      string
	client   *resty.Client
	cache    cache.Cache[string, string]
	breaker  *resilience.Breaker
	throttle *rate.Limiter
	log      *slog.Logger

	lookups  *metrics.CounterVec
	entries  *metrics.Gauge
	failures *metrics.CounterVec
	latency  *metrics.Histogram
}

// NewFetcher creates an HTTPFetcher. Zero options fall back to the public
// registry URL, a 15s timeout, no cache, and a default breaker.
func NewFetcher(opts FetcherOpts) *HTTPFetcher {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Cache == nil {
		opts.Cache = cache.Nop[string, string]{}
	}
	if opts.Breaker == nil {
		opts.Breaker = resilience.NewBreaker(resilience.DefaultBreakerOpts)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client := resty.New()
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetHeader("accept", "text/html,application/xhtml+xml")
	client.SetTimeout(opts.Timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	reg := opts.Metrics
	return &HTTPFetcher{
		url:      opts.URL,
		client:   client,
		cache:    opts.Cache,
		breaker:  opts.Breaker,
		throttle: opts.Throttle,
		log:      opts.Logger,
		lookups:  reg.CounterVec("rab_cache_lookups_total", "Answer page cache lookups", "result"),
		entries:  reg.Gauge("rab_cache_entries", "Answer pages held in cache"),
		failures: reg.CounterVec("rab_upstream_errors_total", "Failed upstream fetches", "reason"),
		latency:  reg.Histogram("rab_upstream_duration_seconds", "Upstream fetch latency", nil),
	}
}

// SourceURL returns the upstream URL queried for marca.
func (f *HTTPFetcher) SourceURL(marca string) string {
	u, err := url.Parse(f.url)
	if err != nil {
		return f.url + "?" + QueryParam + "=" + url.QueryEscape(marca)
	}
	q := u.Query()
	q.Set(QueryParam, marca)
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch returns the decoded answer page for marca, from cache when possible.
func (f *HTTPFetcher) Fetch(ctx context.Context, marca string) (string, error) {
	ctx, span := tracer.Start(ctx, "rab.fetch", trace.WithAttributes(attribute.String("marca", marca)))
	defer span.End()

	if html, ok := f.cache.Get(marca); ok {
		f.lookups.With("hit").Inc()
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return html, nil
	}
	f.lookups.With("miss").Inc()
	span.SetAttributes(attribute.Bool("cache_hit", false))

	if f.throttle != nil {
		if err := f.throttle.Wait(ctx); err != nil {
			f.failures.With("throttled").Inc()
			span.SetStatus(codes.Error, err.Error())
			return "", domain.Upstream("throttle", err)
		}
	}

	var html string
	err := f.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		html, err = f.get(ctx, marca)
		return err
	})
	if err != nil {
		f.failures.With(failureReason(err)).Inc()
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, resilience.ErrCircuitOpen) {
			f.log.WarnContext(ctx, "upstream circuit open, rejecting fetch", "marca", marca)
		} else {
			f.log.WarnContext(ctx, "upstream fetch failed", "marca", marca, "err", err)
		}
		return "", domain.Upstream("fetch", err)
	}

	f.cache.Set(marca, html)
	f.entries.Set(int64(f.cache.Len()))
	return html, nil
}

func (f *HTTPFetcher) get(ctx context.Context, marca string) (string, error) {
	start := time.Now()
	res, err := f.client.R().
		SetContext(ctx).
		SetQueryParam(QueryParam, marca).
		Get(f.url)
	f.latency.Since(start)
	if err != nil {
		return "", err
	}

	status := res.StatusCode()
	if status < 200 || status >= 400 {
		return "", &statusError{code: status, url: f.url}
	}

	f.log.DebugContext(ctx, "fetched answer page", "marca", marca, "status", status, "bytes", len(res.Body()), "duration", res.Time())
	return decodeLatin1(res.Body())
}

type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.code, e.url)
}

// failureReason buckets a fetch error for the rab_upstream_errors_total label.
func failureReason(err error) string {
	var se *statusError
	var ne net.Error
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	case errors.As(err, &se):
		return "status"
	default:
		return "transport"
	}
}

// decodeLatin1 converts ISO-8859-1 bytes, as served by the registry, to UTF-8.
func decodeLatin1(b []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode latin1: %w", err)
	}
	return string(out), nil
}
